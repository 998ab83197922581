package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/clock"
	ledgerdomain "github.com/smallbiznis/nannyhub/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/nannyhub/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       ledgerdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	Clock      clock.Clock         `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       ledgerdomain.Repository
	obsMetrics *obsmetrics.Metrics
	clock      clock.Clock
}

func NewService(p Params) ledgerdomain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
		clock:      c,
	}
}

func (s *Service) Post(ctx context.Context, req ledgerdomain.PostRequest) (bool, error) {
	inserted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = s.PostTx(ctx, tx, req)
		return err
	})
	return inserted, err
}

func (s *Service) PostTx(ctx context.Context, tx *gorm.DB, req ledgerdomain.PostRequest) (bool, error) {
	sourceType := ledgerdomain.LedgerSourceType(strings.TrimSpace(string(req.SourceType)))
	if sourceType == "" {
		return false, ledgerdomain.ErrInvalidSourceType
	}
	if req.SourceID == 0 {
		return false, ledgerdomain.ErrInvalidSourceID
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return false, ledgerdomain.ErrInvalidCurrency
	}
	if req.OccurredAt.IsZero() {
		return false, ledgerdomain.ErrInvalidOccurredAt
	}
	if len(req.Postings) < 2 {
		return false, ledgerdomain.ErrInvalidEntryLines
	}

	normalized := make([]ledgerdomain.Posting, 0, len(req.Postings))
	for _, posting := range req.Postings {
		if _, ok := ledgerdomain.AccountName(posting.Account); !ok {
			return false, ledgerdomain.ErrInvalidAccount
		}
		direction, err := normalizeDirection(posting.Direction)
		if err != nil {
			return false, err
		}
		if posting.Amount < 0 {
			return false, ledgerdomain.ErrInvalidLineAmount
		}
		normalized = append(normalized, ledgerdomain.Posting{
			Account:   posting.Account,
			Direction: direction,
			Amount:    posting.Amount,
		})
	}
	if err := ledgerdomain.ValidateBalanced(normalized); err != nil {
		return false, err
	}

	now := s.clock.Now().UTC()
	entry := &ledgerdomain.LedgerEntry{
		ID:         s.genID.Generate(),
		SourceType: sourceType,
		SourceID:   req.SourceID,
		Currency:   currency,
		OccurredAt: req.OccurredAt.UTC(),
		CreatedAt:  now,
	}
	inserted, err := s.repo.InsertEntry(ctx, tx, entry)
	if err != nil {
		return false, err
	}
	if !inserted {
		s.log.Debug("ledger entry already posted",
			zap.String("source_type", string(sourceType)),
			zap.String("source_id", req.SourceID.String()),
		)
		return false, nil
	}

	for _, posting := range normalized {
		account, err := s.ensureAccount(ctx, tx, posting.Account)
		if err != nil {
			return false, err
		}
		if err := s.repo.InsertLine(ctx, tx, &ledgerdomain.LedgerEntryLine{
			ID:            s.genID.Generate(),
			LedgerEntryID: entry.ID,
			AccountID:     account.ID,
			Direction:     posting.Direction,
			Currency:      currency,
			Amount:        posting.Amount,
			CreatedAt:     now,
		}); err != nil {
			return false, err
		}
	}

	s.obsMetrics.RecordLedgerEntry(ctx, string(sourceType))
	return true, nil
}

func (s *Service) Balance(ctx context.Context, account ledgerdomain.LedgerAccountCode, currency string) (int64, error) {
	return s.repo.Balance(ctx, s.db, account, strings.ToUpper(strings.TrimSpace(currency)))
}

func (s *Service) ensureAccount(ctx context.Context, tx *gorm.DB, code ledgerdomain.LedgerAccountCode) (*ledgerdomain.LedgerAccount, error) {
	account, err := s.repo.FindAccount(ctx, tx, code)
	if err != nil || account != nil {
		return account, err
	}
	name, _ := ledgerdomain.AccountName(code)
	if err := s.repo.InsertAccount(ctx, tx, &ledgerdomain.LedgerAccount{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		CreatedAt: s.clock.Now().UTC(),
	}); err != nil {
		return nil, err
	}
	account, err = s.repo.FindAccount(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ledgerdomain.ErrInvalidAccount
	}
	return account, nil
}

func normalizeDirection(direction ledgerdomain.LedgerEntryDirection) (ledgerdomain.LedgerEntryDirection, error) {
	normalized := strings.ToLower(strings.TrimSpace(string(direction)))
	switch normalized {
	case string(ledgerdomain.LedgerEntryDirectionDebit):
		return ledgerdomain.LedgerEntryDirectionDebit, nil
	case string(ledgerdomain.LedgerEntryDirectionCredit):
		return ledgerdomain.LedgerEntryDirectionCredit, nil
	default:
		return "", ledgerdomain.ErrInvalidLineDirection
	}
}
