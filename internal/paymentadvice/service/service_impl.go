package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/clock"
	notificationdomain "github.com/smallbiznis/nannyhub/internal/notification/domain"
	"github.com/smallbiznis/nannyhub/internal/paymentadvice/domain"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/internal/providers/pdf"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
	"github.com/smallbiznis/nannyhub/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Profiles      profiledomain.Service
	Notifications notificationdomain.Service
	PDF           pdf.Provider
	Clock         clock.Clock `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	profiles      profiledomain.Service
	notifications notificationdomain.Service
	pdf           pdf.Provider
	clock         clock.Clock
}

func NewService(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	renderer := p.PDF
	if renderer == nil {
		renderer = pdf.NoOpProvider{}
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("paymentadvice.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		profiles:      p.Profiles,
		notifications: p.Notifications,
		pdf:           renderer,
		clock:         c,
	}
}

func (s *Service) IssueTx(ctx context.Context, tx *gorm.DB, req domain.IssueRequest) (*domain.PaymentAdvice, error) {
	if tx == nil {
		tx = s.db
	}
	if req.BookingID == 0 || req.AuthorizationID == 0 {
		return nil, domain.ErrInvalidBooking
	}
	nannyID := strings.TrimSpace(req.NannyID)
	if nannyID == "" {
		return nil, domain.ErrInvalidNanny
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.Before(req.PeriodStart) {
		return nil, domain.ErrInvalidPeriod
	}
	if req.GrossAmount < 0 || req.CommissionDeducted < 0 || req.CommissionDeducted > req.GrossAmount {
		return nil, domain.ErrInvalidAmount
	}

	advice := &domain.PaymentAdvice{
		ID:                 s.genID.Generate(),
		BookingID:          req.BookingID,
		AuthorizationID:    req.AuthorizationID,
		NannyID:            nannyID,
		PeriodStart:        req.PeriodStart.UTC(),
		PeriodEnd:          req.PeriodEnd.UTC(),
		GrossAmount:        req.GrossAmount,
		CommissionDeducted: req.CommissionDeducted,
		NetAmount:          req.GrossAmount - req.CommissionDeducted,
		Currency:           strings.ToUpper(strings.TrimSpace(req.Currency)),
		IssuedAt:           s.clock.Now().UTC(),
	}
	inserted, err := s.repo.Insert(ctx, tx, advice)
	if err != nil {
		return nil, err
	}
	if inserted == 0 {
		existing, err := s.repo.FindByPeriod(ctx, tx, advice.BookingID, advice.PeriodStart)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, domain.ErrAdviceNotFound
		}
		return existing, nil
	}

	s.log.Info("payment advice issued",
		zap.String("advice_id", advice.ID.String()),
		zap.String("booking_id", advice.BookingID.String()),
		zap.Int64("net_amount", advice.NetAmount),
	)
	return advice, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.PaymentAdvice, error) {
	advice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if advice == nil {
		return nil, domain.ErrAdviceNotFound
	}
	return advice, nil
}

func (s *Service) ListForNanny(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{NannyID: strings.TrimSpace(req.NannyID), Limit: req.Limit()}
	cursor, err := req.Cursor()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}
	filter.AfterID = cursor.AfterID

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, filter.Limit, func(a domain.PaymentAdvice) int64 {
		return a.ID.Int64()
	})
	return domain.ListResponse{PageInfo: pageInfo, Advices: items}, nil
}

func (s *Service) Render(ctx context.Context, a *domain.PaymentAdvice) ([]byte, error) {
	data := pdf.PaymentAdviceData{
		AdviceID:           a.ID.String(),
		BookingID:          a.BookingID.String(),
		NannyName:          a.NannyID,
		IssueDate:          a.IssuedAt.Format(dateLayout),
		PeriodStart:        a.PeriodStart.UTC().Format(dateLayout),
		PeriodEnd:          a.PeriodEnd.UTC().Format(dateLayout),
		GrossAmount:        a.GrossAmount,
		CommissionDeducted: a.CommissionDeducted,
		NetAmount:          a.NetAmount,
		Currency:           a.Currency,
	}
	if view, err := s.profiles.Get(ctx, a.NannyID); err == nil {
		data.NannyName = view.FullName
	}
	return s.pdf.RenderPaymentAdvice(ctx, data)
}

func (s *Service) Deliver(ctx context.Context, id snowflake.ID) error {
	advice, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if advice.DeliveredAt != nil {
		return nil
	}

	err = s.deliver(ctx, advice)
	var deliveredAt *time.Time
	if err == nil {
		now := s.clock.Now().UTC()
		deliveredAt = &now
	}
	if recErr := s.repo.RecordDelivery(ctx, s.db, advice.ID, deliveredAt); recErr != nil {
		s.log.Warn("failed to record advice delivery", zap.String("advice_id", advice.ID.String()), zap.Error(recErr))
	}
	return err
}

func (s *Service) deliver(ctx context.Context, advice *domain.PaymentAdvice) error {
	nanny, err := s.profiles.Get(ctx, advice.NannyID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(nanny.Email) == "" {
		return domain.ErrNannyEmailMissing
	}

	body, err := s.Render(ctx, advice)
	if err != nil {
		return err
	}
	var attachments []email.Attachment
	if len(body) > 0 {
		attachments = append(attachments, email.Attachment{
			Filename:    pdf.FileName("payment advice", advice.BookingID.String(), advice.PeriodStart.UTC().Format(dateLayout)),
			ContentType: "application/pdf",
			Content:     body,
		})
	}

	return s.notifications.SendEmail(ctx, []string{nanny.Email}, email.TemplatePaymentAdvice, map[string]any{
		"nanny_name":          nanny.FullName,
		"period_start":        advice.PeriodStart.UTC().Format(dateLayout),
		"period_end":          advice.PeriodEnd.UTC().Format(dateLayout),
		"gross_amount":        money.Format(advice.GrossAmount, advice.Currency),
		"commission_deducted": money.Format(advice.CommissionDeducted, advice.Currency),
		"net_amount":          money.Format(advice.NetAmount, advice.Currency),
	}, attachments...)
}

func (s *Service) DeliverPending(ctx context.Context, limit int) (int, error) {
	items, err := s.repo.ListUndelivered(ctx, s.db, domain.MaxDeliveryAttempts, limit)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if err := s.Deliver(ctx, item.ID); err != nil {
			s.log.Warn("payment advice delivery failed",
				zap.String("advice_id", item.ID.String()),
				zap.Int("attempts", item.DeliveryAttempts+1),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered, nil
}
