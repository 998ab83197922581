package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/invoice/domain"
	"github.com/smallbiznis/nannyhub/internal/invoice/format"
	notificationdomain "github.com/smallbiznis/nannyhub/internal/notification/domain"
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
		log:           p.Log.Named("invoice.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		profiles:      p.Profiles,
		notifications: p.Notifications,
		pdf:           renderer,
		clock:         c,
	}
}

func (s *Service) GenerateTx(ctx context.Context, tx *gorm.DB, req domain.GenerateRequest) (*domain.Invoice, error) {
	if tx == nil {
		tx = s.db
	}
	if req.BookingID == 0 || req.AuthorizationID == 0 {
		return nil, domain.ErrInvalidBooking
	}
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return nil, domain.ErrInvalidClient
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.Before(req.PeriodStart) {
		return nil, domain.ErrInvalidPeriod
	}

	items := make([]domain.Item, 0, len(req.Items))
	var total int64
	for _, input := range req.Items {
		if input.Amount == 0 {
			continue
		}
		description := strings.TrimSpace(input.Description)
		if description == "" || input.Amount < 0 {
			return nil, domain.ErrInvalidItems
		}
		items = append(items, domain.Item{
			Position:    len(items) + 1,
			Description: description,
			Amount:      input.Amount,
		})
		total += input.Amount
	}
	if len(items) == 0 {
		return nil, domain.ErrInvalidItems
	}

	periodStart := req.PeriodStart.UTC()
	existing, err := s.repo.FindByPeriod(ctx, tx, req.BookingID, periodStart)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.withItems(ctx, tx, existing)
	}

	now := s.clock.Now().UTC()
	number, err := s.nextNumber(ctx, tx, now)
	if err != nil {
		return nil, err
	}

	inv := &domain.Invoice{
		ID:              s.genID.Generate(),
		BookingID:       req.BookingID,
		AuthorizationID: req.AuthorizationID,
		ClientID:        clientID,
		InvoiceNumber:   number,
		PeriodStart:     periodStart,
		PeriodEnd:       req.PeriodEnd.UTC(),
		TotalAmount:     total,
		Currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
		IssuedAt:        now,
	}
	inserted, err := s.repo.Insert(ctx, tx, inv)
	if err != nil {
		return nil, err
	}
	if inserted == 0 {
		existing, err := s.repo.FindByPeriod(ctx, tx, req.BookingID, periodStart)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, domain.ErrInvoiceNotFound
		}
		return s.withItems(ctx, tx, existing)
	}

	for i := range items {
		items[i].ID = s.genID.Generate()
		items[i].InvoiceID = inv.ID
		if err := s.repo.InsertItem(ctx, tx, &items[i]); err != nil {
			return nil, err
		}
	}
	inv.Items = items

	s.log.Info("invoice generated",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("booking_id", inv.BookingID.String()),
		zap.Int64("total_amount", inv.TotalAmount),
	)
	return inv, nil
}

// nextNumber numbers invoices per issue day. A concurrent capture that
// takes the same number fails on the unique index and is retried by
// the next sweep.
func (s *Service) nextNumber(ctx context.Context, tx *gorm.DB, now time.Time) (string, error) {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	count, err := s.repo.CountIssuedBetween(ctx, tx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return "", err
	}
	return format.InvoiceNumber(format.DefaultInvoiceNumberTemplate, dayStart, count+1)
}

func (s *Service) withItems(ctx context.Context, db *gorm.DB, inv *domain.Invoice) (*domain.Invoice, error) {
	items, err := s.repo.ListItems(ctx, db, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return s.withItems(ctx, s.db, inv)
}

func (s *Service) ListForClient(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{ClientID: strings.TrimSpace(req.ClientID), Limit: req.Limit()}
	cursor, err := req.Cursor()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}
	filter.AfterID = cursor.AfterID

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, filter.Limit, func(inv domain.Invoice) int64 {
		return inv.ID.Int64()
	})
	return domain.ListResponse{PageInfo: pageInfo, Invoices: items}, nil
}

func (s *Service) Render(ctx context.Context, inv *domain.Invoice) ([]byte, error) {
	if len(inv.Items) == 0 {
		if _, err := s.withItems(ctx, s.db, inv); err != nil {
			return nil, err
		}
	}

	data := pdf.InvoiceData{
		InvoiceNumber: inv.InvoiceNumber,
		BookingID:     inv.BookingID.String(),
		IssueDate:     inv.IssuedAt.UTC().Format(dateLayout),
		PeriodStart:   inv.PeriodStart.UTC().Format(dateLayout),
		PeriodEnd:     inv.PeriodEnd.UTC().Format(dateLayout),
		BillToName:    inv.ClientID,
		Currency:      inv.Currency,
		Total:         inv.TotalAmount,
	}
	if view, err := s.profiles.Get(ctx, inv.ClientID); err == nil {
		data.BillToName = view.FullName
		data.BillToEmail = view.Email
	}
	for _, item := range inv.Items {
		data.Items = append(data.Items, pdf.InvoiceItem{Description: item.Description, Amount: item.Amount})
	}
	return s.pdf.RenderInvoice(ctx, data)
}

func (s *Service) Deliver(ctx context.Context, id snowflake.ID) error {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	client, err := s.profiles.Get(ctx, inv.ClientID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(client.Email) == "" {
		return domain.ErrClientEmailMissing
	}

	body, err := s.Render(ctx, inv)
	if err != nil {
		return err
	}
	var attachments []email.Attachment
	if len(body) > 0 {
		attachments = append(attachments, email.Attachment{
			Filename:    pdf.FileName("invoice", inv.InvoiceNumber),
			ContentType: "application/pdf",
			Content:     body,
		})
	}

	return s.notifications.SendEmail(ctx, []string{client.Email}, email.TemplateInvoice, map[string]any{
		"client_name":    client.FullName,
		"invoice_number": inv.InvoiceNumber,
		"period_start":   inv.PeriodStart.UTC().Format(dateLayout),
		"period_end":     inv.PeriodEnd.UTC().Format(dateLayout),
		"total_amount":   money.Format(inv.TotalAmount, inv.Currency),
	}, attachments...)
}
