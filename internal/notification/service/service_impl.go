package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/config"
	"github.com/smallbiznis/nannyhub/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/nannyhub/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/internal/realtime"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Config     config.Config
	Repo       domain.Repository
	Profiles   profiledomain.Service
	Email      email.Provider
	Realtime   realtime.Publisher  `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	Clock      clock.Clock         `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	profiles      profiledomain.Service
	email         email.Provider
	realtime      realtime.Publisher
	obsMetrics    *obsmetrics.Metrics
	clock         clock.Clock
	adminFallback []string
}

func NewService(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("notification.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		profiles:      p.Profiles,
		email:         p.Email,
		realtime:      p.Realtime,
		obsMetrics:    p.ObsMetrics,
		clock:         c,
		adminFallback: p.Config.AdminEmailFallback,
	}
}

func (s *Service) Send(ctx context.Context, req domain.SendRequest) (*domain.Notification, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return nil, domain.ErrInvalidUser
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityNormal
	}

	n := &domain.Notification{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   strings.TrimSpace(req.Message),
		Priority:  req.Priority,
		CreatedAt: s.clock.Now().UTC(),
	}
	if len(req.Data) > 0 {
		n.Data = datatypes.JSONMap(req.Data)
	}

	if err := s.repo.Insert(ctx, s.db, n); err != nil {
		s.log.Warn("failed to persist notification",
			zap.String("user_id", req.UserID),
			zap.String("type", string(req.Type)),
			zap.Error(err),
		)
		return nil, err
	}

	if s.realtime != nil {
		s.realtime.Publish(ctx, realtime.Topic("notifications", "user_id", n.UserID), "INSERT", n)
	}
	s.obsMetrics.RecordNotification(ctx, string(n.Type))
	return n, nil
}

func (s *Service) SendEmail(ctx context.Context, to []string, templateName string, data map[string]any, attachments ...email.Attachment) error {
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return email.ErrNoRecipients
	}

	if err := s.email.SendTemplate(ctx, recipients, templateName, data, attachments...); err != nil {
		s.log.Warn("failed to send email",
			zap.String("template", templateName),
			zap.Int("recipients", len(recipients)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// NotifyAdmins sends exactly one in-app notification per admin and a
// single email to all admin addresses. Without any admin profiles the
// email goes to the configured fallback list.
func (s *Service) NotifyAdmins(ctx context.Context, notice domain.AdminNotice) (int, error) {
	admins, err := s.profiles.ListAdmins(ctx)
	if err != nil {
		s.log.Warn("failed to list admins", zap.String("type", string(notice.Type)), zap.Error(err))
		return 0, err
	}

	notified := 0
	emails := make([]string, 0, len(admins))
	for _, admin := range admins {
		if _, err := s.Send(ctx, domain.SendRequest{
			UserID:   admin.UserID,
			Type:     notice.Type,
			Title:    notice.Title,
			Message:  notice.Message,
			Data:     notice.Data,
			Priority: domain.PriorityUrgent,
		}); err == nil {
			notified++
		}
		if admin.Email != "" {
			emails = append(emails, admin.Email)
		}
	}
	if len(emails) == 0 {
		emails = append(emails, s.adminFallback...)
	}

	if notice.EmailTemplate != "" && len(emails) > 0 {
		data := notice.EmailData
		if data == nil {
			data = notice.Data
		}
		// Email failures are logged inside SendEmail; in-app delivery stands.
		_ = s.SendEmail(ctx, emails, notice.EmailTemplate, data)
	}

	s.log.Info("admins notified",
		zap.String("type", string(notice.Type)),
		zap.Int("admins", notified),
	)
	return notified, nil
}

func (s *Service) ListForUser(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.ListResponse{}, domain.ErrInvalidUser
	}
	cursor, err := req.Cursor()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		UserID:     userID,
		UnreadOnly: req.UnreadOnly,
		AfterID:    cursor.AfterID,
		Limit:      limit,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.Trim(items, limit, func(n domain.Notification) int64 {
		return n.ID.Int64()
	})
	return domain.ListResponse{PageInfo: pageInfo, Notifications: items}, nil
}

// MarkRead is idempotent for notifications the user owns.
func (s *Service) MarkRead(ctx context.Context, userID string, id snowflake.ID) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidUser
	}

	affected, err := s.repo.MarkRead(ctx, s.db, userID, id, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	exists, err := s.repo.Exists(ctx, s.db, userID, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotificationNotFound
	}
	return nil
}
