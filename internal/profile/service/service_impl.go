package service

import (
	"context"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/profile/domain"
	"github.com/smallbiznis/nannyhub/internal/revenuesplit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("profile.service"),
		repo:  p.Repo,
		clock: c,
	}
}

func (s *Service) Save(ctx context.Context, req domain.SaveProfileRequest) (*domain.View, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindProfile(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		createdAt := now
		if existing != nil {
			if existing.Role != req.Role {
				return domain.ErrRoleChangeNotAllowed
			}
			createdAt = existing.CreatedAt
		}

		if err := s.repo.UpsertProfile(ctx, tx, &domain.Profile{
			UserID:    req.UserID,
			Role:      req.Role,
			FullName:  req.FullName,
			Email:     req.Email,
			Phone:     req.Phone,
			CreatedAt: createdAt.UTC(),
			UpdatedAt: now,
		}); err != nil {
			return err
		}

		switch req.Role {
		case domain.RoleNanny:
			return s.saveNanny(ctx, tx, req.UserID, req.Nanny, now)
		case domain.RoleClient:
			return s.repo.UpsertClientPreferences(ctx, tx, &domain.ClientPreferences{
				UserID:            req.UserID,
				HomeSize:          req.Client.HomeSize,
				LivingArrangement: req.Client.LivingArrangement,
				RequiredSkills:    datatypes.NewJSONSlice(req.Client.RequiredSkills),
				Address:           req.Client.Address,
				UpdatedAt:         now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("profile saved", zap.String("user_id", req.UserID), zap.String("role", string(req.Role)))
	return s.Get(ctx, req.UserID)
}

func (s *Service) saveNanny(ctx context.Context, tx *gorm.DB, userID string, details *domain.NannyDetails, now time.Time) error {
	available := true
	if details.IsAvailable != nil {
		available = *details.IsAvailable
	}
	var availableFrom *time.Time
	if details.AvailableFrom != nil {
		day := truncateDay(*details.AvailableFrom)
		availableFrom = &day
	}

	if err := s.repo.UpsertNanny(ctx, tx, &domain.NannyProfile{
		UserID:        userID,
		Bio:           details.Bio,
		IsAvailable:   available,
		AvailableFrom: availableFrom,
		UpdatedAt:     now,
	}); err != nil {
		return err
	}
	if err := s.repo.ReplaceSkills(ctx, tx, userID, details.Skills); err != nil {
		return err
	}
	return s.repo.ReplaceArrangements(ctx, tx, userID, details.Arrangements)
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.View, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}

	p, err := s.repo.FindProfile(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrProfileNotFound
	}

	view := &domain.View{Profile: *p}
	switch p.Role {
	case domain.RoleNanny:
		view.Nanny, err = s.repo.FindNanny(ctx, s.db, userID)
	case domain.RoleClient:
		view.Client, err = s.repo.FindClientPreferences(ctx, s.db, userID)
	}
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) FindCandidates(ctx context.Context, filter domain.CandidateFilter) ([]domain.Candidate, error) {
	filter.RequiredSkills = normalizeTags(filter.RequiredSkills)
	filter.LivingArrangement = strings.ToLower(strings.TrimSpace(filter.LivingArrangement))
	filter.StartDate = truncateDay(filter.StartDate)
	if filter.EndDate != nil {
		end := truncateDay(*filter.EndDate)
		filter.EndDate = &end
	}
	return s.repo.FindCandidates(ctx, s.db, filter)
}

func (s *Service) ListAdmins(ctx context.Context) ([]domain.Profile, error) {
	return s.repo.ListByRole(ctx, s.db, domain.RoleAdmin)
}

func (s *Service) validate(req *domain.SaveProfileRequest) error {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return domain.ErrInvalidUser
	}
	req.Role = domain.Role(strings.ToLower(strings.TrimSpace(string(req.Role))))
	if !req.Role.Valid() {
		return domain.ErrInvalidRole
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return domain.ErrInvalidFullName
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return domain.ErrInvalidEmail
	}
	req.Email = strings.ToLower(addr.Address)

	switch req.Role {
	case domain.RoleNanny:
		if req.Nanny == nil || req.Client != nil {
			return domain.ErrRoleSectionMismatch
		}
		req.Nanny.Skills = normalizeTags(req.Nanny.Skills)
		req.Nanny.Arrangements = normalizeTags(req.Nanny.Arrangements)
		for _, arrangement := range req.Nanny.Arrangements {
			if !domain.LivingArrangement(arrangement).Valid() {
				return domain.ErrInvalidArrangement
			}
		}
	case domain.RoleClient:
		if req.Client == nil || req.Nanny != nil {
			return domain.ErrRoleSectionMismatch
		}
		size, err := revenuesplit.ParseHomeSize(req.Client.HomeSize)
		if err != nil {
			return domain.ErrInvalidHomeSize
		}
		req.Client.HomeSize = string(size)
		req.Client.LivingArrangement = strings.ToLower(strings.TrimSpace(req.Client.LivingArrangement))
		if !domain.LivingArrangement(req.Client.LivingArrangement).Valid() {
			return domain.ErrInvalidArrangement
		}
		req.Client.RequiredSkills = normalizeTags(req.Client.RequiredSkills)
	case domain.RoleAdmin:
		if req.Nanny != nil || req.Client != nil {
			return domain.ErrRoleSectionMismatch
		}
	}
	return nil
}

// normalizeTags lowercases, trims, dedupes and sorts capability tags.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
