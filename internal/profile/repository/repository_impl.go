package repository

import (
	"context"

	"github.com/smallbiznis/nannyhub/internal/profile/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) UpsertProfile(ctx context.Context, db *gorm.DB, p *domain.Profile) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO profiles (user_id, role, full_name, email, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			phone = excluded.phone,
			updated_at = excluded.updated_at`,
		p.UserID, p.Role, p.FullName, p.Email, p.Phone, p.CreatedAt, p.UpdatedAt,
	).Error
}

// UpsertNanny never overwrites rating, which is owned by reviews.
func (r *repo) UpsertNanny(ctx context.Context, db *gorm.DB, n *domain.NannyProfile) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO nanny_profiles (user_id, bio, rating, is_available, available_from, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			bio = excluded.bio,
			is_available = excluded.is_available,
			available_from = excluded.available_from,
			updated_at = excluded.updated_at`,
		n.UserID, n.Bio, n.Rating, n.IsAvailable, n.AvailableFrom, n.UpdatedAt,
	).Error
}

func (r *repo) ReplaceSkills(ctx context.Context, db *gorm.DB, userID string, skills []string) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM nanny_skills WHERE user_id = ?`, userID).Error; err != nil {
		return err
	}
	for _, skill := range skills {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO nanny_skills (user_id, skill) VALUES (?, ?)`, userID, skill,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ReplaceArrangements(ctx context.Context, db *gorm.DB, userID string, arrangements []string) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM nanny_arrangements WHERE user_id = ?`, userID).Error; err != nil {
		return err
	}
	for _, arrangement := range arrangements {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO nanny_arrangements (user_id, arrangement) VALUES (?, ?)`, userID, arrangement,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) UpsertClientPreferences(ctx context.Context, db *gorm.DB, c *domain.ClientPreferences) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO client_preferences (user_id, home_size, living_arrangement, required_skills, address, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			home_size = excluded.home_size,
			living_arrangement = excluded.living_arrangement,
			required_skills = excluded.required_skills,
			address = excluded.address,
			updated_at = excluded.updated_at`,
		c.UserID, c.HomeSize, c.LivingArrangement, c.RequiredSkills, c.Address, c.UpdatedAt,
	).Error
}

func (r *repo) FindProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, role, full_name, email, phone, created_at, updated_at
		FROM profiles WHERE user_id = ?`,
		userID,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.UserID == "" {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindNanny(ctx context.Context, db *gorm.DB, userID string) (*domain.NannyProfile, error) {
	var n domain.NannyProfile
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, bio, rating, is_available, available_from, updated_at
		FROM nanny_profiles WHERE user_id = ?`,
		userID,
	).Scan(&n).Error
	if err != nil {
		return nil, err
	}
	if n.UserID == "" {
		return nil, nil
	}

	if err := db.WithContext(ctx).Raw(
		`SELECT skill FROM nanny_skills WHERE user_id = ? ORDER BY skill`, userID,
	).Scan(&n.Skills).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Raw(
		`SELECT arrangement FROM nanny_arrangements WHERE user_id = ? ORDER BY arrangement`, userID,
	).Scan(&n.Arrangements).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repo) FindClientPreferences(ctx context.Context, db *gorm.DB, userID string) (*domain.ClientPreferences, error) {
	var c domain.ClientPreferences
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, home_size, living_arrangement, required_skills, address, updated_at
		FROM client_preferences WHERE user_id = ?`,
		userID,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.UserID == "" {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) ListByRole(ctx context.Context, db *gorm.DB, role domain.Role) ([]domain.Profile, error) {
	var out []domain.Profile
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, role, full_name, email, phone, created_at, updated_at
		FROM profiles WHERE role = ? ORDER BY user_id`,
		role,
	).Scan(&out).Error
	return out, err
}

// Booking statuses that occupy the assigned nanny.
var holdingStatuses = []string{"pending", "confirmed", "reassigned", "active"}

// FindCandidates returns available nannies holding every required skill,
// supporting the arrangement and free of overlapping bookings that still
// hold them. Highest rating first.
func (r *repo) FindCandidates(ctx context.Context, db *gorm.DB, filter domain.CandidateFilter) ([]domain.Candidate, error) {
	start := filter.StartDate.UTC()
	stmt := db.WithContext(ctx).
		Table("profiles p").
		Select("p.user_id, p.full_name, p.email, n.rating").
		Joins("JOIN nanny_profiles n ON n.user_id = p.user_id").
		Where("p.role = ?", domain.RoleNanny).
		Where("n.is_available = ?", true).
		Where("(n.available_from IS NULL OR n.available_from <= ?)", start)

	if len(filter.UserIDs) > 0 {
		stmt = stmt.Where("p.user_id IN ?", filter.UserIDs)
	}
	if len(filter.RequiredSkills) > 0 {
		stmt = stmt.Where(
			"(SELECT COUNT(DISTINCT s.skill) FROM nanny_skills s WHERE s.user_id = p.user_id AND s.skill IN ?) = ?",
			filter.RequiredSkills, len(filter.RequiredSkills),
		)
	}
	if filter.LivingArrangement != "" {
		stmt = stmt.Where(
			"EXISTS (SELECT 1 FROM nanny_arrangements a WHERE a.user_id = p.user_id AND a.arrangement = ?)",
			filter.LivingArrangement,
		)
	}
	if len(filter.Exclude) > 0 {
		stmt = stmt.Where("p.user_id NOT IN ?", filter.Exclude)
	}

	overlap := "NOT EXISTS (SELECT 1 FROM bookings b WHERE b.nanny_id = p.user_id AND b.status IN ? AND (b.end_date IS NULL OR b.end_date >= ?)"
	args := []any{holdingStatuses, start}
	if filter.ExcludeBookingID != 0 {
		overlap += " AND b.id <> ?"
		args = append(args, filter.ExcludeBookingID)
	}
	if filter.EndDate != nil {
		overlap += " AND b.start_date <= ?"
		args = append(args, filter.EndDate.UTC())
	}
	stmt = stmt.Where(overlap+")", args...)

	stmt = stmt.Order("n.rating DESC").Order("p.user_id ASC")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var out []domain.Candidate
	if err := stmt.Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

