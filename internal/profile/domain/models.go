package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Role string

const (
	RoleClient Role = "client"
	RoleNanny  Role = "nanny"
	RoleAdmin  Role = "admin"
)

type LivingArrangement string

const (
	LivingArrangementLiveIn  LivingArrangement = "live_in"
	LivingArrangementLiveOut LivingArrangement = "live_out"
)

func (a LivingArrangement) Valid() bool {
	return a == LivingArrangementLiveIn || a == LivingArrangementLiveOut
}

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleNanny, RoleAdmin:
		return true
	}
	return false
}

type Profile struct {
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

type NannyProfile struct {
	UserID        string     `json:"user_id"`
	Bio           *string    `json:"bio,omitempty"`
	Rating        float64    `json:"rating"`
	IsAvailable   bool       `json:"is_available"`
	AvailableFrom *time.Time `json:"available_from,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Skills        []string   `gorm:"-" json:"skills"`
	Arrangements  []string   `gorm:"-" json:"arrangements"`
}

func (NannyProfile) TableName() string { return "nanny_profiles" }

type ClientPreferences struct {
	UserID            string                      `json:"user_id"`
	HomeSize          string                      `json:"home_size"`
	LivingArrangement string                      `json:"living_arrangement"`
	RequiredSkills    datatypes.JSONSlice[string] `json:"required_skills"`
	Address           *string                     `json:"address,omitempty"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

func (ClientPreferences) TableName() string { return "client_preferences" }

// View is a profile with whichever role-specific section applies.
type View struct {
	Profile
	Nanny  *NannyProfile      `json:"nanny,omitempty"`
	Client *ClientPreferences `json:"client,omitempty"`
}

// Candidate is a nanny eligible for a booking, ranked by rating.
type Candidate struct {
	UserID   string  `json:"user_id"`
	FullName string  `json:"full_name"`
	Email    string  `json:"email"`
	Rating   float64 `json:"rating"`
}

type CandidateFilter struct {
	UserIDs           []string
	RequiredSkills    []string
	LivingArrangement string
	StartDate         time.Time
	EndDate           *time.Time
	Exclude           []string
	ExcludeBookingID  snowflake.ID
	Limit             int
}
