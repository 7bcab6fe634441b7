package models

import (
	"strings"
	"time"
)

// Gender of a registrant.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// AgeGroup buckets registrants for pricing and reporting.
type AgeGroup string

const (
	AgeUnder12 AgeGroup = "under_12"
	Age12To17  AgeGroup = "12_17"
	Age18To25  AgeGroup = "18_25"
	Age26To35  AgeGroup = "26_35"
	Age36To50  AgeGroup = "36_50"
	AgeOver50  AgeGroup = "over_50"
)

// AgeGroups lists the age groups in ascending order.
var AgeGroups = []AgeGroup{AgeUnder12, Age12To17, Age18To25, Age26To35, Age36To50, AgeOver50}

// Valid reports whether g is a known age group.
func (g AgeGroup) Valid() bool {
	for _, known := range AgeGroups {
		if g == known {
			return true
		}
	}
	return false
}

// ParticipantRole is the event role of a registrant without a volunteer assignment.
const ParticipantRole = "participant"

// ParticipantShirtSizes is the unisex scale offered to participants.
var ParticipantShirtSizes = []string{"XS", "S", "M", "L", "XL", "XXL", "3XL"}

// OrganizerShirtSizes is the gendered scale offered to volunteer roles.
var OrganizerShirtSizes = []string{"M-S", "M-M", "M-L", "M-XL", "M-XXL", "F-S", "F-M", "F-L", "F-XL"}

// ShirtSizesForRole returns the size scale that applies to an event role.
func ShirtSizesForRole(role string) []string {
	if role == "" || role == ParticipantRole {
		return ParticipantShirtSizes
	}
	return OrganizerShirtSizes
}

// Registration is a batch of registrants submitted by one user for one event.
type Registration struct {
	ID               string             `db:"id" json:"id"`
	UserID           string             `db:"user_id" json:"user_id"`
	EventConfigID    string             `db:"event_config_id" json:"event_config_id"`
	InvoiceCode      string             `db:"invoice_code" json:"invoice_code"`
	Status           RegistrationStatus `db:"status" json:"status"`
	TotalAmount      int64              `db:"total_amount" json:"total_amount"`
	ParticipantCount int                `db:"participant_count" json:"participant_count"`
	Notes            *string            `db:"notes" json:"notes,omitempty"`
	ReceiptURL       *string            `db:"receipt_url" json:"receipt_url,omitempty"`
	AdminNote        *string            `db:"admin_note" json:"admin_note,omitempty"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`

	Registrants []Registrant `db:"-" json:"registrants,omitempty"`
}

// Primary returns the primary registrant if present.
func (r *Registration) Primary() *Registrant {
	for i := range r.Registrants {
		if r.Registrants[i].IsPrimary {
			return &r.Registrants[i]
		}
	}
	return nil
}

// Registrant is one person within a registration.
type Registrant struct {
	ID                    string     `db:"id" json:"id"`
	RegistrationID        string     `db:"registration_id" json:"registration_id"`
	FullName              string     `db:"full_name" json:"full_name"`
	SaintName             *string    `db:"saint_name" json:"saint_name,omitempty"`
	Gender                Gender     `db:"gender" json:"gender"`
	AgeGroup              AgeGroup   `db:"age_group" json:"age_group"`
	ShirtSize             string     `db:"shirt_size" json:"shirt_size"`
	Province              string     `db:"province" json:"province"`
	Diocese               string     `db:"diocese" json:"diocese"`
	Email                 *string    `db:"email" json:"email,omitempty"`
	Phone                 *string    `db:"phone" json:"phone,omitempty"`
	Address               *string    `db:"address" json:"address,omitempty"`
	FacebookLink          *string    `db:"facebook_link" json:"facebook_link,omitempty"`
	IsPrimary             bool       `db:"is_primary" json:"is_primary"`
	EventRole             string     `db:"event_role" json:"event_role"`
	GoWith                bool       `db:"go_with" json:"go_with"`
	SecondDayOnly         bool       `db:"second_day_only" json:"second_day_only"`
	SelectedAttendanceDay *time.Time `db:"selected_attendance_day" json:"selected_attendance_day,omitempty"`
	PortraitURL           *string    `db:"portrait_url" json:"portrait_url,omitempty"`
	Notes                 *string    `db:"notes" json:"notes,omitempty"`
	CheckedInAt           *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CheckedOutAt          *time.Time `db:"checked_out_at" json:"checked_out_at,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// SingleDay reports whether the registrant attends only one day.
func (r Registrant) SingleDay() bool {
	return r.SecondDayOnly || r.SelectedAttendanceDay != nil
}

// Role returns the event role, defaulting to participant.
func (r Registrant) Role() string {
	if strings.TrimSpace(r.EventRole) == "" {
		return ParticipantRole
	}
	return r.EventRole
}

// RegistrationFilter scopes registration listings.
type RegistrationFilter struct {
	EventConfigID string
	UserID        string
	Statuses      []RegistrationStatus
	Search        string
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// RegistrantInput is the client payload for one registrant.
type RegistrantInput struct {
	ID                    string   `json:"id,omitempty"`
	FullName              string   `json:"full_name" validate:"required,max=120"`
	SaintName             *string  `json:"saint_name,omitempty" validate:"omitempty,max=60"`
	Gender                Gender   `json:"gender" validate:"required,gender"`
	AgeGroup              AgeGroup `json:"age_group" validate:"required,agegroup"`
	ShirtSize             string   `json:"shirt_size" validate:"required"`
	Province              string   `json:"province,omitempty"`
	Diocese               string   `json:"diocese,omitempty"`
	Email                 *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone                 *string  `json:"phone,omitempty" validate:"omitempty,phone"`
	Address               *string  `json:"address,omitempty" validate:"omitempty,max=255"`
	FacebookLink          *string  `json:"facebook_link,omitempty" validate:"omitempty,fblink"`
	IsPrimary             bool     `json:"is_primary"`
	EventRole             string   `json:"event_role,omitempty"`
	GoWith                bool     `json:"go_with"`
	SecondDayOnly         bool     `json:"second_day_only"`
	SelectedAttendanceDay *string  `json:"selected_attendance_day,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes                 *string  `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// CreateRegistrationRequest submits a new registration.
type CreateRegistrationRequest struct {
	Notes       *string           `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Registrants []RegistrantInput `json:"registrants" validate:"required,min=1,dive"`
}

// UpdateRegistrationRequest replaces the registrant list of an editable registration.
type UpdateRegistrationRequest struct {
	Notes       *string           `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Registrants []RegistrantInput `json:"registrants" validate:"required,min=1,dive"`
}

// TransitionRequest applies an action to a registration.
type TransitionRequest struct {
	Action RegistrationAction `json:"action" validate:"required"`
	Note   *string            `json:"note,omitempty" validate:"omitempty,max=500"`
}

// AssignRoleRequest assigns a volunteer role to a registrant.
type AssignRoleRequest struct {
	EventRole string `json:"event_role" validate:"required"`
	ShirtSize string `json:"shirt_size,omitempty"`
}

// FeeQuote previews the amount for a list of registrants.
type FeeQuote struct {
	BasePrice int64     `json:"base_price"`
	Policy    string    `json:"policy"`
	Lines     []FeeLine `json:"lines"`
	Total     int64     `json:"total"`
}

// FeeLine is the fee of one registrant in a quote.
type FeeLine struct {
	FullName  string   `json:"full_name"`
	AgeGroup  AgeGroup `json:"age_group"`
	SingleDay bool     `json:"single_day"`
	Amount    int64    `json:"amount"`
}

// AttendanceResult reports a registrant after a check-in change and the projected registration status.
type AttendanceResult struct {
	Registrant         Registrant         `json:"registrant"`
	RegistrationStatus RegistrationStatus `json:"registration_status"`
}

// RegistrationStatusView is the catalog and action table served to clients.
type RegistrationStatusView struct {
	Statuses    []StatusInfo     `json:"statuses"`
	Transitions []TransitionRule `json:"transitions"`
}
