package service

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/event-registration-api/internal/models"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

const attendanceDayLayout = "2006-01-02"

// RegistrantValidator enforces the registrant form rules and normalises input
// into storable registrants.
type RegistrantValidator struct {
	validate *validator.Validate
}

// NewRegistrantValidator registers the custom tags used by registrant payloads.
func NewRegistrantValidator(validate *validator.Validate) *RegistrantValidator {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = validate.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		switch models.Gender(fl.Field().String()) {
		case models.GenderMale, models.GenderFemale, models.GenderOther:
			return true
		}
		return false
	})
	_ = validate.RegisterValidation("agegroup", func(fl validator.FieldLevel) bool {
		return models.AgeGroup(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	_ = validate.RegisterValidation("fblink", func(fl validator.FieldLevel) bool {
		return ValidProfileLink(fl.Field().String())
	})
	return &RegistrantValidator{validate: validate}
}

// Validator exposes the configured validator for request structs.
func (v *RegistrantValidator) Validator() *validator.Validate {
	return v.validate
}

// ValidPhone accepts digits, spaces, '+', '-', '(' and ')' with at least ten digits.
func ValidPhone(raw string) bool {
	digits := 0
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 10
}

// ValidProfileLink accepts absolute http(s) URLs with a dotted host.
func ValidProfileLink(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.Contains(u.Hostname(), ".")
}

// BuildOptions carries context needed while normalising registrants.
type BuildOptions struct {
	Event *models.EventConfig
	// Previous maps registrant ids to stored values so a changed province
	// refreshes the diocese.
	Previous map[string]models.Registrant
}

// Build validates inputs and returns registrants ready for storage.
func (v *RegistrantValidator) Build(ctx context.Context, inputs []models.RegistrantInput, opts BuildOptions) ([]models.Registrant, error) {
	details := make([]appErrors.FieldDetail, 0)
	if len(inputs) == 0 {
		details = append(details, appErrors.FieldDetail{Field: "registrants", Message: "at least one registrant is required"})
		return nil, validationError("registrant validation failed", details)
	}

	primaryIdx := -1
	primaries := 0
	for i := range inputs {
		if inputs[i].IsPrimary {
			primaries++
			primaryIdx = i
		}
	}
	if primaries != 1 {
		details = append(details, appErrors.FieldDetail{
			Field:   "registrants",
			Message: fmt.Sprintf("exactly one primary registrant is required, got %d", primaries),
		})
	}

	registrants := make([]models.Registrant, len(inputs))
	for i, in := range inputs {
		prefix := fmt.Sprintf("registrants[%d]", i)
		if err := v.validate.StructCtx(ctx, in); err != nil {
			details = append(details, fieldDetails(prefix, err)...)
		}
		reg, fieldErrs := v.normalise(prefix, in, opts)
		details = append(details, fieldErrs...)
		registrants[i] = reg
	}

	if primaryIdx >= 0 && primaries == 1 {
		details = append(details, requirePrimaryFields(fmt.Sprintf("registrants[%d]", primaryIdx), registrants[primaryIdx])...)
		inheritFromPrimary(registrants, primaryIdx)
	}

	if len(details) > 0 {
		return nil, validationError("registrant validation failed", details)
	}
	return registrants, nil
}

func (v *RegistrantValidator) normalise(prefix string, in models.RegistrantInput, opts BuildOptions) (models.Registrant, []appErrors.FieldDetail) {
	details := make([]appErrors.FieldDetail, 0)
	reg := models.Registrant{
		ID:            in.ID,
		FullName:      strings.TrimSpace(in.FullName),
		SaintName:     trimPtr(in.SaintName),
		Gender:        models.Gender(strings.ToLower(string(in.Gender))),
		AgeGroup:      in.AgeGroup,
		ShirtSize:     strings.ToUpper(strings.TrimSpace(in.ShirtSize)),
		Province:      strings.TrimSpace(in.Province),
		Diocese:       strings.TrimSpace(in.Diocese),
		Email:         trimPtr(in.Email),
		Phone:         trimPtr(in.Phone),
		Address:       trimPtr(in.Address),
		FacebookLink:  trimPtr(in.FacebookLink),
		IsPrimary:     in.IsPrimary,
		EventRole:     strings.TrimSpace(in.EventRole),
		GoWith:        in.GoWith,
		SecondDayOnly: in.SecondDayOnly,
		Notes:         trimPtr(in.Notes),
	}
	reg.EventRole = reg.Role()

	if !containsString(models.ShirtSizesForRole(reg.EventRole), reg.ShirtSize) && reg.ShirtSize != "" {
		details = append(details, appErrors.FieldDetail{
			Field:   prefix + ".shirt_size",
			Message: fmt.Sprintf("shirt size must be one of %s", strings.Join(models.ShirtSizesForRole(reg.EventRole), ", ")),
		})
	}

	if reg.Province != "" {
		canonical, ok := models.CanonicalProvince(reg.Province)
		if !ok {
			details = append(details, appErrors.FieldDetail{Field: prefix + ".province", Message: "unknown province"})
		} else {
			provinceChanged := false
			if prev, found := opts.Previous[reg.ID]; found && reg.ID != "" {
				provinceChanged = !strings.EqualFold(prev.Province, canonical)
			}
			reg.Province = canonical
			if reg.Diocese == "" || provinceChanged {
				reg.Diocese, _ = models.DioceseForProvince(canonical)
			}
		}
	}

	if in.SelectedAttendanceDay != nil && strings.TrimSpace(*in.SelectedAttendanceDay) != "" {
		day, err := time.Parse(attendanceDayLayout, strings.TrimSpace(*in.SelectedAttendanceDay))
		if err != nil {
			details = append(details, appErrors.FieldDetail{Field: prefix + ".selected_attendance_day", Message: "must be a date in YYYY-MM-DD format"})
		} else {
			if opts.Event != nil && !isEventDay(*opts.Event, day) {
				details = append(details, appErrors.FieldDetail{Field: prefix + ".selected_attendance_day", Message: "must be one of the event days"})
			}
			reg.SelectedAttendanceDay = &day
		}
	}
	return reg, details
}

func requirePrimaryFields(prefix string, r models.Registrant) []appErrors.FieldDetail {
	details := make([]appErrors.FieldDetail, 0)
	if r.Province == "" {
		details = append(details, appErrors.FieldDetail{Field: prefix + ".province", Message: "province is required for the primary registrant"})
	}
	if r.Diocese == "" {
		details = append(details, appErrors.FieldDetail{Field: prefix + ".diocese", Message: "diocese is required for the primary registrant"})
	}
	if r.FacebookLink == nil {
		details = append(details, appErrors.FieldDetail{Field: prefix + ".facebook_link", Message: "facebook link is required for the primary registrant"})
	}
	return details
}

// inheritFromPrimary copies location and contact details onto every other registrant.
func inheritFromPrimary(registrants []models.Registrant, primaryIdx int) {
	primary := registrants[primaryIdx]
	for i := range registrants {
		if i == primaryIdx {
			continue
		}
		registrants[i].Province = primary.Province
		registrants[i].Diocese = primary.Diocese
		registrants[i].Email = primary.Email
		registrants[i].Phone = primary.Phone
		registrants[i].Address = primary.Address
	}
}

func isEventDay(event models.EventConfig, day time.Time) bool {
	for _, d := range event.EventDays() {
		if d.Year() == day.Year() && d.YearDay() == day.YearDay() {
			return true
		}
	}
	return false
}

func fieldDetails(prefix string, err error) []appErrors.FieldDetail {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []appErrors.FieldDetail{{Field: prefix, Message: err.Error()}}
	}
	details := make([]appErrors.FieldDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, appErrors.FieldDetail{
			Field:   prefix + "." + fe.Field(),
			Message: validationMessage(fe),
		})
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "email":
		return "invalid email address"
	case "phone":
		return "phone must contain at least 10 digits and only + - ( ) or spaces"
	case "fblink":
		return "must be a valid profile URL"
	case "gender":
		return "gender must be male, female or other"
	case "agegroup":
		return "unknown age group"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "gt", "gte":
		return "value is too small"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return "invalid value"
	}
}

// ValidateStruct validates a request struct and maps failures to a validation error.
func ValidateStruct(ctx context.Context, validate *validator.Validate, payload interface{}) error {
	if err := validate.StructCtx(ctx, payload); err != nil {
		return validationError("validation failed", fieldDetails("", err))
	}
	return nil
}

func validationError(message string, details []appErrors.FieldDetail) error {
	for i := range details {
		details[i].Field = strings.TrimPrefix(details[i].Field, ".")
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, message), details)
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
