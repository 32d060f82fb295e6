package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/jolly-booking-intake/internal/catalog"
)

const dateLayout = "2006-01-02"

var (
	phoneChars = regexp.MustCompile(`^[0-9+().\- ]{7,20}$`)
	hhmm       = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

type nowKey struct{}

// Validator checks booking requests against the offering catalog.
// Validate is pure: the same request and clock reading give the same result.
type Validator struct {
	v       *validatorv10.Validate
	catalog *catalog.Catalog
	loc     *time.Location
}

// New returns a configured validator. loc decides which calendar day "today" is.
func New(c *catalog.Catalog, loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	val := &Validator{
		v:       validatorv10.New(),
		catalog: c,
		loc:     loc,
	}

	// report json names so errors match what the form sent
	val.v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(val.v.RegisterValidation("phone", validPhone))
	mustRegister(val.v.RegisterValidation("hhmm", func(fl validatorv10.FieldLevel) bool {
		return hhmm.MatchString(fl.Field().String())
	}))
	mustRegister(val.v.RegisterValidation("offering", func(fl validatorv10.FieldLevel) bool {
		return val.catalog.Has(fl.Field().String())
	}))
	mustRegister(val.v.RegisterValidationCtx("notpast", val.notPast))

	return val
}

func mustRegister(err error) {
	if err != nil {
		panic(fmt.Sprintf("validation: register rule: %v", err))
	}
}

// Validate normalizes req and checks every field, collecting all violations.
func (val *Validator) Validate(req BookingRequest, now time.Time) (ValidatedBooking, []FieldError) {
	req = Normalize(req)
	if o, ok := val.catalog.Resolve(req.Package); ok {
		req.Package = o.ID
	}

	ctx := context.WithValue(context.Background(), nowKey{}, now)
	if err := val.v.StructCtx(ctx, req); err != nil {
		return ValidatedBooking{}, toFieldErrors(err)
	}

	day, _ := time.ParseInLocation(dateLayout, req.Date, val.loc)
	offering, _ := val.catalog.Lookup(req.Package)
	return ValidatedBooking{Request: req, Day: day, Offering: offering}, nil
}

// Normalize trims whitespace and lower-cases the email.
func Normalize(req BookingRequest) BookingRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Venue = strings.TrimSpace(req.Venue)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.Package = strings.TrimSpace(req.Package)
	req.Notes = strings.TrimSpace(req.Notes)
	return req
}

func (val *Validator) notPast(ctx context.Context, fl validatorv10.FieldLevel) bool {
	now, ok := ctx.Value(nowKey{}).(time.Time)
	if !ok {
		now = time.Now()
	}
	day, err := time.ParseInLocation(dateLayout, fl.Field().String(), val.loc)
	if err != nil {
		// format is reported by the datetime rule
		return true
	}
	y, m, d := now.In(val.loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, val.loc)
	return !day.Before(today)
}

func validPhone(fl validatorv10.FieldLevel) bool {
	s := fl.Field().String()
	if !phoneChars.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7
}

func toFieldErrors(err error) []FieldError {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "request", Reason: ReasonFormat, Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, fe := range ve {
		reason := reasonFor(fe.Tag())
		out = append(out, FieldError{
			Field:   fe.Field(),
			Reason:  reason,
			Message: messageFor(fe, reason),
		})
	}
	return out
}

func reasonFor(tag string) Reason {
	switch tag {
	case "required":
		return ReasonRequired
	case "notpast":
		return ReasonPastDate
	case "offering":
		return ReasonUnknownPackage
	default:
		return ReasonFormat
	}
}

func messageFor(fe validatorv10.FieldError, reason Reason) string {
	switch reason {
	case ReasonRequired:
		return "is required"
	case ReasonPastDate:
		return "must not be in the past"
	case ReasonUnknownPackage:
		return fmt.Sprintf("unknown package %q", fe.Value())
	}
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be 7-20 digits and phone formatting characters"
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	case "hhmm":
		return "must be a time formatted HH:MM"
	}
	return "is invalid"
}
