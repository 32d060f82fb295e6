package bookings

import (
	"time"

	"github.com/imrishuroy/jolly-booking-intake/internal/catalog"
	"github.com/imrishuroy/jolly-booking-intake/internal/validation"
)

func validated(email, date, clock, pkg string) validation.ValidatedBooking {
	offering, _ := catalog.Default().Lookup(pkg)
	day, _ := time.Parse("2006-01-02", date)
	return validation.ValidatedBooking{
		Request: validation.BookingRequest{
			Name:    "Ana",
			Email:   email,
			Phone:   "313-555-0100",
			Venue:   "Bar X",
			Date:    date,
			Time:    clock,
			Package: pkg,
			Notes:   "clean set",
		},
		Day:      day,
		Offering: offering,
	}
}
