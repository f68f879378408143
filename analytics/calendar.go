package analytics

import (
	"sort"
	"strings"

	"stays_observer/models"
)

func BookingToCalendarReservation(b models.Booking, platforms PlatformLookup) models.CalendarReservation {
	img := platformImage(platforms, b.Platform)
	typ := models.ReservationReserved
	if b.Kind == models.BookingKindBlocked {
		typ = models.ReservationBlocked
	}
	return models.CalendarReservation{
		ID:            b.ID,
		BookingID:     b.Code,
		ApartmentCode: unitCode(b),
		GuestName:     b.GuestName,
		Type:          typ,
		StartDate:     b.CheckInDate,
		EndDate:       b.CheckOutDate,
		Platform:      img.Name,
		PlatformImage: img.ImagePath,
		Nights:        b.Nights,
		GuestCount:    b.GuestCount,
		CheckInTime:   b.CheckInTime,
		CheckOutTime:  b.CheckOutTime,
	}
}

// BookingsToCalendarUnits groups bookings by listing. A unit's code comes from
// the first booking carrying a resolved listing, then codes, then the raw id.
// Bookings without a listing id are skipped.
func BookingsToCalendarUnits(bookings []models.Booking, codes map[string]string, platforms PlatformLookup) []models.CalendarUnit {
	byListing := make(map[string]*models.CalendarUnit)
	var order []string

	for _, b := range bookings {
		if b.ListingID == "" {
			continue
		}
		unit, ok := byListing[b.ListingID]
		if !ok {
			unit = &models.CalendarUnit{ID: b.ListingID, Reservations: []models.CalendarReservation{}}
			byListing[b.ListingID] = unit
			order = append(order, b.ListingID)
		}
		if unit.Code == "" && b.Listing != nil && b.Listing.Code != "" {
			unit.Code = b.Listing.Code
		}
		unit.Reservations = append(unit.Reservations, BookingToCalendarReservation(b, platforms))
	}

	units := make([]models.CalendarUnit, 0, len(order))
	for _, id := range order {
		unit := byListing[id]
		if unit.Code == "" {
			unit.Code = id
			if code, ok := codes[id]; ok && code != "" {
				unit.Code = code
			}
		}
		sort.SliceStable(unit.Reservations, func(i, j int) bool {
			return unit.Reservations[i].StartDate < unit.Reservations[j].StartDate
		})
		units = append(units, *unit)
	}

	sort.SliceStable(units, func(i, j int) bool {
		return strings.Compare(units[i].Code, units[j].Code) < 0
	})
	return units
}
