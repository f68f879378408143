package analytics

import (
	"time"

	"stays_observer/models"
)

// PlatformLookup maps a raw platform name to display data.
type PlatformLookup interface {
	Lookup(platform string) models.PlatformImage
}

// ClassifyBookingStatus places a booking relative to day (YYYY-MM-DD). A
// same-day turnover is a check-in.
func ClassifyBookingStatus(b models.Booking, day string) models.GuestStatus {
	switch {
	case b.CheckInDate == day:
		return models.GuestStatusCheckin
	case b.CheckOutDate == day:
		return models.GuestStatusCheckout
	case b.CheckInDate < day && b.CheckOutDate > day:
		return models.GuestStatusStaying
	default:
		return models.GuestStatusNone
	}
}

func occupies(status models.GuestStatus) bool {
	return status == models.GuestStatusStaying || status == models.GuestStatusCheckin
}

func platformImage(platforms PlatformLookup, platform string) models.PlatformImage {
	if platforms == nil {
		return models.PlatformImage{Name: platform}
	}
	return platforms.Lookup(platform)
}

func unitCode(b models.Booking) string {
	if b.Listing != nil && b.Listing.Code != "" {
		return b.Listing.Code
	}
	return b.ListingID
}

func BookingToGuest(b models.Booking, status models.GuestStatus, platforms PlatformLookup) models.Guest {
	img := platformImage(platforms, b.Platform)
	return models.Guest{
		ID:            b.ID,
		Code:          b.Code,
		Unit:          b.ListingID,
		UnitCode:      unitCode(b),
		Status:        status,
		GuestName:     b.GuestName,
		CheckInDate:   b.CheckInDate,
		CheckInTime:   b.CheckInTime,
		CheckOutDate:  b.CheckOutDate,
		CheckOutTime:  b.CheckOutTime,
		Nights:        b.Nights,
		GuestCount:    b.GuestCount,
		Platform:      img.Name,
		PlatformImage: img.ImagePath,
	}
}

func ProcessBookingsForDate(bookings []models.Booking, day string, platforms PlatformLookup) []models.Guest {
	guests := []models.Guest{}
	for _, b := range bookings {
		if status := ClassifyBookingStatus(b, day); status != models.GuestStatusNone {
			guests = append(guests, BookingToGuest(b, status, platforms))
		}
	}
	return guests
}

func CreateWeekDataFromBookings(bookings []models.Booking, start time.Time, days int, platforms PlatformLookup) []models.DayBucket {
	week := make([]models.DayBucket, 0, days)
	for i := 0; i < days; i++ {
		d := dayAt(start, i)
		key := DayKey(d)
		week = append(week, models.DayBucket{
			Date:       key,
			DayOfWeek:  DayOfWeekLabel(d),
			DayOfMonth: d.Day(),
			Month:      MonthLabel(d),
			Guests:     ProcessBookingsForDate(bookings, key, platforms),
		})
	}
	return week
}
