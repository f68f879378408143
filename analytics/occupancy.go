package analytics

import (
	"math"
	"time"

	"stays_observer/models"
)

// listingIDs returns the distinct listing ids in first-seen order.
func listingIDs(bookings []models.Booking) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, b := range bookings {
		if !seen[b.ListingID] {
			seen[b.ListingID] = true
			ids = append(ids, b.ListingID)
		}
	}
	return ids
}

func occupiedOn(bookings []models.Booking, day string) map[string]bool {
	occupied := make(map[string]bool)
	for _, b := range bookings {
		if occupies(ClassifyBookingStatus(b, day)) {
			occupied[b.ListingID] = true
		}
	}
	return occupied
}

// CalculateOccupancyFromBookings counts units occupied on day against every
// unit referenced anywhere in bookings.
func CalculateOccupancyFromBookings(bookings []models.Booking, day string) models.OccupancyStats {
	total := len(listingIDs(bookings))
	occupied := len(occupiedOn(bookings, day))
	return models.OccupancyStats{
		Available: total - occupied,
		Occupied:  occupied,
		Total:     total,
	}
}

// CalculateOccupancyNext30Days averages daily stats over days, rounding
// occupied and available independently, so their sum may differ from total.
func CalculateOccupancyNext30Days(bookings []models.Booking, start time.Time, days int) models.OccupancyStats {
	total := len(listingIDs(bookings))
	if days <= 0 {
		return models.OccupancyStats{Available: total, Total: total}
	}

	var occupiedDays, availableDays int
	for i := 0; i < days; i++ {
		stats := CalculateOccupancyFromBookings(bookings, DayKey(dayAt(start, i)))
		occupiedDays += stats.Occupied
		availableDays += stats.Available
	}

	return models.OccupancyStats{
		Available: roundHalfUp(float64(availableDays) / float64(days)),
		Occupied:  roundHalfUp(float64(occupiedDays) / float64(days)),
		Total:     total,
	}
}

func CalculateOccupancyTrend(bookings []models.Booking, start time.Time, days int) []models.TrendPoint {
	total := len(listingIDs(bookings))
	trend := make([]models.TrendPoint, 0, days)
	for i := 0; i < days; i++ {
		key := DayKey(dayAt(start, i))
		rate := 0
		if total > 0 {
			occupied := len(occupiedOn(bookings, key))
			rate = roundHalfUp(float64(occupied) / float64(total) * 100)
		}
		trend = append(trend, models.TrendPoint{Date: key, Rate: rate})
	}
	return trend
}

// GetAvailableUnits lists units with no occupying booking on day. When codes
// is non-nil the listing codes are returned instead of raw ids.
func GetAvailableUnits(bookings []models.Booking, day string, codes map[string]string) []string {
	occupied := occupiedOn(bookings, day)
	available := []string{}
	for _, id := range listingIDs(bookings) {
		if occupied[id] {
			continue
		}
		if code, ok := codes[id]; ok && code != "" {
			available = append(available, code)
		} else {
			available = append(available, id)
		}
	}
	return available
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
