package analytics

import (
	"sort"

	"stays_observer/models"
)

const DirectOrigin = "Direct"

var originPalette = [...]string{"#3b82f6", "#10b981", "#f59e0b", "#ef4444", "#8b5cf6", "#ec4899"}

// GetReservationOrigins counts bookings per channel. Colors follow first-seen
// order; the result is sorted by count, ties keeping first-seen order.
func GetReservationOrigins(bookings []models.Booking) []models.ReservationOrigin {
	index := make(map[string]int)
	var origins []models.ReservationOrigin

	for _, b := range bookings {
		name := firstNonEmpty(b.Channel, b.Source, DirectOrigin)
		if i, ok := index[name]; ok {
			origins[i].Count++
			continue
		}
		index[name] = len(origins)
		origins = append(origins, models.ReservationOrigin{
			Name:  name,
			Count: 1,
			Color: originPalette[len(origins)%len(originPalette)],
		})
	}

	sort.SliceStable(origins, func(i, j int) bool {
		return origins[i].Count > origins[j].Count
	})
	if origins == nil {
		return []models.ReservationOrigin{}
	}
	return origins
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
