package services

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"stays_observer/analytics"
	"stays_observer/models"
)

const (
	WeekDays  = 7
	TrendDays = 30
)

type Dashboard struct {
	WeekData            []models.DayBucket         `json:"weekData"`
	OccupancyStats      models.OccupancyStats      `json:"occupancyStats"`
	OccupancyNext30Days models.OccupancyStats      `json:"occupancyNext30Days"`
	ReservationOrigins  []models.ReservationOrigin `json:"reservationOrigins"`
	OccupancyTrend      []models.TrendPoint        `json:"occupancyTrend"`
	AvailableUnits      []string                   `json:"availableUnits"`
}

type Calendar struct {
	Units []models.CalendarUnit `json:"units"`
}

type DatasetSource interface {
	Snapshot() *Dataset
}

type viewKey struct {
	generation uint64
	day        string
}

// Views derives the dashboard and calendar from the current dataset. Results
// are reused until the dataset generation or the local day changes.
type Views struct {
	source    DatasetSource
	platforms analytics.PlatformLookup
	clock     clockwork.Clock

	mu        sync.Mutex
	dashKey   viewKey
	dashboard *Dashboard
	calGen    uint64
	calendar  *Calendar
}

func NewViews(source DatasetSource, platforms analytics.PlatformLookup, clock clockwork.Clock) *Views {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Views{source: source, platforms: platforms, clock: clock}
}

func (v *Views) Now() time.Time {
	return v.clock.Now()
}

func (v *Views) Dashboard() *Dashboard {
	ds := v.source.Snapshot()
	now := v.clock.Now()
	key := viewKey{day: analytics.DayKey(now)}
	if ds != nil {
		key.generation = ds.Generation
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dashboard != nil && v.dashKey == key {
		return v.dashboard
	}

	d := emptyDashboard()
	if ds != nil && len(ds.Bookings) > 0 {
		b := ds.Bookings
		d = &Dashboard{
			WeekData:            analytics.CreateWeekDataFromBookings(b, now, WeekDays, v.platforms),
			OccupancyStats:      analytics.CalculateOccupancyFromBookings(b, key.day),
			OccupancyNext30Days: analytics.CalculateOccupancyNext30Days(b, now, TrendDays),
			ReservationOrigins:  analytics.GetReservationOrigins(b),
			OccupancyTrend:      analytics.CalculateOccupancyTrend(b, now, TrendDays),
			AvailableUnits:      analytics.GetAvailableUnits(b, key.day, ds.ListingsMap),
		}
	}
	v.dashKey = key
	v.dashboard = d
	return d
}

func (v *Views) Calendar() *Calendar {
	ds := v.source.Snapshot()
	var gen uint64
	if ds != nil {
		gen = ds.Generation
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.calendar != nil && v.calGen == gen {
		return v.calendar
	}

	c := &Calendar{Units: []models.CalendarUnit{}}
	if ds != nil && len(ds.Bookings) > 0 {
		c.Units = analytics.BookingsToCalendarUnits(ds.Bookings, ds.ListingsMap, v.platforms)
	}
	v.calGen = gen
	v.calendar = c
	return c
}

func emptyDashboard() *Dashboard {
	return &Dashboard{
		WeekData:           []models.DayBucket{},
		ReservationOrigins: []models.ReservationOrigin{},
		OccupancyTrend:     []models.TrendPoint{},
		AvailableUnits:     []string{},
	}
}
