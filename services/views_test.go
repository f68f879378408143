package services

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stays_observer/config"
	"stays_observer/models"
)

type staticSource struct{ ds *Dataset }

func (s *staticSource) Snapshot() *Dataset { return s.ds }

func viewDataset(gen uint64) *Dataset {
	return &Dataset{
		Bookings: []models.Booking{
			{ID: "b1", ListingID: "L1", CheckInDate: "2025-10-10", CheckOutDate: "2025-10-12", Platform: "Airbnb",
				Listing: &models.ListingRef{ID: "L1", Code: "101"}},
			{ID: "b2", ListingID: "L2", CheckInDate: "2025-10-20", CheckOutDate: "2025-10-22", Platform: "Booking.com"},
		},
		ListingsMap: map[string]string{"L1": "101", "L2": "102"},
		Generation:  gen,
	}
}

func TestViews_DashboardMemoizedPerGenerationAndDay(t *testing.T) {
	src := &staticSource{ds: viewDataset(1)}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 10, 10, 8, 0, 0, 0, time.Local))
	v := NewViews(src, config.DefaultPlatforms(), clock)

	first := v.Dashboard()
	require.Len(t, first.WeekData, WeekDays)
	assert.Len(t, first.OccupancyTrend, TrendDays)
	assert.Equal(t, []string{"102"}, first.AvailableUnits)
	assert.Same(t, first, v.Dashboard())

	clock.Advance(time.Hour)
	assert.Same(t, first, v.Dashboard(), "same day reuses the result")

	src.ds = viewDataset(2)
	second := v.Dashboard()
	assert.NotSame(t, first, second)

	clock.Advance(24 * time.Hour)
	third := v.Dashboard()
	assert.NotSame(t, second, third)
	assert.Equal(t, "2025-10-11", third.WeekData[0].Date)
}

func TestViews_EmptyDataset(t *testing.T) {
	v := NewViews(&staticSource{}, config.DefaultPlatforms(), clockwork.NewFakeClock())

	d := v.Dashboard()
	assert.Empty(t, d.WeekData)
	assert.NotNil(t, d.AvailableUnits)
	assert.Equal(t, models.OccupancyStats{}, d.OccupancyStats)
	assert.Empty(t, v.Calendar().Units)
}

func TestViews_CalendarMemoized(t *testing.T) {
	src := &staticSource{ds: viewDataset(1)}
	v := NewViews(src, config.DefaultPlatforms(), clockwork.NewFakeClock())

	c := v.Calendar()
	require.Len(t, c.Units, 2)
	assert.Equal(t, "101", c.Units[0].Code)
	assert.Equal(t, "102", c.Units[1].Code)
	assert.Same(t, c, v.Calendar())

	src.ds = viewDataset(3)
	assert.NotSame(t, c, v.Calendar())
}
