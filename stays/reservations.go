package stays

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"stays_observer/models"
)

const (
	PageSize   = 20
	SafetyCap  = 1000
	bookingsEP = "/external/v1/booking/reservations"
)

type BookingQuery struct {
	From     string
	To       string
	DateType models.DateType
	Skip     int
	Limit    int
}

// GetBookings fetches a single page of reservations.
func (c *Client) GetBookings(ctx context.Context, q BookingQuery) ([]models.Booking, error) {
	if q.DateType == "" {
		q.DateType = models.DateTypeIncluded
	}
	if q.Limit <= 0 || q.Limit > PageSize {
		q.Limit = PageSize
	}

	params := url.Values{}
	params.Set("from", q.From)
	params.Set("to", q.To)
	params.Set("dateType", string(q.DateType))
	params.Set("skip", strconv.Itoa(q.Skip))
	params.Set("limit", strconv.Itoa(q.Limit))

	body, err := c.get(ctx, bookingsEP, params)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("reservations: expected array, got %s", parsed.Type)
	}

	var bookings []models.Booking
	parsed.ForEach(func(_, raw gjson.Result) bool {
		bookings = append(bookings, NormalizeBooking(raw))
		return true
	})
	return bookings, nil
}

// GetAllBookings walks every page between from and to. A short page ends the
// walk; more than SafetyCap records are truncated with a warning. Any page
// error aborts the whole call.
func (c *Client) GetAllBookings(ctx context.Context, from, to string, dateType models.DateType) ([]models.Booking, error) {
	var all []models.Booking

	for skip := 0; ; skip += PageSize {
		page, err := c.GetBookings(ctx, BookingQuery{
			From:     from,
			To:       to,
			DateType: dateType,
			Skip:     skip,
			Limit:    PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("skip %d: %w", skip, err)
		}

		all = append(all, page...)
		c.log.Debugw("reservations page", "skip", skip, "count", len(page), "total", len(all))

		if len(page) < PageSize {
			break
		}
		if len(all) >= SafetyCap {
			c.log.Warnw("reached safety limit of bookings", "limit", SafetyCap)
			all = all[:SafetyCap]
			break
		}
	}

	return all, nil
}

// GetBookingDetails fetches the full reservation for a human code or id.
func (c *Client) GetBookingDetails(ctx context.Context, code string) (*models.Booking, error) {
	body, err := c.get(ctx, bookingsEP+"/"+url.PathEscape(code), nil)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("reservation %s: expected object, got %s", code, parsed.Type)
	}

	b := NormalizeBooking(parsed)
	b.Detailed = true
	return &b, nil
}
