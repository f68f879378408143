package models

import (
	"math"
	"time"
)

type BookingKind string

const (
	BookingKindNormal      BookingKind = "normal"
	BookingKindProvisional BookingKind = "provisional"
	BookingKindBlocked     BookingKind = "blocked"
)

// DateType selects which booking date the reservations endpoint filters on.
type DateType string

const (
	DateTypeArrival      DateType = "arrival"
	DateTypeDeparture    DateType = "departure"
	DateTypeCreation     DateType = "creation"
	DateTypeCreationOrig DateType = "creationorig"
	DateTypeIncluded     DateType = "included"
)

// DayLayout is the calendar-day format used on the wire and in every view.
const DayLayout = "2006-01-02"

type Price struct {
	Currency        string  `json:"currency,omitempty"`
	Value           float64 `json:"value"`
	Cleaning        float64 `json:"cleaning,omitempty"`
	SecurityDeposit float64 `json:"securityDeposit,omitempty"`
	Extras          float64 `json:"extras,omitempty"`
}

// ListingRef is the denormalized listing copy attached to a booking by enrichment.
type ListingRef struct {
	ID           string `json:"id"`
	InternalName string `json:"internalName,omitempty"`
	Code         string `json:"code"`
	Name         string `json:"name,omitempty"`
	Address      string `json:"address,omitempty"`
}

// Booking is the canonical reservation (or block) record. Upstream payload
// shapes are resolved into these fields once, at ingestion.
type Booking struct {
	ID           string      `json:"id"`
	Code         string      `json:"code"`
	Kind         BookingKind `json:"kind"`
	Status       string      `json:"status,omitempty"`
	CreationDate string      `json:"creationDate,omitempty"`
	CheckInDate  string      `json:"checkInDate"`
	CheckInTime  string      `json:"checkInTime,omitempty"`
	CheckOutDate string      `json:"checkOutDate"`
	CheckOutTime string      `json:"checkOutTime,omitempty"`
	ListingID    string      `json:"listingId"`
	ClientID     string      `json:"clientId,omitempty"`

	GuestName  string `json:"guestName"`
	GuestCount int    `json:"guestCount"`
	Adults     int    `json:"adults"`
	Children   int    `json:"children"`
	Babies     int    `json:"babies"`
	Nights     int    `json:"nights"`

	Price         *Price  `json:"price,omitempty"`
	PricePerNight float64 `json:"pricePerNight,omitempty"`

	Channel  string `json:"channel,omitempty"`
	Source   string `json:"source,omitempty"`
	Platform string `json:"platform"`

	Listing  *ListingRef `json:"listing,omitempty"`
	Detailed bool        `json:"detailed"`
}

// Listing is a rentable unit as returned by the content endpoint.
type Listing struct {
	ID           string `json:"id"`
	ShortID      string `json:"shortId,omitempty"`
	InternalName string `json:"internalName,omitempty"`
	Code         string `json:"code"`
	Name         string `json:"name,omitempty"`
	Address      string `json:"address,omitempty"`
}

// Ref returns the denormalized copy attached to bookings.
func (l *Listing) Ref() *ListingRef {
	return &ListingRef{
		ID:           l.ID,
		InternalName: l.InternalName,
		Code:         l.Code,
		Name:         l.Name,
		Address:      l.Address,
	}
}

// CalculateNights returns ceil((checkOut-checkIn)/1 day), never negative.
// Unparseable dates count as zero nights.
func CalculateNights(checkInDate, checkOutDate string) int {
	in, err := time.Parse(DayLayout, checkInDate)
	if err != nil {
		return 0
	}
	out, err := time.Parse(DayLayout, checkOutDate)
	if err != nil {
		return 0
	}
	days := math.Ceil(out.Sub(in).Hours() / 24)
	if days <= 0 {
		return 0
	}
	return int(days)
}
