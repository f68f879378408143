package models

type GuestStatus string

const (
	GuestStatusCheckin  GuestStatus = "checkin"
	GuestStatusCheckout GuestStatus = "checkout"
	GuestStatusStaying  GuestStatus = "staying"
	GuestStatusNone     GuestStatus = "none"
)

// PlatformImage is the display data for a booking channel.
type PlatformImage struct {
	Name      string `json:"name" yaml:"name"`
	ImagePath string `json:"imagePath" yaml:"image_path"`
	Alt       string `json:"alt" yaml:"alt"`
}

type Guest struct {
	ID            string      `json:"id"`
	Code          string      `json:"code"`
	Unit          string      `json:"unit"`
	UnitCode      string      `json:"unitCode"`
	Status        GuestStatus `json:"status"`
	GuestName     string      `json:"guestName"`
	CheckInDate   string      `json:"checkInDate"`
	CheckInTime   string      `json:"checkInTime,omitempty"`
	CheckOutDate  string      `json:"checkOutDate"`
	CheckOutTime  string      `json:"checkOutTime,omitempty"`
	Nights        int         `json:"nights"`
	GuestCount    int         `json:"guestCount"`
	Platform      string      `json:"platform"`
	PlatformImage string      `json:"platformImage"`
}

type DayBucket struct {
	Date       string  `json:"date"`
	DayOfWeek  string  `json:"dayOfWeek"`
	DayOfMonth int     `json:"dayOfMonth"`
	Month      string  `json:"month"`
	Guests     []Guest `json:"guests"`
}

type OccupancyStats struct {
	Available int `json:"available"`
	Occupied  int `json:"occupied"`
	Total     int `json:"total"`
}

type ReservationOrigin struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

type TrendPoint struct {
	Date string `json:"date"`
	Rate int    `json:"rate"`
}

type ReservationType string

const (
	ReservationReserved ReservationType = "reserved"
	ReservationBlocked  ReservationType = "blocked"
)

type CalendarReservation struct {
	ID            string          `json:"id"`
	BookingID     string          `json:"bookingId"`
	ApartmentCode string          `json:"apartmentCode"`
	GuestName     string          `json:"guestName"`
	Type          ReservationType `json:"type"`
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
	Platform      string          `json:"platform"`
	PlatformImage string          `json:"platformImage"`
	Nights        int             `json:"nights"`
	GuestCount    int             `json:"guestCount"`
	CheckInTime   string          `json:"checkInTime,omitempty"`
	CheckOutTime  string          `json:"checkOutTime,omitempty"`
}

type CalendarUnit struct {
	ID           string                `json:"id"`
	Code         string                `json:"code"`
	Reservations []CalendarReservation `json:"reservations"`
}
