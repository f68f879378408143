package models

// SnapshotVersion is the schema version written by this build.
const SnapshotVersion = 2

// Snapshot is the persisted copy of the booking set used for instant cold start.
// Timestamps are epoch milliseconds.
type Snapshot struct {
	Version       int         `json:"version"`
	Bookings      []Booking   `json:"bookings"`
	ListingsMap   [][2]string `json:"listingsMap"`
	Timestamp     int64       `json:"timestamp"`
	LastFetchTime int64       `json:"lastFetchTime"`
}

// ListingCodes converts the serialized pair list back into a lookup map.
func (s *Snapshot) ListingCodes() map[string]string {
	m := make(map[string]string, len(s.ListingsMap))
	for _, pair := range s.ListingsMap {
		m[pair[0]] = pair[1]
	}
	return m
}
