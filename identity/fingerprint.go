package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"stays_observer/models"
)

// ListingCode extracts the apartment code from a listing's internal name,
// e.g. "I-VP-455-503 | Vista Park" -> "I-VP-455-503". Falls back to
// fallback when the name yields nothing.
func ListingCode(internalName, fallback string) string {
	code := strings.TrimSpace(strings.SplitN(internalName, "|", 2)[0])
	if code == "" {
		return fallback
	}
	return code
}

// DatasetFingerprint hashes the identity of a booking set so consumers can
// detect changes without diffing. Order of bookings does not matter.
func DatasetFingerprint(bookings []models.Booking, lastFetch int64) string {
	keys := make([]string, len(bookings))
	for i, b := range bookings {
		keys[i] = fmt.Sprintf("%s|%s|%s|%s|%s|%s", b.ID, b.Code, b.CheckInDate, b.CheckOutDate, b.ListingID, b.GuestName)
	}
	sort.Strings(keys)

	h := sha256.New()
	fmt.Fprintf(h, "%d\n", lastFetch)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'\n'})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
