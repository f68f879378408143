package stays

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"stays_observer/identity"
	"stays_observer/models"
)

const (
	NoGuestName    = "Sem nome"
	DirectPlatform = "Direto"
)

// guestShape tags the forms guestsDetails arrives in.
type guestShape int

const (
	guestsNone guestShape = iota
	guestsList
	guestsFlat
)

func detectGuestShape(details gjson.Result) guestShape {
	if list := details.Get("list"); list.IsArray() && len(list.Array()) > 0 {
		return guestsList
	}
	if details.Get("name").String() != "" {
		return guestsFlat
	}
	return guestsNone
}

func guestName(details gjson.Result) string {
	switch detectGuestShape(details) {
	case guestsList:
		list := details.Get("list").Array()
		for _, g := range list {
			if g.Get("primary").Bool() && g.Get("name").String() != "" {
				return g.Get("name").String()
			}
		}
		for _, g := range list {
			if name := g.Get("name").String(); name != "" {
				return name
			}
		}
		if name := details.Get("name").String(); name != "" {
			return name
		}
	case guestsFlat:
		return details.Get("name").String()
	}
	return NoGuestName
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// NormalizeBooking resolves every known reservation payload shape into the
// canonical booking record.
func NormalizeBooking(raw gjson.Result) models.Booking {
	stats := raw.Get("stats")
	b := models.Booking{
		ID:           raw.Get("_id").String(),
		Code:         raw.Get("id").String(),
		Kind:         models.BookingKind(raw.Get("type").String()),
		Status:       raw.Get("status").String(),
		CreationDate: raw.Get("creationDate").String(),
		CheckInDate:  raw.Get("checkInDate").String(),
		CheckInTime:  raw.Get("checkInTime").String(),
		CheckOutDate: raw.Get("checkOutDate").String(),
		CheckOutTime: raw.Get("checkOutTime").String(),
		ListingID:    raw.Get("_idlisting").String(),
		ClientID:     raw.Get("_idclient").String(),
		Adults:       int(stats.Get("adults").Int()),
		Children:     int(stats.Get("children").Int()),
		Babies:       int(stats.Get("babies").Int()),
		Channel:      raw.Get("channelName").String(),
		Source:       raw.Get("source").String(),
		GuestName:    guestName(raw.Get("guestsDetails")),
	}

	if b.ID == "" {
		b.ID = b.Code
	}
	if b.Kind == "" {
		b.Kind = models.BookingKindNormal
	}

	b.Platform = firstNonEmpty(raw.Get("partner.name").String(), b.Channel, b.Source, DirectPlatform)

	b.GuestCount = int(raw.Get("guests").Int())
	if b.GuestCount <= 0 {
		b.GuestCount = b.Adults + b.Children + b.Babies
	}

	b.Nights = int(stats.Get("nights").Int())
	if b.Nights <= 0 {
		b.Nights = models.CalculateNights(b.CheckInDate, b.CheckOutDate)
	}

	if price := raw.Get("price"); price.IsObject() {
		b.Price = &models.Price{
			Currency:        price.Get("currency").String(),
			Value:           price.Get("value").Float(),
			Cleaning:        price.Get("cleaning").Float(),
			SecurityDeposit: price.Get("securityDeposit").Float(),
			Extras:          price.Get("extras").Float(),
		}
	}
	b.PricePerNight = stats.Get("pricePerNight").Float()

	if listing := raw.Get("listing"); listing.IsObject() {
		internal := listing.Get("internalName").String()
		b.Listing = &models.ListingRef{
			ID:           firstNonEmpty(listing.Get("_id").String(), b.ListingID),
			InternalName: internal,
			Code:         identity.ListingCode(internal, b.ListingID),
			Name:         listing.Get("name").String(),
		}
	}

	return b
}

var addressParts = []string{"street", "streetNumber", "complement", "neighborhood", "city", "state", "countryCode"}

// NormalizeListing resolves a content payload. fallbackID is used when the
// payload carries no id.
func NormalizeListing(raw gjson.Result, fallbackID string) models.Listing {
	l := models.Listing{
		ID:           firstNonEmpty(raw.Get("_id").String(), fallbackID),
		ShortID:      raw.Get("id").String(),
		InternalName: raw.Get("internalName").String(),
		Name:         raw.Get("name").String(),
	}
	l.Code = identity.ListingCode(l.InternalName, l.ID)

	if l.Name == "" {
		l.Name = title(raw.Get("_mstitle"))
	}

	addr := raw.Get("address")
	switch {
	case addr.Type == gjson.String:
		l.Address = addr.String()
	case addr.IsObject():
		var parts []string
		for _, key := range addressParts {
			if v := strings.TrimSpace(addr.Get(key).String()); v != "" {
				parts = append(parts, v)
			}
		}
		l.Address = strings.Join(parts, ", ")
	}

	return l
}

// title picks a display title from the multi-language map, preferring
// Portuguese then English.
func title(mstitle gjson.Result) string {
	if !mstitle.IsObject() {
		return ""
	}
	for _, lang := range []string{"pt_BR", "en_US"} {
		if v := mstitle.Get(lang).String(); v != "" {
			return v
		}
	}
	titles := mstitle.Map()
	keys := make([]string, 0, len(titles))
	for k := range titles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := titles[k].String(); v != "" {
			return v
		}
	}
	return ""
}
