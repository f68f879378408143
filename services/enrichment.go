package services

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"stays_observer/models"
	"stays_observer/workers"
)

type EnrichmentOptions struct {
	BatchSize    int
	DetailDelay  time.Duration
	ListingDelay time.Duration
}

func DefaultEnrichmentOptions() EnrichmentOptions {
	return EnrichmentOptions{
		BatchSize:    workers.DefaultBatchSize,
		DetailDelay:  workers.DefaultDetailDelay,
		ListingDelay: workers.DefaultListingDelay,
	}
}

// EnrichmentStats summarizes one pass for run history.
type EnrichmentStats struct {
	Input            int
	DetailsFetched   int
	ListingsWanted   int
	ListingsResolved int
}

func (s EnrichmentStats) Failures() int {
	return (s.Input - s.DetailsFetched) + (s.ListingsWanted - s.ListingsResolved)
}

// EnrichmentService merges booking details and listing metadata onto the
// terse records returned by the reservations endpoint.
type EnrichmentService struct {
	details  *workers.DetailFetcher
	listings *workers.ListingResolver
	opts     EnrichmentOptions
	log      *zap.SugaredLogger
}

func NewEnrichmentService(details *workers.DetailFetcher, listings *workers.ListingResolver, opts EnrichmentOptions, logger *zap.SugaredLogger) *EnrichmentService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &EnrichmentService{details: details, listings: listings, opts: opts, log: logger}
}

// EnrichBookingsWithDetails never drops a booking: the output has the same
// length and ids as basic, in the same order.
func (s *EnrichmentService) EnrichBookingsWithDetails(ctx context.Context, basic []models.Booking) ([]models.Booking, EnrichmentStats) {
	stats := EnrichmentStats{Input: len(basic)}
	defer func() {
		s.details.Cleanup()
		s.listings.Cleanup()
	}()

	// Phase 1: details
	codes := make([]string, 0, len(basic))
	for _, b := range basic {
		codes = append(codes, detailKey(b))
	}
	details := s.details.FetchBookingDetailsInBatches(ctx, codes, s.opts.BatchSize, s.opts.DetailDelay)

	merged := make([]models.Booking, len(basic))
	for i, b := range basic {
		d := details[detailKey(b)]
		if d != nil {
			stats.DetailsFetched++
		}
		merged[i] = mergeDetail(b, d)
	}

	// Phase 2: listings
	ids := distinctListingIDs(merged)
	stats.ListingsWanted = len(ids)
	listings := s.listings.ResolveInBatches(ctx, ids, s.opts.BatchSize, s.opts.ListingDelay)
	stats.ListingsResolved = len(listings)

	// Phase 3: attach
	for i := range merged {
		if l, ok := listings[merged[i].ListingID]; ok {
			merged[i].Listing = l.Ref()
		}
	}

	s.log.Infow("enrichment complete",
		"bookings", stats.Input,
		"details", stats.DetailsFetched,
		"listings", stats.ListingsResolved,
		"listings_wanted", stats.ListingsWanted)
	return merged, stats
}

// ResolveListings looks up ids through the listing cache, used for the
// configured allow-list.
func (s *EnrichmentService) ResolveListings(ctx context.Context, ids []string) map[string]*models.Listing {
	return s.listings.ResolveInBatches(ctx, ids, s.opts.BatchSize, s.opts.ListingDelay)
}

func detailKey(b models.Booking) string {
	return firstNonEmpty(b.Code, b.ID)
}

// mergeDetail replaces basic with detail while keeping the basic identity, so
// the id set is stable.
func mergeDetail(basic models.Booking, detail *models.Booking) models.Booking {
	if detail == nil {
		return basic
	}
	merged := *detail
	merged.ID = basic.ID
	merged.Code = basic.Code
	if merged.ListingID == "" {
		merged.ListingID = basic.ListingID
	}
	return merged
}

func distinctListingIDs(bookings []models.Booking) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, b := range bookings {
		if b.ListingID != "" && !seen[b.ListingID] {
			seen[b.ListingID] = true
			ids = append(ids, b.ListingID)
		}
	}
	sort.Strings(ids)
	return ids
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
