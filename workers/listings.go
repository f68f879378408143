package workers

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"stays_observer/cache"
	"stays_observer/models"
)

const DefaultListingDelay = 200 * time.Millisecond

type ListingSource interface {
	GetListing(ctx context.Context, id string) (*models.Listing, error)
}

// ListingResolver resolves listing metadata through a TTL cache. Failures
// yield nil rather than an error.
type ListingResolver struct {
	source ListingSource
	cache  *cache.TTLCache[string, *models.Listing]
	clock  clockwork.Clock
	log    *zap.SugaredLogger
	logFn  LogFunc
}

func NewListingResolver(source ListingSource, clock clockwork.Clock, logger *zap.SugaredLogger, logFn LogFunc) *ListingResolver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if logFn == nil {
		logFn = NoOpLogger
	}
	return &ListingResolver{
		source: source,
		cache:  cache.NewTTLCache[string, *models.Listing](cache.DefaultTTL, clock),
		clock:  clock,
		log:    logger,
		logFn:  logFn,
	}
}

func (r *ListingResolver) GetListing(ctx context.Context, id string) *models.Listing {
	l, err := r.cache.GetOrFetch(ctx, id, r.source.GetListing)
	if err != nil {
		r.log.Warnw("listing fetch failed", "listing", id, "error", err)
		r.logFn(models.LogLevelWarn, "listings", "fetch "+id+": "+err.Error())
		return nil
	}
	return l
}

// ResolveInBatches returns the listings that resolved, keyed by id.
func (r *ListingResolver) ResolveInBatches(ctx context.Context, ids []string, batchSize int, delay time.Duration) map[string]*models.Listing {
	type resolvedListing struct {
		id      string
		listing *models.Listing
	}
	resolved := RunBatches(ctx, r.clock, ids, batchSize, delay, func(ctx context.Context, id string) (resolvedListing, bool) {
		l := r.GetListing(ctx, id)
		return resolvedListing{id: id, listing: l}, l != nil
	})

	out := make(map[string]*models.Listing, len(resolved))
	for _, res := range resolved {
		out[res.id] = res.listing
	}
	return out
}

func (r *ListingResolver) Cleanup() int {
	return r.cache.Cleanup()
}

func (r *ListingResolver) CacheSize() int {
	return r.cache.Len()
}
