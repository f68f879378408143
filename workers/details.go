package workers

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"stays_observer/cache"
	"stays_observer/models"
)

const DefaultDetailDelay = 500 * time.Millisecond

type BookingDetailSource interface {
	GetBookingDetails(ctx context.Context, code string) (*models.Booking, error)
}

// DetailFetcher resolves full reservation records through a TTL cache.
type DetailFetcher struct {
	source BookingDetailSource
	cache  *cache.TTLCache[string, *models.Booking]
	clock  clockwork.Clock
	log    *zap.SugaredLogger
	logFn  LogFunc
}

func NewDetailFetcher(source BookingDetailSource, clock clockwork.Clock, logger *zap.SugaredLogger, logFn LogFunc) *DetailFetcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if logFn == nil {
		logFn = NoOpLogger
	}
	return &DetailFetcher{
		source: source,
		cache:  cache.NewTTLCache[string, *models.Booking](cache.DefaultTTL, clock),
		clock:  clock,
		log:    logger,
		logFn:  logFn,
	}
}

func (f *DetailFetcher) GetDetails(ctx context.Context, code string) (*models.Booking, error) {
	return f.cache.GetOrFetch(ctx, code, f.source.GetBookingDetails)
}

// FetchBookingDetailsInBatches returns the details that could be fetched,
// keyed by the requested code; failed codes are logged and left out.
func (f *DetailFetcher) FetchBookingDetailsInBatches(ctx context.Context, codes []string, batchSize int, delay time.Duration) map[string]*models.Booking {
	type fetchedDetail struct {
		code    string
		booking *models.Booking
	}
	fetched := RunBatches(ctx, f.clock, codes, batchSize, delay, func(ctx context.Context, code string) (fetchedDetail, bool) {
		b, err := f.GetDetails(ctx, code)
		if err != nil {
			f.log.Warnw("booking details fetch failed", "code", code, "error", err)
			f.logFn(models.LogLevelWarn, "details", "fetch "+code+": "+err.Error())
			return fetchedDetail{}, false
		}
		return fetchedDetail{code: code, booking: b}, true
	})

	out := make(map[string]*models.Booking, len(fetched))
	for _, d := range fetched {
		out[d.code] = d.booking
	}
	return out
}

func (f *DetailFetcher) Cleanup() int {
	return f.cache.Cleanup()
}

func (f *DetailFetcher) CacheSize() int {
	return f.cache.Len()
}
