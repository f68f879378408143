package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"stays_observer/analytics"
	"stays_observer/config"
	"stays_observer/identity"
	"stays_observer/models"
	"stays_observer/storage"
)

type State string

const (
	StateCold       State = "cold"
	StateHydrating  State = "hydrating"
	StateReady      State = "ready"
	StateError      State = "error"
	StateRefreshing State = "refreshing"
)

const DefaultFreshness = 5 * time.Minute

type BookingFetcher interface {
	GetAllBookings(ctx context.Context, from, to string, dateType models.DateType) ([]models.Booking, error)
}

type Enricher interface {
	EnrichBookingsWithDetails(ctx context.Context, basic []models.Booking) ([]models.Booking, EnrichmentStats)
	ResolveListings(ctx context.Context, ids []string) map[string]*models.Listing
}

// Dataset is one immutable generation of the booking set. It is replaced
// wholesale on every successful refresh and never mutated.
type Dataset struct {
	Bookings      []models.Booking
	ListingsMap   map[string]string
	LastFetchTime int64
	Generation    uint64
	Fingerprint   string
}

func (d *Dataset) ListingPairs() [][2]string {
	pairs := make([][2]string, 0, len(d.ListingsMap))
	for id, code := range d.ListingsMap {
		pairs = append(pairs, [2]string{id, code})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	return pairs
}

type Status struct {
	State         State  `json:"state"`
	Loading       bool   `json:"loading"`
	Refreshing    bool   `json:"refreshing"`
	Error         string `json:"error,omitempty"`
	ConfigValid   bool   `json:"configValid"`
	LastFetchTime *int64 `json:"lastFetchTime"`
	BookingsCount int    `json:"bookingsCount"`
	ListingsCount int    `json:"listingsCount"`
}

type RefreshOptions struct {
	Force   bool
	Trigger string
}

type DataStoreOptions struct {
	DaysBack   int
	DaysAhead  int
	Freshness  time.Duration
	ListingIDs []string
	// ConfigErr, when set, keeps the store from ever calling upstream.
	ConfigErr error
}

// DataStore owns the canonical booking set. Refreshes are shared: concurrent
// callers wait on the one in flight, which runs to completion even if every
// caller stops waiting.
type DataStore struct {
	fetcher   BookingFetcher
	enricher  Enricher
	snapshots *storage.SnapshotStore
	sinks     []storage.SnapshotSink
	runs      *RunLog
	clock     clockwork.Clock
	log       *zap.SugaredLogger
	opts      DataStoreOptions

	group singleflight.Group

	mu       sync.RWMutex
	data     *Dataset
	state    State
	lastErr  string
	fetching bool
	gen      uint64
}

func NewDataStore(fetcher BookingFetcher, enricher Enricher, snapshots *storage.SnapshotStore, runs *RunLog, clock clockwork.Clock, logger *zap.SugaredLogger, opts DataStoreOptions) *DataStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if runs == nil {
		runs = NewRunLog(nil, logger)
	}
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	s := &DataStore{
		fetcher:   fetcher,
		enricher:  enricher,
		snapshots: snapshots,
		runs:      runs,
		clock:     clock,
		log:       logger,
		opts:      opts,
		state:     StateCold,
	}
	if opts.ConfigErr != nil {
		s.state = StateError
		s.lastErr = UserMessage(opts.ConfigErr)
	}
	return s
}

// AddSink registers a consumer notified after each snapshot is persisted.
func (s *DataStore) AddSink(sink storage.SnapshotSink) {
	s.sinks = append(s.sinks, sink)
}

// Start hydrates from the persisted snapshot and then refreshes: in the
// background when the snapshot was usable, otherwise blocking.
func (s *DataStore) Start(ctx context.Context) error {
	if s.opts.ConfigErr != nil {
		s.setError(s.opts.ConfigErr)
		s.log.Errorw("configuration invalid, upstream disabled", "error", s.opts.ConfigErr)
		return nil
	}

	if s.hydrate(ctx) {
		go func() {
			if err := s.Refresh(context.WithoutCancel(ctx), RefreshOptions{Force: true, Trigger: "startup"}); err != nil {
				s.log.Warnw("background refresh failed", "error", err)
			}
		}()
		return nil
	}

	return s.Refresh(ctx, RefreshOptions{Force: true, Trigger: "startup"})
}

func (s *DataStore) hydrate(ctx context.Context) bool {
	if s.snapshots == nil {
		return false
	}
	snap, err := s.snapshots.Load(ctx)
	if err != nil {
		s.log.Warnw("snapshot unavailable", "error", err)
		return false
	}
	if snap == nil {
		return false
	}

	s.mu.Lock()
	s.gen++
	s.data = &Dataset{
		Bookings:      snap.Bookings,
		ListingsMap:   snap.ListingCodes(),
		LastFetchTime: snap.LastFetchTime,
		Generation:    s.gen,
		Fingerprint:   identity.DatasetFingerprint(snap.Bookings, snap.LastFetchTime),
	}
	s.state = StateHydrating
	s.mu.Unlock()

	s.log.Infow("hydrated from snapshot",
		"bookings", len(snap.Bookings),
		"listings", len(snap.ListingsMap),
		"age", s.clock.Since(time.UnixMilli(snap.Timestamp)).Round(time.Second))
	return true
}

// Refresh fetches and enriches a new booking set. A non-forced call within
// the freshness window returns immediately.
func (s *DataStore) Refresh(ctx context.Context, opts RefreshOptions) error {
	if s.opts.ConfigErr != nil {
		s.setError(s.opts.ConfigErr)
		return s.opts.ConfigErr
	}
	if !opts.Force && s.isFresh() {
		s.log.Debugw("using cached booking data", "trigger", opts.Trigger)
		return nil
	}

	ch := s.group.DoChan("refresh", func() (any, error) {
		return nil, s.doRefresh(context.WithoutCancel(ctx), opts.Trigger)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DataStore) isFresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil || s.data.LastFetchTime == 0 {
		return false
	}
	age := s.clock.Now().Sub(time.UnixMilli(s.data.LastFetchTime))
	return age < s.opts.Freshness
}

func (s *DataStore) doRefresh(ctx context.Context, trigger string) error {
	s.mu.Lock()
	s.fetching = true
	s.lastErr = ""
	if s.data != nil {
		s.state = StateRefreshing
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.fetching = false
		s.mu.Unlock()
	}()

	now := s.clock.Now()
	run := s.runs.Begin(trigger, now)

	from, to := analytics.FetchWindow(now, s.opts.DaysBack, s.opts.DaysAhead)
	basic, err := s.fetcher.GetAllBookings(ctx, from, to, models.DateTypeIncluded)
	if err != nil {
		err = fmt.Errorf("fetch bookings: %w", err)
		s.fail(run, err)
		return err
	}
	run.BookingsFetched = len(basic)
	s.runs.Write(models.LogLevelInfo, fmt.Sprintf("fetched %d bookings from %s to %s", len(basic), from, to))

	enriched, stats := s.enricher.EnrichBookingsWithDetails(ctx, basic)
	run.BookingsEnriched = stats.DetailsFetched
	run.ErrorsCount = stats.Failures()

	listings := listingCodes(enriched)
	if missing := s.missingAllowListed(enriched); len(missing) > 0 {
		resolved := s.enricher.ResolveListings(ctx, missing)
		for _, id := range missing {
			if l, ok := resolved[id]; ok {
				listings[id] = l.Code
			} else {
				listings[id] = id
			}
		}
	}
	run.ListingsResolved = len(listings)

	fetchedAt := s.clock.Now().UnixMilli()
	s.mu.Lock()
	s.gen++
	ds := &Dataset{
		Bookings:      enriched,
		ListingsMap:   listings,
		LastFetchTime: fetchedAt,
		Generation:    s.gen,
		Fingerprint:   identity.DatasetFingerprint(enriched, fetchedAt),
	}
	s.data = ds
	s.state = StateReady
	s.lastErr = ""
	s.mu.Unlock()

	s.persist(ctx, ds)
	s.runs.Finish(run, s.clock.Now(), nil)
	s.log.Infow("refresh complete",
		"trigger", trigger,
		"bookings", len(enriched),
		"listings", len(listings),
		"failures", stats.Failures())
	return nil
}

func (s *DataStore) fail(run *models.RefreshRun, err error) {
	s.setError(err)
	s.runs.Write(models.LogLevelError, err.Error())
	s.runs.Finish(run, s.clock.Now(), err)
	s.log.Errorw("refresh failed", "trigger", run.Trigger, "error", err)
}

func (s *DataStore) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateError
	s.lastErr = UserMessage(err)
}

func (s *DataStore) persist(ctx context.Context, ds *Dataset) {
	if s.snapshots == nil {
		return
	}
	snap := &models.Snapshot{
		Bookings:      ds.Bookings,
		ListingsMap:   ds.ListingPairs(),
		Timestamp:     s.clock.Now().UnixMilli(),
		LastFetchTime: ds.LastFetchTime,
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		s.log.Warnw("failed to persist snapshot", "error", err)
		return
	}
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, snap); err != nil {
			s.log.Warnw("snapshot sink failed", "sink", fmt.Sprintf("%T", sink), "error", err)
			s.runs.Write(models.LogLevelWarn, "snapshot sink: "+err.Error())
		}
	}
}

func (s *DataStore) missingAllowListed(bookings []models.Booking) []string {
	if len(s.opts.ListingIDs) == 0 {
		return nil
	}
	referenced := make(map[string]bool, len(bookings))
	for _, b := range bookings {
		referenced[b.ListingID] = true
	}
	var missing []string
	seen := make(map[string]bool)
	for _, id := range s.opts.ListingIDs {
		if !referenced[id] && !seen[id] {
			seen[id] = true
			missing = append(missing, id)
		}
	}
	return missing
}

func listingCodes(bookings []models.Booking) map[string]string {
	codes := make(map[string]string)
	for _, b := range bookings {
		if b.ListingID != "" && b.Listing != nil && b.Listing.Code != "" {
			codes[b.ListingID] = b.Listing.Code
		}
	}
	return codes
}

// Snapshot returns the current dataset, or nil before the first load.
func (s *DataStore) Snapshot() *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

func (s *DataStore) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:       s.state,
		Loading:     s.fetching && s.data == nil,
		Refreshing:  s.fetching,
		Error:       s.lastErr,
		ConfigValid: s.opts.ConfigErr == nil,
	}
	if s.data != nil {
		last := s.data.LastFetchTime
		st.LastFetchTime = &last
		st.BookingsCount = len(s.data.Bookings)
		st.ListingsCount = len(s.data.ListingsMap)
	}
	return st
}

// UserMessage renders an error for display on the kiosk.
func UserMessage(err error) string {
	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		vars := append(append([]string{}, cfgErr.Missing...), cfgErr.Invalid...)
		return "Configuração inválida. Variáveis faltando: " + strings.Join(vars, ", ")
	}
	return err.Error()
}
