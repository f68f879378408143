package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stays_observer/config"
	"stays_observer/models"
	"stays_observer/storage"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) Ping(context.Context) error { return nil }

type fakeFetcher struct {
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
	err     error
	result  []models.Booking
}

func (f *fakeFetcher) GetAllBookings(ctx context.Context, from, to string, dateType models.DateType) ([]models.Booking, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeEnricher struct {
	listings map[string]*models.Listing
}

func (e *fakeEnricher) EnrichBookingsWithDetails(_ context.Context, basic []models.Booking) ([]models.Booking, EnrichmentStats) {
	out := make([]models.Booking, len(basic))
	for i, b := range basic {
		if l, ok := e.listings[b.ListingID]; ok {
			b.Listing = l.Ref()
		}
		out[i] = b
	}
	return out, EnrichmentStats{Input: len(basic), DetailsFetched: len(basic)}
}

func (e *fakeEnricher) ResolveListings(_ context.Context, ids []string) map[string]*models.Listing {
	out := map[string]*models.Listing{}
	for _, id := range ids {
		if l, ok := e.listings[id]; ok {
			out[id] = l
		}
	}
	return out
}

type recordingSink struct {
	mu    sync.Mutex
	snaps []*models.Snapshot
}

func (s *recordingSink) Publish(_ context.Context, snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return nil
}

func sampleBookings() []models.Booking {
	return []models.Booking{
		{ID: "b1", Code: "AA01", ListingID: "L1", CheckInDate: "2025-10-09", CheckOutDate: "2025-10-12"},
		{ID: "b2", Code: "AA02", ListingID: "L2", CheckInDate: "2025-10-10", CheckOutDate: "2025-10-11"},
	}
}

func sampleEnricher() *fakeEnricher {
	return &fakeEnricher{listings: map[string]*models.Listing{
		"L1": {ID: "L1", Code: "101"},
		"L2": {ID: "L2", Code: "102"},
		"L9": {ID: "L9", Code: "909"},
	}}
}

func newTestStore(t *testing.T, fetcher BookingFetcher, kv storage.SnapshotKV, opts DataStoreOptions) (*DataStore, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 10, 10, 9, 0, 0, 0, time.Local))
	var snaps *storage.SnapshotStore
	if kv != nil {
		snaps = storage.NewSnapshotStore(kv, config.SnapshotKey, nil)
	}
	return NewDataStore(fetcher, sampleEnricher(), snaps, nil, clock, nil, opts), clock
}

func TestDataStore_ColdStartBlocksAndPersists(t *testing.T) {
	kv := newMemKV()
	f := &fakeFetcher{result: sampleBookings()}
	store, _ := newTestStore(t, f, kv, DataStoreOptions{})
	sink := &recordingSink{}
	store.AddSink(sink)

	require.NoError(t, store.Start(context.Background()))

	ds := store.Snapshot()
	require.NotNil(t, ds)
	assert.Len(t, ds.Bookings, 2)
	assert.Equal(t, map[string]string{"L1": "101", "L2": "102"}, ds.ListingsMap)
	assert.Equal(t, StateReady, store.Status().State)
	assert.NotEmpty(t, ds.Fingerprint)

	raw, ok, _ := kv.Get(context.Background(), config.SnapshotKey)
	require.True(t, ok)
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, models.SnapshotVersion, snap.Version)
	assert.Equal(t, ds.LastFetchTime, snap.LastFetchTime)
	assert.Len(t, sink.snaps, 1)
}

func TestDataStore_NonForcedRefreshInsideWindowIsNoOp(t *testing.T) {
	f := &fakeFetcher{result: sampleBookings()}
	store, clock := newTestStore(t, f, nil, DataStoreOptions{})
	ctx := context.Background()

	require.NoError(t, store.Refresh(ctx, RefreshOptions{Trigger: "test"}))
	require.NoError(t, store.Refresh(ctx, RefreshOptions{Trigger: "test"}))
	assert.EqualValues(t, 1, f.calls.Load())

	clock.Advance(4*time.Minute + 59*time.Second)
	require.NoError(t, store.Refresh(ctx, RefreshOptions{Trigger: "test"}))
	assert.EqualValues(t, 1, f.calls.Load())

	require.NoError(t, store.Refresh(ctx, RefreshOptions{Force: true, Trigger: "test"}))
	assert.EqualValues(t, 2, f.calls.Load())

	clock.Advance(5 * time.Minute)
	require.NoError(t, store.Refresh(ctx, RefreshOptions{Trigger: "test"}))
	assert.EqualValues(t, 3, f.calls.Load())
}

func TestDataStore_ConcurrentCallersShareOneFetch(t *testing.T) {
	f := &fakeFetcher{result: sampleBookings(), gate: make(chan struct{}), started: make(chan struct{}, 8)}
	store, _ := newTestStore(t, f, nil, DataStoreOptions{})

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Refresh(context.Background(), RefreshOptions{Force: true, Trigger: "test"})
		}(i)
	}

	<-f.started
	assert.True(t, store.Status().Loading)
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, f.calls.Load())
	assert.False(t, store.Status().Loading)
}

func TestDataStore_CallerGivingUpDoesNotCancelRefresh(t *testing.T) {
	f := &fakeFetcher{result: sampleBookings(), gate: make(chan struct{}), started: make(chan struct{}, 1)}
	store, _ := newTestStore(t, f, nil, DataStoreOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Refresh(ctx, RefreshOptions{Force: true}) }()

	<-f.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(f.gate)
	require.Eventually(t, func() bool { return store.Snapshot() != nil }, time.Second, 5*time.Millisecond)
}

func TestDataStore_ConfigErrorMakesNoCall(t *testing.T) {
	f := &fakeFetcher{result: sampleBookings()}
	cfgErr := &config.ConfigurationError{Missing: []string{"STAYS_CLIENT_ID", "STAYS_CLIENT_SECRET"}}
	store, _ := newTestStore(t, f, nil, DataStoreOptions{ConfigErr: cfgErr})

	require.NoError(t, store.Start(context.Background()))
	err := store.Refresh(context.Background(), RefreshOptions{Force: true})
	assert.ErrorAs(t, err, &cfgErr)

	st := store.Status()
	assert.False(t, st.ConfigValid)
	assert.Equal(t, StateError, st.State)
	assert.Equal(t, "Configuração inválida. Variáveis faltando: STAYS_CLIENT_ID, STAYS_CLIENT_SECRET", st.Error)
	assert.Zero(t, f.calls.Load())
	assert.Nil(t, store.Snapshot())
}

func TestDataStore_FailureRetainsData(t *testing.T) {
	f := &fakeFetcher{result: sampleBookings()}
	store, _ := newTestStore(t, f, nil, DataStoreOptions{})
	ctx := context.Background()

	require.NoError(t, store.Refresh(ctx, RefreshOptions{Force: true}))
	before := store.Snapshot()

	f.err = errors.New("stays API error 503 Service Unavailable")
	err := store.Refresh(ctx, RefreshOptions{Force: true})
	require.Error(t, err)

	assert.Same(t, before, store.Snapshot())
	st := store.Status()
	assert.Equal(t, StateError, st.State)
	assert.Contains(t, st.Error, "503")
	assert.Equal(t, 2, st.BookingsCount)

	f.err = nil
	require.NoError(t, store.Refresh(ctx, RefreshOptions{Force: true}))
	assert.Empty(t, store.Status().Error)
	assert.Greater(t, store.Snapshot().Generation, before.Generation)
}

func TestDataStore_VersionOneSnapshotFallsBackToColdStart(t *testing.T) {
	kv := newMemKV()
	kv.data[config.SnapshotKey] = []byte(`{"version":1,"bookings":[{"id":"old"}],"timestamp":1,"lastFetchTime":1}`)
	f := &fakeFetcher{result: sampleBookings()}
	store, _ := newTestStore(t, f, kv, DataStoreOptions{})

	require.NoError(t, store.Start(context.Background()))
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, "b1", store.Snapshot().Bookings[0].ID)

	raw, ok, _ := kv.Get(context.Background(), config.SnapshotKey)
	require.True(t, ok)
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, models.SnapshotVersion, snap.Version)
}

func TestDataStore_SnapshotHitServesImmediately(t *testing.T) {
	kv := newMemKV()
	cached := models.Snapshot{
		Version:       models.SnapshotVersion,
		Bookings:      []models.Booking{{ID: "cached", ListingID: "L1"}},
		ListingsMap:   [][2]string{{"L1", "101"}},
		Timestamp:     1,
		LastFetchTime: 1,
	}
	raw, _ := json.Marshal(cached)
	kv.data[config.SnapshotKey] = raw

	f := &fakeFetcher{result: sampleBookings(), gate: make(chan struct{}), started: make(chan struct{}, 1)}
	store, _ := newTestStore(t, f, kv, DataStoreOptions{})

	require.NoError(t, store.Start(context.Background()))
	ds := store.Snapshot()
	require.NotNil(t, ds)
	assert.Equal(t, "cached", ds.Bookings[0].ID)
	assert.Equal(t, map[string]string{"L1": "101"}, ds.ListingsMap)
	assert.False(t, store.Status().Loading)

	<-f.started
	assert.Equal(t, StateRefreshing, store.Status().State)
	close(f.gate)
	require.Eventually(t, func() bool { return store.Status().State == StateReady }, time.Second, 5*time.Millisecond)
	assert.Len(t, store.Snapshot().Bookings, 2)
}

func TestDataStore_AllowListedListingsResolvedWithFallback(t *testing.T) {
	f := &fakeFetcher{result: sampleBookings()}
	store, _ := newTestStore(t, f, nil, DataStoreOptions{ListingIDs: []string{"L1", "L9", "L10"}})

	require.NoError(t, store.Refresh(context.Background(), RefreshOptions{Force: true}))
	assert.Equal(t, map[string]string{
		"L1":  "101",
		"L2":  "102",
		"L9":  "909",
		"L10": "L10",
	}, store.Snapshot().ListingsMap)
}

func TestDataset_ListingPairsSorted(t *testing.T) {
	ds := &Dataset{ListingsMap: map[string]string{"b": "2", "a": "1"}}
	assert.Equal(t, [][2]string{{"a", "1"}, {"b", "2"}}, ds.ListingPairs())
}
