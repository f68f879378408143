package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthReport struct {
	Status       string            `json:"status"`
	State        State             `json:"state"`
	LastFetchAge *float64          `json:"lastFetchAgeSeconds"`
	Backends     map[string]string `json:"backends"`
}

// HealthService reports store state and backend reachability.
type HealthService struct {
	store    *DataStore
	backends map[string]Pinger
	clock    clockwork.Clock
	staleAge time.Duration
}

func NewHealthService(store *DataStore, clock clockwork.Clock) *HealthService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HealthService{
		store:    store,
		backends: make(map[string]Pinger),
		clock:    clock,
		staleAge: 2 * time.Hour,
	}
}

func (h *HealthService) AddBackend(name string, p Pinger) {
	h.backends[name] = p
}

func (h *HealthService) Check(ctx context.Context) HealthReport {
	st := h.store.Status()
	report := HealthReport{
		Status:   "ok",
		State:    st.State,
		Backends: make(map[string]string, len(h.backends)),
	}

	if st.LastFetchTime != nil {
		age := h.clock.Since(time.UnixMilli(*st.LastFetchTime))
		secs := age.Seconds()
		report.LastFetchAge = &secs
		if age > h.staleAge {
			report.Status = "degraded"
		}
	}
	if st.State == StateError || !st.ConfigValid {
		report.Status = "degraded"
	}

	for name, p := range h.backends {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			report.Backends[name] = err.Error()
			report.Status = "degraded"
			continue
		}
		report.Backends[name] = "ok"
	}
	return report
}
