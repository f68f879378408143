package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stays_observer/analytics"
	"stays_observer/models"
	"stays_observer/services"
)

type Handler struct {
	store  *services.DataStore
	views  *services.Views
	health *services.HealthService
	log    *zap.SugaredLogger
}

func NewHandler(store *services.DataStore, views *services.Views, health *services.HealthService, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{store: store, views: views, health: health, log: logger}
}

type bookingsResponse struct {
	Bookings      []models.Booking `json:"bookings"`
	ListingsMap   [][2]string      `json:"listingsMap"`
	LastFetchTime *int64           `json:"lastFetchTime"`
}

// requireConfig answers every data endpoint with the configuration error
// while the upstream credentials are unusable.
func (h *Handler) requireConfig(c *gin.Context) {
	st := h.store.Status()
	if !st.ConfigValid {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, st)
		return
	}
	c.Next()
}

func (h *Handler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Status())
}

func (h *Handler) Bookings(c *gin.Context) {
	ds := h.store.Snapshot()
	if ds == nil {
		c.JSON(http.StatusOK, bookingsResponse{Bookings: []models.Booking{}, ListingsMap: [][2]string{}})
		return
	}
	if notModified(c, ds.Fingerprint) {
		return
	}
	last := ds.LastFetchTime
	c.JSON(http.StatusOK, bookingsResponse{
		Bookings:      ds.Bookings,
		ListingsMap:   ds.ListingPairs(),
		LastFetchTime: &last,
	})
}

func (h *Handler) Dashboard(c *gin.Context) {
	if ds := h.store.Snapshot(); ds != nil {
		// The dashboard also depends on the local day.
		if notModified(c, ds.Fingerprint+"-"+analytics.DayKey(h.views.Now())) {
			return
		}
	}
	c.JSON(http.StatusOK, h.views.Dashboard())
}

func (h *Handler) Calendar(c *gin.Context) {
	if ds := h.store.Snapshot(); ds != nil && notModified(c, ds.Fingerprint) {
		return
	}
	c.JSON(http.StatusOK, h.views.Calendar())
}

// Refresh runs a forced refresh. A failed refresh still answers with the
// retained state and the error message.
func (h *Handler) Refresh(c *gin.Context) {
	if err := h.store.Refresh(c.Request.Context(), services.RefreshOptions{Force: true, Trigger: "api"}); err != nil {
		h.log.Warnw("manual refresh failed", "error", err)
		c.JSON(http.StatusAccepted, h.store.Status())
		return
	}
	c.JSON(http.StatusOK, h.store.Status())
}

func (h *Handler) Health(c *gin.Context) {
	report := h.health.Check(c.Request.Context())
	code := http.StatusOK
	if report.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}

// notModified sets the ETag and answers 304 when the client already holds it.
func notModified(c *gin.Context, tag string) bool {
	etag := `"` + tag + `"`
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}
