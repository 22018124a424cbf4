package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-weather-alerts/internal/ingestion"
	"github.com/mr1hm/go-weather-alerts/internal/models"
	"github.com/mr1hm/go-weather-alerts/internal/stream"
)

type AlertSource interface {
	ActiveAlerts(ctx context.Context) []models.Alert
}

type DestinationLister interface {
	All() []models.Destination
	Len() int
}

type Poller interface {
	State() ingestion.State
	Interval() time.Duration
	LastCycle() ingestion.CycleReport
}

type Counter interface {
	Len() int
}

type Handler struct {
	zone        string
	alerts      AlertSource
	dests       DestinationLister
	seen        Counter
	poller      Poller
	broadcaster *stream.Broadcaster
}

func NewHandler(zone string, alerts AlertSource, dests DestinationLister, seen Counter, poller Poller, broadcaster *stream.Broadcaster) *Handler {
	return &Handler{
		zone:        zone,
		alerts:      alerts,
		dests:       dests,
		seen:        seen,
		poller:      poller,
		broadcaster: broadcaster,
	}
}

// RegisterRoutes mounts the routes. middleware only wraps the /api group.
func (h *Handler) RegisterRoutes(r *gin.Engine, middleware ...gin.HandlerFunc) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware...)
	api.GET("/status", h.status)
	api.GET("/alerts", h.getAlerts)
	api.GET("/destinations", h.getDestinations)
	api.GET("/stream", h.stream)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) status(c *gin.Context) {
	resp := gin.H{
		"zone":         h.zone,
		"destinations": h.dests.Len(),
		"seen_alerts":  h.seen.Len(),
	}
	if h.poller != nil {
		resp["state"] = h.poller.State().String()
		resp["interval_seconds"] = int(h.poller.Interval().Seconds())
		resp["last_cycle"] = h.poller.LastCycle()
	}
	if h.broadcaster != nil {
		resp["stream_subscribers"] = h.broadcaster.SubscriberCount()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getAlerts(c *gin.Context) {
	alerts := h.alerts.ActiveAlerts(c.Request.Context())

	if s := c.Query("severity"); s != "" {
		want := models.ParseSeverity(s)
		filtered := alerts[:0:0]
		for _, a := range alerts {
			if a.Severity == want {
				filtered = append(filtered, a)
			}
		}
		alerts = filtered
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim < len(alerts) {
			alerts = alerts[:lim]
		}
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(alerts))
}

func (h *Handler) getDestinations(c *gin.Context) {
	dests := h.dests.All()
	out := make([]gin.H, 0, len(dests))
	for _, d := range dests {
		out = append(out, gin.H{
			"tenant_id":  d.TenantID,
			"channel_id": strconv.FormatInt(d.ChannelID, 10),
		})
	}
	c.JSON(http.StatusOK, gin.H{"destinations": out, "count": len(out)})
}

// stream sends each delivered alert as a server-sent event until the client
// disconnects or the broadcaster closes.
func (h *Handler) stream(c *gin.Context) {
	if h.broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stream unavailable"})
		return
	}

	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case d, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(eventName(d), d)
			return true
		}
	})
}

func eventName(d *stream.Delivery) string {
	if d.Urgent {
		return "urgent_alert"
	}
	return "alert"
}
