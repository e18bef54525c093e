// Package track implements a Server-Sent Events feed of live pointing
// angles. A client names a catalog object and a site; the server propagates
// the object at a fixed cadence, runs the direct ITRS->AltAz and ITRS->HADec
// transforms, and streams the resulting angles.
//
// SSE message format:
//
//	data: {"type":"pointing","t":"2026-03-01T12:00:00Z","azimuth_deg":...}\n\n
//
// The first message on every connection is metadata describing the object.
// Keep-alive comments (":\n\n") are sent between samples to prevent idle
// timeouts.
package track

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/groundside/pointgo/internal/catalog"
	"github.com/groundside/pointgo/internal/ephem"
	"github.com/groundside/pointgo/internal/httputil"
	"github.com/groundside/pointgo/internal/metrics"
	"github.com/groundside/pointgo/internal/transform"
)

// Config holds tracking stream configuration.
type Config struct {
	MaxConcurrentPerIP int           // max concurrent streams per IP
	MaxConcurrent      int           // global stream cap
	KeepaliveInterval  time.Duration // keep-alive ping interval
	TrustProxy         bool          // trust X-Forwarded-For for client IPs
}

// Handler serves SSE tracking connections.
type Handler struct {
	store   *catalog.Store
	config  Config
	limiter *connLimiter
	logger  *slog.Logger
	now     func() time.Time // sample clock, swappable in tests
}

// NewHandler creates a tracking stream handler.
func NewHandler(store *catalog.Store, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		config:  config,
		limiter: newConnLimiter(config.MaxConcurrentPerIP, config.MaxConcurrent),
		logger:  logger,
		now:     time.Now,
	}
}

// HandleTrack serves the SSE pointing stream.
// GET /api/v1/track/{catalog_number}?lat=51.5&lon=0&height=46&interval=1
func (h *Handler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	num, err := strconv.Atoi(r.PathValue("catalog_number"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid catalog number")
		return
	}

	set := h.store.Get()
	if set == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}
	entry, ok := set.Find(num)
	if !ok {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("object %d not in catalog", num))
		return
	}

	site, err := siteFromQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	interval := time.Second
	if v := r.URL.Query().Get("interval"); v != "" {
		sec, err := strconv.ParseFloat(v, 64)
		if err != nil || sec < 0.5 || sec > 60 {
			writeJSONError(w, http.StatusBadRequest, "invalid interval, must be 0.5-60 seconds")
			return
		}
		interval = time.Duration(sec * float64(time.Second))
	}

	prop, err := ephem.NewPropagator(entry)
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("object %d: %v", num, err))
		return
	}

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("track rate limit exceeded", "remote_ip", ip, "current_count", h.limiter.count(ip))
		w.Header().Set("Retry-After", "30")
		writeJSONError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.IncStreamsActive()
	startTime := time.Now()
	h.logger.Info("track connected",
		"remote_ip", ip,
		"catalog_number", num,
		"interval", interval.String(),
	)

	defer func() {
		h.limiter.release(ip)
		metrics.DecStreamsActive()
		h.logger.Info("track disconnected",
			"remote_ip", ip,
			"catalog_number", num,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default write timeout for this long-lived connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{w: w, flusher: flusher, rc: rc, ip: ip, logger: h.logger}

	// Jittered retry interval (3-7s) to spread reconnection storms after a
	// server restart.
	fmt.Fprintf(w, "retry: %d\n\n", 3000+rand.Intn(4000))
	flusher.Flush()

	meta := metadataMessage{
		Type:          "metadata",
		CatalogNumber: entry.CatalogNumber,
		Name:          entry.Name,
		TLEEpoch:      entry.Epoch.UTC().Format(time.RFC3339),
	}
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("track send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			msg, err := h.pointingMessage(prop, site, h.now().UTC())
			if err != nil {
				metrics.IncStreamErrors("propagation_error")
				h.logger.Warn("track propagation error", "remote_ip", ip, "catalog_number", num, "error", err)
				continue
			}
			if err := c.sendJSON(msg); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("track send error", "remote_ip", ip, "error", err)
				return
			}
			keepalive.Reset(h.config.KeepaliveInterval)

		case <-keepalive.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("track keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// pointingMessage propagates the object to t and runs both observed
// transforms for the site.
func (h *Handler) pointingMessage(prop *ephem.Propagator, site *transform.Site, t time.Time) (pointingMessage, error) {
	pos, err := prop.PositionAt(t)
	if err != nil {
		return pointingMessage{}, err
	}

	frame := transform.Frame{Site: site, Obstime: t}
	aa, err := transform.ITRSToAltAz(pos, frame)
	if err != nil {
		return pointingMessage{}, err
	}
	hd, err := transform.ITRSToHADec(pos, frame)
	if err != nil {
		return pointingMessage{}, err
	}

	const radToDeg = 180 / math.Pi
	return pointingMessage{
		Type:        "pointing",
		T:           t.Format(time.RFC3339),
		AzimuthDeg:  aa.AzRad * radToDeg,
		AltitudeDeg: aa.AltRad * radToDeg,
		HAHours:     hd.HARad * 12 / math.Pi,
		DecDeg:      hd.DecRad * radToDeg,
		RangeKm:     aa.DistanceM / 1000,
		Visible:     aa.AltRad > 0,
	}, nil
}

// siteFromQuery builds a Site from lat/lon/height query parameters.
func siteFromQuery(r *http.Request) (*transform.Site, error) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid or missing lat parameter")
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -360 || lon > 360 {
		return nil, fmt.Errorf("invalid or missing lon parameter")
	}

	height := 0.0
	if v := q.Get("height"); v != "" {
		height, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid height parameter")
		}
	}

	return transform.NewSite(lat, lon, height), nil
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// SSE message payload types.

type metadataMessage struct {
	Type          string `json:"type"`
	CatalogNumber int    `json:"catalog_number"`
	Name          string `json:"name"`
	TLEEpoch      string `json:"tle_epoch"`
}

type pointingMessage struct {
	Type        string  `json:"type"`
	T           string  `json:"t"`
	AzimuthDeg  float64 `json:"azimuth_deg"`
	AltitudeDeg float64 `json:"altitude_deg"`
	HAHours     float64 `json:"ha_hours"`
	DecDeg      float64 `json:"dec_deg"`
	RangeKm     float64 `json:"range_km"`
	Visible     bool    `json:"visible"`
}
