package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/groundside/pointgo/internal/catalog"
	"github.com/groundside/pointgo/internal/ephem"
	"github.com/groundside/pointgo/internal/metrics"
	"github.com/groundside/pointgo/internal/passes"
	"github.com/groundside/pointgo/internal/transform"
)

const maxRequestBody = 1 << 20 // 1 MiB; transform bodies are tiny

// decodeJSON decodes a bounded JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// transformStatus maps a transform failure to an HTTP status and a stable
// reason string used both in the response body and as a metric label.
func transformStatus(err error) (int, string) {
	switch {
	case errors.Is(err, transform.ErrUnsupportedRefraction):
		return http.StatusUnprocessableEntity, "unsupported_refraction"
	case errors.Is(err, transform.ErrMissingFrameAttribute):
		return http.StatusBadRequest, "missing_frame_attribute"
	case errors.Is(err, transform.ErrMissingDistance):
		return http.StatusBadRequest, "missing_distance"
	default:
		return http.StatusBadRequest, "bad_request"
	}
}

func writeTransformError(w http.ResponseWriter, kind string, err error) {
	status, reason := transformStatus(err)
	metrics.IncTransformError(kind, reason)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":  err.Error(),
		"reason": reason,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// transformAltAzHandler converts an ECEF position to azimuth/altitude as
// seen from the requested frame.
func transformAltAzHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const kind = "itrs_to_altaz"
		var req transformRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		c, err := transform.ITRSToAltAz(req.Position.toPosition(), req.Frame.toFrame())
		if err != nil {
			writeTransformError(w, kind, err)
			return
		}
		metrics.IncTransform(kind)
		writeJSON(w, altAzToJSON(c))
	}
}

// transformHADecHandler converts an ECEF position to hour angle and
// declination as seen from the requested frame.
func transformHADecHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const kind = "itrs_to_hadec"
		var req transformRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		c, err := transform.ITRSToHADec(req.Position.toPosition(), req.Frame.toFrame())
		if err != nil {
			writeTransformError(w, kind, err)
			return
		}
		metrics.IncTransform(kind)
		writeJSON(w, haDecToJSON(c))
	}
}

// transformITRSHandler converts an observed coordinate (altaz or hadec,
// with range) back to an ECEF position at the requested epoch.
func transformITRSHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inverseRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if err := req.validateShape(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		frame := req.Frame.toFrame()
		obstime := req.targetObstime(frame)

		var (
			kind string
			pos  transform.Position
			err  error
		)
		if req.AltAz != nil {
			kind = "altaz_to_itrs"
			pos, err = transform.AltAzToITRS(transform.AltAz{
				AzRad:     req.AltAz.AzimuthDeg * degToRad,
				AltRad:    req.AltAz.AltitudeDeg * degToRad,
				DistanceM: rangeOrNaN(req.AltAz.RangeM),
				Frame:     frame,
			}, obstime)
		} else {
			kind = "hadec_to_itrs"
			pos, err = transform.HADecToITRS(transform.HADec{
				HARad:     req.HADec.HAHours * 15 * degToRad,
				DecRad:    req.HADec.DecDeg * degToRad,
				DistanceM: rangeOrNaN(req.HADec.RangeM),
				Frame:     frame,
			}, obstime)
		}
		if err != nil {
			writeTransformError(w, kind, err)
			return
		}
		metrics.IncTransform(kind)
		writeJSON(w, positionToJSON(pos))
	}
}

// catalogMetadataHandler reports what catalog is loaded, not its contents.
func catalogMetadataHandler(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set := store.Get()
		if set == nil {
			writeError(w, http.StatusServiceUnavailable, "no catalog loaded")
			return
		}
		writeJSON(w, map[string]any{
			"source":    set.Source,
			"loaded_at": set.LoadedAt.UTC().Format(time.RFC3339),
			"count":     len(set.Entries),
		})
	}
}

// pointingResponse is the one-shot pointing solution for a single object.
type pointingResponse struct {
	CatalogNumber int     `json:"catalog_number"`
	Name          string  `json:"name"`
	T             string  `json:"t"`
	AzimuthDeg    float64 `json:"azimuth_deg"`
	AltitudeDeg   float64 `json:"altitude_deg"`
	HAHours       float64 `json:"ha_hours"`
	DecDeg        float64 `json:"dec_deg"`
	RangeKm       float64 `json:"range_km"`
	Visible       bool    `json:"visible"`
}

// pointHandler answers "where do I aim right now" for one object.
func pointHandler(logger *slog.Logger, store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catNum, err := strconv.Atoi(r.PathValue("catalog_number"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid catalog number")
			return
		}
		set := store.Get()
		if set == nil {
			writeError(w, http.StatusServiceUnavailable, "no catalog loaded")
			return
		}
		entry, ok := set.Find(catNum)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("object %d not in catalog", catNum))
			return
		}
		site, err := siteFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		t, err := timeFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		prop, err := ephem.NewPropagator(entry)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "orbital elements rejected: "+err.Error())
			return
		}
		pos, err := prop.PositionAt(t)
		if err != nil {
			logger.Warn("propagation failed",
				"component", "api",
				"catalog_number", catNum,
				"error", err)
			writeError(w, http.StatusUnprocessableEntity, "propagation failed: "+err.Error())
			return
		}

		frame := transform.Frame{Site: site, Obstime: t}
		aa, err := transform.ITRSToAltAz(pos, frame)
		if err != nil {
			writeTransformError(w, "itrs_to_altaz", err)
			return
		}
		hd, err := transform.ITRSToHADec(pos, frame)
		if err != nil {
			writeTransformError(w, "itrs_to_hadec", err)
			return
		}
		metrics.IncTransform("itrs_to_altaz")
		metrics.IncTransform("itrs_to_hadec")

		writeJSON(w, pointingResponse{
			CatalogNumber: entry.CatalogNumber,
			Name:          entry.Name,
			T:             t.UTC().Format(time.RFC3339),
			AzimuthDeg:    aa.AzRad * radToDeg,
			AltitudeDeg:   aa.AltRad * radToDeg,
			HAHours:       hd.HARad * 12 / math.Pi,
			DecDeg:        hd.DecRad * radToDeg,
			RangeKm:       aa.DistanceM / 1000,
			Visible:       aa.AltRad > 0,
		})
	}
}

const (
	defaultHorizonHours = 24.0
	maxHorizonHours     = 72.0
	defaultMinAltDeg    = 10.0
	maxPassesPerObject  = 50
)

// passesHandler predicts upcoming visibility windows for one object.
func passesHandler(logger *slog.Logger, store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catNum, err := strconv.Atoi(r.PathValue("catalog_number"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid catalog number")
			return
		}
		set := store.Get()
		if set == nil {
			writeError(w, http.StatusServiceUnavailable, "no catalog loaded")
			return
		}
		entry, ok := set.Find(catNum)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("object %d not in catalog", catNum))
			return
		}
		site, err := siteFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		hours := defaultHorizonHours
		if v := r.URL.Query().Get("hours"); v != "" {
			hours, err = strconv.ParseFloat(v, 64)
			if err != nil || hours <= 0 || hours > maxHorizonHours {
				writeError(w, http.StatusBadRequest,
					fmt.Sprintf("hours must be in (0, %g]", maxHorizonHours))
				return
			}
		}
		minAlt := defaultMinAltDeg
		if v := r.URL.Query().Get("min_alt"); v != "" {
			minAlt, err = strconv.ParseFloat(v, 64)
			if err != nil || minAlt < 0 || minAlt >= 90 {
				writeError(w, http.StatusBadRequest, "min_alt must be in [0, 90)")
				return
			}
		}

		results := passes.Predict(r.Context(), passes.Request{
			Site:           site,
			Entries:        []catalog.Entry{entry},
			Start:          time.Now().UTC(),
			HorizonHours:   hours,
			MinAltitudeDeg: minAlt,
			MaxPasses:      maxPassesPerObject,
		})
		if len(results) == 1 && results[0].Error != "" {
			writeError(w, http.StatusUnprocessableEntity, results[0].Error)
			return
		}
		writeJSON(w, map[string]any{
			"catalog_number": catNum,
			"name":           entry.Name,
			"min_alt_deg":    minAlt,
			"hours":          hours,
			"results":        results,
		})
	}
}

// skyObject is one catalog object currently above the requested horizon.
type skyObject struct {
	CatalogNumber int     `json:"catalog_number"`
	Name          string  `json:"name"`
	AzimuthDeg    float64 `json:"azimuth_deg"`
	AltitudeDeg   float64 `json:"altitude_deg"`
	RangeKm       float64 `json:"range_km"`
}

// skyHandler propagates the whole catalog to one instant and returns every
// object above the altitude cutoff, as seen from the requested site.
func skyHandler(logger *slog.Logger, store *catalog.Store, workers int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set := store.Get()
		if set == nil {
			writeError(w, http.StatusServiceUnavailable, "no catalog loaded")
			return
		}
		site, err := siteFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		t, err := timeFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		minAlt := 0.0
		if v := r.URL.Query().Get("min_alt"); v != "" {
			minAlt, err = strconv.ParseFloat(v, 64)
			if err != nil || minAlt < 0 || minAlt >= 90 {
				writeError(w, http.StatusBadRequest, "min_alt must be in [0, 90)")
				return
			}
		}

		snap := ephem.SnapshotAll(r.Context(), set.Entries, t, workers, logger)

		positions := make([]transform.Position, len(snap.Objects))
		for i, obj := range snap.Objects {
			positions[i] = obj.Position
		}
		frame := transform.Frame{Site: site, Obstime: t}
		coords, err := transform.ITRSToAltAzBatch(positions, frame)
		if err != nil {
			writeTransformError(w, "itrs_to_altaz", err)
			return
		}
		metrics.IncTransform("itrs_to_altaz")

		visible := make([]skyObject, 0, len(coords))
		for i, c := range coords {
			if c.AltRad*radToDeg < minAlt {
				continue
			}
			visible = append(visible, skyObject{
				CatalogNumber: snap.Objects[i].CatalogNumber,
				Name:          snap.Objects[i].Name,
				AzimuthDeg:    c.AzRad * radToDeg,
				AltitudeDeg:   c.AltRad * radToDeg,
				RangeKm:       c.DistanceM / 1000,
			})
		}
		writeJSON(w, map[string]any{
			"t":           t.UTC().Format(time.RFC3339),
			"min_alt_deg": minAlt,
			"count":       len(visible),
			"failed":      snap.Failed,
			"objects":     visible,
		})
	}
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

// timeFromQuery parses the optional t parameter, defaulting to now.
func timeFromQuery(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("t")
	if v == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid t parameter: want RFC 3339")
	}
	return t.UTC(), nil
}
