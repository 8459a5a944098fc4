// Package api exposes the acceleration profiles and the personality
// params entry over HTTP.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/accel.report/internal/accel"
	"github.com/banshee-data/accel.report/internal/chart"
	"github.com/banshee-data/accel.report/internal/controlloop"
	"github.com/banshee-data/accel.report/internal/params"
	"github.com/banshee-data/accel.report/internal/personality"
	"github.com/banshee-data/accel.report/internal/units"
)

// StateFunc reports the latest control-loop sample, if any.
type StateFunc func() (controlloop.Sample, bool)

// Server serves the HTTP API. Writes go to the params store only; a
// running control loop observes them on its next refresh frame.
type Server struct {
	store    params.Store
	profiles *accel.ProfileSet
	stock    accel.Limits
	state    StateFunc
	key      string
}

// NewServer creates a Server. profiles defaults to the shipped set and
// state may be nil when no control loop is running.
func NewServer(store params.Store, profiles *accel.ProfileSet, stock accel.Limits, state StateFunc) *Server {
	if profiles == nil {
		profiles = accel.DefaultProfiles()
	}
	return &Server{
		store:    store,
		profiles: profiles,
		stock:    stock,
		state:    state,
		key:      params.AccelPersonalityKey,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/limits", s.handleLimits)
	mux.HandleFunc("/api/personality", s.handlePersonality)
	mux.HandleFunc("/api/personality/history", s.handlePersonalityHistory)
	mux.HandleFunc("/api/profiles", s.handleProfiles)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/charts/profiles", s.handleProfilesChart)
	mux.HandleFunc("/charts/profiles.png", s.handleProfilesPNG)
	return mux
}

// PersonalityResponse describes the stored personality entry.
type PersonalityResponse struct {
	Personality personality.Personality `json:"personality"`
	Ordinal     int                     `json:"ordinal"`
	Set         bool                    `json:"set"`
	Raw         string                  `json:"raw,omitempty"`
	Valid       bool                    `json:"valid"`
}

// LimitsResponse is the body of GET /api/limits.
type LimitsResponse struct {
	Personality personality.Personality `json:"personality"`
	Speed       float64                 `json:"speed"`
	Units       string                  `json:"units"`
	SpeedMPS    float64                 `json:"speed_mps"`
	Limits      accel.Limits            `json:"limits"`
}

// stored reads the params entry. Missing and unparseable values report
// Stock, the selector's starting personality.
func (s *Server) stored() PersonalityResponse {
	raw, ok := s.store.Get(s.key)
	if !ok {
		return PersonalityResponse{Personality: personality.Stock, Valid: true}
	}
	p, valid := personality.Parse(raw)
	if !valid {
		p = personality.Stock
	}
	return PersonalityResponse{
		Personality: p,
		Ordinal:     int(p),
		Set:         true,
		Raw:         strings.TrimSpace(raw),
		Valid:       valid,
	}
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query()
	rawSpeed := q.Get("speed")
	if rawSpeed == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing 'speed' parameter")
		return
	}
	speed, err := strconv.ParseFloat(rawSpeed, 64)
	if err != nil || math.IsNaN(speed) || math.IsInf(speed, 0) {
		writeJSONError(w, http.StatusBadRequest, "Invalid 'speed' parameter")
		return
	}

	unit := q.Get("units")
	if unit == "" {
		unit = units.MPS
	}
	if !units.IsValid(unit) {
		writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid 'units' parameter. Must be one of: %s", units.GetValidUnitsString()))
		return
	}
	speedMPS, _ := units.ToMPS(speed, unit)

	var p personality.Personality
	if name := q.Get("personality"); name != "" {
		p, err = personality.ParseName(name)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		p = s.stored().Personality
	}

	limits := s.stock
	if p != personality.Stock {
		limits = s.profiles.Limits(p, speedMPS)
	}

	writeJSON(w, http.StatusOK, LimitsResponse{
		Personality: p,
		Speed:       speed,
		Units:       unit,
		SpeedMPS:    speedMPS,
		Limits:      limits,
	})
}

func (s *Server) handlePersonality(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.stored())
	case http.MethodPut, http.MethodPost:
		p, err := decodePersonality(r.Body)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.store.Put(s.key, p.Encode()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to store personality: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, s.stored())
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// decodePersonality accepts {"personality": "sport"} or {"personality": 3}.
func decodePersonality(body io.Reader) (personality.Personality, error) {
	var req struct {
		Personality json.RawMessage `json:"personality"`
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return 0, fmt.Errorf("failed to read request body: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return 0, fmt.Errorf("invalid JSON body: %v", err)
	}
	raw := bytes.TrimSpace(req.Personality)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errors.New("missing 'personality' field")
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return personality.ParseName(name)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.New("'personality' must be a name or an ordinal")
	}
	p := personality.Personality(n)
	if !p.Valid() {
		return 0, fmt.Errorf("unknown personality ordinal %d: must be one of %s", n, personality.ValidNamesString())
	}
	return p, nil
}

type historyEntry struct {
	Personality *personality.Personality `json:"personality"`
	Raw         *string                  `json:"raw"`
	ChangedAt   int64                    `json:"changed_at"`
}

func (s *Server) handlePersonalityHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	sqlStore, ok := s.store.(*params.SQLStore)
	if !ok {
		writeJSONError(w, http.StatusNotImplemented, "History requires the sqlite params backend")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = n
	}

	changes, err := sqlStore.DB().ParamHistory(s.key, limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve history: %v", err))
		return
	}

	out := make([]historyEntry, 0, len(changes))
	for _, c := range changes {
		e := historyEntry{Raw: c.Value, ChangedAt: c.ChangedAt}
		if c.Value != nil {
			if p, ok := personality.Parse(*c.Value); ok {
				e.Personality = &p
			}
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.profiles.Values())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.state == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "Control loop not running")
		return
	}
	sample, ok := s.state()
	if !ok {
		writeJSONError(w, http.StatusServiceUnavailable, "No control loop samples yet")
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

func maxSpeedParam(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("vmax")
	if raw == "" {
		return chart.DefaultMaxSpeed, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("invalid 'vmax' parameter")
	}
	if err := chart.CheckMaxSpeed(v); err != nil {
		return 0, fmt.Errorf("invalid 'vmax' parameter: %w", err)
	}
	return v, nil
}

func (s *Server) handleProfilesChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	vMax, err := maxSpeedParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := chart.RenderHTML(&buf, s.profiles, vMax); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleProfilesPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	vMax, err := maxSpeedParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := chart.WritePNG(&buf, s.profiles, vMax); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
