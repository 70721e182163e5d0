// Package api provides the HTTP API for observing a running simulation.
// GET endpoints are public and read-only.
// POST endpoints require a bearer token and only toggle pause or speed.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/contagion/internal/agents"
	"github.com/talgya/contagion/internal/engine"
	"github.com/talgya/contagion/internal/persistence"
	"github.com/talgya/contagion/internal/world"
)

// Server serves the simulation state over HTTP.
type Server struct {
	Eng      *engine.Engine
	Sampler  *engine.Sampler       // Updated under the engine lock
	Recorder *persistence.Recorder // Optional; samples and events are read back from the run log
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	// The roster is the largest payload; limit how often it is pulled.
	peopleLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.getOnly(s.handleStatus))
	mux.HandleFunc("/api/v1/buildings", s.getOnly(s.handleBuildings))
	mux.HandleFunc("/api/v1/people", s.getOnly(RateLimitMiddleware(peopleLimiter, s.handlePeople)))
	mux.HandleFunc("/api/v1/person/", s.getOnly(s.handlePersonDetail))
	mux.HandleFunc("/api/v1/events", s.getOnly(s.handleEvents))
	mux.HandleFunc("/api/v1/samples", s.getOnly(s.handleSamples))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/pause", s.adminOnly(s.handlePause))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list; localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
		case http.MethodPost:
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Eng.View(func(sim *engine.World) {
		status = map[string]any{
			"day":        sim.Day,
			"time":       sim.Time,
			"day_length": sim.DayLength(),
			"phase":      sim.CurrentPhase().String(),
			"sim_time":   engine.SimTime(sim),
			"ticks":      sim.Ticks(),
			"paused":     sim.Paused,
			"population": len(sim.People),
			"buildings":  sim.Map.Count(),
			"census":     sim.Census(),
		}
	})
	status["speed"] = s.Eng.Speed()
	status["running"] = s.Eng.Running()
	writeJSON(w, status)
}

type buildingView struct {
	ID         world.BuildingID `json:"id"`
	Type       string           `json:"type"`
	Capacity   int              `json:"capacity"`
	Assigned   int              `json:"assigned"`
	Occupants  int              `json:"occupants"`
	Position   world.Vec2       `json:"position"`
	Dimensions world.Vec2       `json:"dimensions"`
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	filter := -1
	if name := r.URL.Query().Get("type"); name != "" {
		t, err := world.ParseBuildingType(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter = int(t)
	}

	var out []buildingView
	s.Eng.View(func(sim *engine.World) {
		buildings := sim.AllBuildings()
		if filter >= 0 {
			buildings = sim.Buildings(world.BuildingType(filter))
		}
		out = make([]buildingView, 0, len(buildings))
		for _, b := range buildings {
			out = append(out, buildingView{
				ID:         b.ID,
				Type:       b.Type.String(),
				Capacity:   b.Capacity,
				Assigned:   b.Assigned,
				Occupants:  b.OccupantCount(),
				Position:   b.Position,
				Dimensions: b.Dimensions,
			})
		}
	})
	writeJSON(w, out)
}

type personView struct {
	agents.Person
	Stage string `json:"stage"`
}

func (s *Server) handlePeople(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	var aliveFilter *bool
	if a := q.Get("alive"); a != "" {
		v, err := strconv.ParseBool(a)
		if err != nil {
			http.Error(w, "alive must be true or false", http.StatusBadRequest)
			return
		}
		aliveFilter = &v
	}

	var out []personView
	s.Eng.View(func(sim *engine.World) {
		out = make([]personView, 0, len(sim.People))
		for _, p := range sim.People {
			if aliveFilter != nil && p.Alive != *aliveFilter {
				continue
			}
			out = append(out, personView{Person: *p, Stage: p.Stage(sim.Settings.Infection).String()})
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	})
	writeJSON(w, out)
}

func (s *Server) handlePersonDetail(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/person/")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		http.Error(w, "invalid person id", http.StatusBadRequest)
		return
	}

	var (
		view  personView
		found bool
	)
	s.Eng.View(func(sim *engine.World) {
		if id >= uint64(len(sim.People)) {
			return
		}
		p := sim.Person(world.PersonID(id))
		view = personView{Person: *p, Stage: p.Stage(sim.Settings.Infection).String()}
		found = true
	})
	if !found {
		http.Error(w, "person not found", http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	category := r.URL.Query().Get("category")

	if s.Recorder != nil {
		if !s.flush(w) {
			return
		}
		events, err := s.Recorder.Events(category, limit)
		if err != nil {
			slog.Error("load events failed", "run", s.Recorder.RunID, "error", err)
			http.Error(w, "failed to load events", http.StatusInternalServerError)
			return
		}
		writeJSON(w, events)
		return
	}

	var events []engine.Event
	s.Eng.View(func(sim *engine.World) {
		if category == "" {
			events = sim.RecentEvents(limit)
			return
		}
		for _, e := range sim.RecentEvents(0) {
			if e.Category == category {
				events = append(events, e)
			}
		}
	})
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	writeJSON(w, events)
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	if s.Recorder != nil {
		if !s.flush(w) {
			return
		}
		samples, err := s.Recorder.Samples()
		if err != nil {
			slog.Error("load samples failed", "run", s.Recorder.RunID, "error", err)
			http.Error(w, "failed to load samples", http.StatusInternalServerError)
			return
		}
		writeJSON(w, samples)
		return
	}

	var samples []engine.Sample
	if s.Sampler != nil {
		s.Eng.View(func(*engine.World) {
			samples = append([]engine.Sample(nil), s.Sampler.Samples...)
		})
	}
	writeJSON(w, samples)
}

// flush brings the run log up to the current tick so reads from it do not
// lag the live world. It writes the error response itself.
func (s *Server) flush(w http.ResponseWriter) bool {
	var err error
	s.Eng.Update(func(sim *engine.World) { err = s.Recorder.Flush(sim) })
	if err != nil {
		slog.Error("flush run log failed", "run", s.Recorder.RunID, "error", err)
		http.Error(w, "failed to update run log", http.StatusInternalServerError)
		return false
	}
	return true
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Paused bool `json:"paused"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		s.Eng.SetPaused(req.Paused)
	}

	var paused bool
	s.Eng.View(func(sim *engine.World) { paused = sim.Paused })
	writeJSON(w, map[string]bool{"paused": paused})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
