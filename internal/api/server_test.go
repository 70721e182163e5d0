package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/contagion/internal/agents"
	"github.com/talgya/contagion/internal/config"
	"github.com/talgya/contagion/internal/engine"
	"github.com/talgya/contagion/internal/entropy"
	"github.com/talgya/contagion/internal/persistence"
)

func newTestEngine(t *testing.T) (*engine.Engine, *engine.Sampler) {
	t.Helper()
	c := config.Default()
	c.Population = 30
	c.HospitalCapacity = 10
	c.Settings.InitialInfected = 3
	c.Settings.DayPhases = config.DayPhases{Work: 3, Misc: 3, Home: 3}
	c.Settings.Infection = agents.InfectionLengths{Dormant: 2, Infectious: 4, Hospital: 4}

	w, err := engine.NewWorld(c, entropy.NewSeeded(5))
	if err != nil {
		t.Fatal(err)
	}
	eng := engine.NewEngine(w)
	sampler := engine.NewSampler(c.SampleInterval)
	eng.OnTick = func(w *engine.World) { sampler.Observe(w) }
	return eng, sampler
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	eng, sampler := newTestEngine(t)
	s := &Server{Eng: eng, Sampler: sampler, AdminKey: "secret"}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func post(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp
}

func TestStatus(t *testing.T) {
	s, ts := newTestServer(t)
	s.Eng.SetPaused(false)
	s.Eng.RunTicks(4)

	var status struct {
		Day        int           `json:"day"`
		Time       int           `json:"time"`
		Phase      string        `json:"phase"`
		Paused     bool          `json:"paused"`
		Population int           `json:"population"`
		Census     engine.Census `json:"census"`
	}
	if code := getJSON(t, ts.URL+"/api/v1/status", &status); code != http.StatusOK {
		t.Fatalf("status code %d", code)
	}
	if status.Time != 4 || status.Day != 0 || status.Phase != "misc" || status.Paused {
		t.Errorf("status = %+v", status)
	}
	if status.Population != 30 || status.Census.Alive()+status.Census.Dead != 30 {
		t.Errorf("population %d census %+v", status.Population, status.Census)
	}
}

func TestBuildings(t *testing.T) {
	_, ts := newTestServer(t)

	var all []buildingView
	if code := getJSON(t, ts.URL+"/api/v1/buildings", &all); code != http.StatusOK {
		t.Fatalf("status code %d", code)
	}
	var hospitals []buildingView
	getJSON(t, ts.URL+"/api/v1/buildings?type=hospital", &hospitals)
	if len(hospitals) == 0 || len(hospitals) >= len(all) {
		t.Fatalf("%d hospitals of %d buildings", len(hospitals), len(all))
	}
	for _, h := range hospitals {
		if h.Type != "hospital" {
			t.Errorf("filtered building has type %s", h.Type)
		}
	}

	occupants := 0
	for _, b := range all {
		occupants += b.Occupants
	}
	if occupants != 30 {
		t.Errorf("occupants across buildings = %d, want 30", occupants)
	}

	if code := getJSON(t, ts.URL+"/api/v1/buildings?type=castle", nil); code != http.StatusBadRequest {
		t.Errorf("unknown type status %d, want 400", code)
	}
}

func TestPeople(t *testing.T) {
	_, ts := newTestServer(t)

	var people []personView
	getJSON(t, ts.URL+"/api/v1/people?limit=5", &people)
	if len(people) != 5 {
		t.Fatalf("limit=5 returned %d people", len(people))
	}
	if !people[0].Infected || people[0].Stage != "dormant" {
		t.Errorf("first person = %+v, want seeded dormant infection", people[0])
	}

	var one personView
	if code := getJSON(t, ts.URL+"/api/v1/person/3", &one); code != http.StatusOK || one.ID != 3 {
		t.Errorf("person/3 = %d %+v", code, one)
	}
	if code := getJSON(t, ts.URL+"/api/v1/person/999", nil); code != http.StatusNotFound {
		t.Errorf("person/999 status %d, want 404", code)
	}
	if code := getJSON(t, ts.URL+"/api/v1/people?alive=maybe", nil); code != http.StatusBadRequest {
		t.Errorf("alive=maybe status %d, want 400", code)
	}
}

func TestPauseRequiresToken(t *testing.T) {
	s, ts := newTestServer(t)

	if resp := post(t, ts.URL+"/api/v1/pause", "", `{"paused": false}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated pause status %d, want 401", resp.StatusCode)
	}
	if resp := post(t, ts.URL+"/api/v1/pause", "secret", `{"paused": false}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("pause status %d", resp.StatusCode)
	}
	s.Eng.View(func(w *engine.World) {
		if w.Paused {
			t.Error("world still paused after POST")
		}
	})

	if resp := post(t, ts.URL+"/api/v1/speed", "secret", `{"speed": 5000}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("out of range speed status %d, want 400", resp.StatusCode)
	}
	if resp := post(t, ts.URL+"/api/v1/speed", "secret", `{"speed": 3}`); resp.StatusCode != http.StatusOK {
		t.Errorf("speed status %d", resp.StatusCode)
	}
	if s.Eng.Speed() != 3 {
		t.Errorf("speed = %v, want 3", s.Eng.Speed())
	}

	disabled := &Server{Eng: s.Eng}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pause", strings.NewReader(`{"paused": true}`))
	req.Header.Set("Authorization", "Bearer secret")
	disabled.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("pause with admin disabled status %d, want 403", rec.Code)
	}
}

func TestReadOnlyEndpointsRejectPost(t *testing.T) {
	_, ts := newTestServer(t)
	if resp := post(t, ts.URL+"/api/v1/status", "secret", `{}`); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST status %d, want 405", resp.StatusCode)
	}
}

func TestSamplesAndEvents(t *testing.T) {
	s, ts := newTestServer(t)
	s.Eng.SetPaused(false)
	s.Eng.RunTicks(36)

	var samples []engine.Sample
	getJSON(t, ts.URL+"/api/v1/samples", &samples)
	if len(samples) != 12 {
		t.Errorf("samples = %d, want 12", len(samples))
	}

	var events []engine.Event
	if code := getJSON(t, ts.URL+"/api/v1/events?limit=500", &events); code != http.StatusOK {
		t.Fatalf("events status %d", code)
	}
	var filtered []engine.Event
	getJSON(t, ts.URL+"/api/v1/events?category=death&limit=500", &filtered)
	for _, e := range filtered {
		if e.Category != "death" {
			t.Errorf("category filter returned %q", e.Category)
		}
	}
	if len(filtered) > len(events) {
		t.Errorf("filtered %d > all %d", len(filtered), len(events))
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests denied")
	}
	if rl.Allow("a") {
		t.Error("third request allowed")
	}
	if !rl.Allow("b") {
		t.Error("other client denied")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Errorf("RetryAfter = %d, want 61", got)
	}
	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("request denied after window reset")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(r); got != "10.0.0.1" {
		t.Errorf("clientIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.9" {
		t.Errorf("clientIP with XFF = %q", got)
	}
}

func TestRunLogReadsAreCurrent(t *testing.T) {
	eng, sampler := newTestEngine(t)
	db, err := persistence.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	rec, err := persistence.NewRecorder(db, config.Default(), sampler)
	if err != nil {
		t.Fatal(err)
	}
	eng.OnDay = rec.FlushDaily

	s := &Server{Eng: eng, Sampler: sampler, Recorder: rec}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	// Day length 9: 40 ticks ends four ticks into day five, past the last
	// daily flush.
	s.Eng.SetPaused(false)
	s.Eng.RunTicks(40)

	var samples []engine.Sample
	if code := getJSON(t, ts.URL+"/api/v1/samples", &samples); code != http.StatusOK {
		t.Fatalf("samples status %d", code)
	}
	var live int
	s.Eng.View(func(*engine.World) { live = len(s.Sampler.Samples) })
	if len(samples) != live || live == 0 {
		t.Fatalf("run log has %d samples, sampler has %d", len(samples), live)
	}
	if last := samples[len(samples)-1]; last.Tick != 40 {
		t.Errorf("newest stored sample at tick %d, want 40", last.Tick)
	}

	var want []engine.Event
	s.Eng.View(func(w *engine.World) { want = w.RecentEvents(500) })
	var got []engine.Event
	if code := getJSON(t, ts.URL+"/api/v1/events?limit=500", &got); code != http.StatusOK {
		t.Fatalf("events status %d", code)
	}
	if len(got) != len(want) {
		t.Fatalf("run log has %d events, world has %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
