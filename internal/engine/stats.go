package engine

// ImmuneThreshold splits the recovered population: below it a healthy
// person counts as susceptible, at or above it as immune, so every living
// person lands in exactly one bucket.
const ImmuneThreshold = 0.5

// Census counts the population by health state.
type Census struct {
	Susceptible  int `json:"susceptible" db:"susceptible"`
	Infected     int `json:"infected" db:"infected"` // Infected and not in treatment
	Hospitalized int `json:"hospitalized" db:"hospitalized"`
	Immune       int `json:"immune" db:"immune"`
	Dead         int `json:"dead" db:"dead"`
}

// Alive is the number of living people.
func (c Census) Alive() int {
	return c.Susceptible + c.Infected + c.Hospitalized + c.Immune
}

// Census classifies every person in the roster.
func (w *World) Census() Census {
	var c Census
	for _, p := range w.People {
		switch {
		case !p.Alive:
			c.Dead++
		case p.BeingTreated:
			c.Hospitalized++
		case p.Infected:
			c.Infected++
		case p.Immunity < ImmuneThreshold:
			c.Susceptible++
		default:
			c.Immune++
		}
	}
	return c
}

// Sample is a census taken at a point in simulated time.
type Sample struct {
	Tick uint64 `json:"tick" db:"tick"`
	Day  int    `json:"day" db:"day"`
	Time int    `json:"time" db:"time"`
	Census
}

// Sampler collects a census every Interval ticks of the day clock.
type Sampler struct {
	Interval int
	Samples  []Sample

	lastTick uint64
	taken    bool
}

// NewSampler creates a sampler with the given interval.
func NewSampler(interval int) *Sampler {
	if interval < 1 {
		interval = 1
	}
	return &Sampler{Interval: interval}
}

// Observe records a sample if the world is running, sits on an interval
// boundary, and has advanced since the last sample.
func (s *Sampler) Observe(w *World) bool {
	if w.Paused || w.Time%s.Interval != 0 {
		return false
	}
	if s.taken && w.Ticks() == s.lastTick {
		return false
	}
	s.Samples = append(s.Samples, Sample{
		Tick:   w.Ticks(),
		Day:    w.Day,
		Time:   w.Time,
		Census: w.Census(),
	})
	s.lastTick = w.Ticks()
	s.taken = true
	return true
}

// Since returns samples taken after the given tick.
func (s *Sampler) Since(tick uint64) []Sample {
	for i, smp := range s.Samples {
		if smp.Tick > tick {
			return s.Samples[i:]
		}
	}
	return nil
}
