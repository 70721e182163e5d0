package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/contagion/internal/engine"
	"github.com/talgya/contagion/internal/persistence"
)

func printSummary(out io.Writer, when string, ticks int, elapsed time.Duration, c engine.Census, samples []engine.Sample) {
	rate := 0.0
	if elapsed > 0 {
		rate = float64(ticks) / elapsed.Seconds()
	}
	fmt.Fprintf(out, "\nStopped at %s after %s ticks (%s ticks/s)\n",
		when, humanize.Comma(int64(ticks)), humanize.CommafWithDigits(rate, 0))

	total := c.Alive() + c.Dead
	fmt.Fprintln(out, "CENSUS:")
	printRow(out, "susceptible", c.Susceptible, total)
	printRow(out, "infected", c.Infected, total)
	printRow(out, "hospitalized", c.Hospitalized, total)
	printRow(out, "immune", c.Immune, total)
	printRow(out, "dead", c.Dead, total)

	if peak, ok := peakInfection(samples); ok {
		fmt.Fprintf(out, "Peak infection: %s people on day %d (tick %s)\n",
			humanize.Comma(int64(peak.Infected+peak.Hospitalized)), peak.Day+1, humanize.Comma(int64(peak.Tick)))
	}
	fmt.Fprintf(out, "%s samples taken\n", humanize.Comma(int64(len(samples))))
}

func printRow(out io.Writer, label string, n, total int) {
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(n) / float64(total)
	}
	fmt.Fprintf(out, "  %-13s %8s  %5.1f%%\n", label, humanize.Comma(int64(n)), pct)
}

// peakInfection returns the sample with the most infected people,
// counting those in hospital.
func peakInfection(samples []engine.Sample) (engine.Sample, bool) {
	if len(samples) == 0 {
		return engine.Sample{}, false
	}
	peak := samples[0]
	for _, s := range samples[1:] {
		if s.Infected+s.Hospitalized > peak.Infected+peak.Hospitalized {
			peak = s
		}
	}
	return peak, true
}

func printRuns(out io.Writer, runs []persistence.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return
	}
	fmt.Fprintf(out, "RUNS (%d):\n", len(runs))
	for _, r := range runs {
		started := r.StartedAt
		if t, err := time.Parse(time.RFC3339, r.StartedAt); err == nil {
			started = humanize.Time(t)
		}
		fmt.Fprintf(out, "  %s  seed %-6d %8s people %6s beds  %s\n",
			r.ID, r.Seed, humanize.Comma(int64(r.Population)),
			humanize.Comma(int64(r.HospitalCapacity)), started)
	}
}

// printEvents prints events as returned by the run log, newest first.
func printEvents(out io.Writer, events []engine.Event) {
	fmt.Fprintf(out, "# %d most recent events\n", len(events))
	for _, e := range events {
		fmt.Fprintf(out, "#   day %d tick %d [%s] %s\n", e.Day+1, e.Tick, e.Category, e.Description)
	}
}
