// Package profiling collects per-operation timings for the preview host
// and hooks pprof into its command line.
package profiling

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Stopper ends a timed operation.
type Stopper interface {
	Stop()
}

// Stat aggregates every run of one named operation.
type Stat struct {
	Name  string
	Count int
	Total time.Duration
	Max   time.Duration
}

// Mean returns the average duration.
func (s Stat) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Recorder collects Stats. The zero value is disabled.
type Recorder struct {
	mu      sync.Mutex
	enabled bool
	stats   map[string]*Stat
}

type timer struct {
	r     *Recorder
	name  string
	start time.Time
}

func (t *timer) Stop() {
	t.r.record(t.name, time.Since(t.start))
}

type noopStopper struct{}

func (noopStopper) Stop() {}

// Enable turns recording on.
func (r *Recorder) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = true
	if r.stats == nil {
		r.stats = make(map[string]*Stat)
	}
}

// Enabled reports whether recording is on.
func (r *Recorder) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Start times one run of name. Stop the result, typically via defer.
func (r *Recorder) Start(name string) Stopper {
	if !r.Enabled() {
		return noopStopper{}
	}
	return &timer{r: r, name: name, start: time.Now()}
}

func (r *Recorder) record(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[name]
	if !ok {
		s = &Stat{Name: name}
		r.stats[name] = s
	}
	s.Count++
	s.Total += d
	if d > s.Max {
		s.Max = d
	}
}

// Stats returns a copy of the collected stats sorted by total time,
// largest first.
func (r *Recorder) Stats() []Stat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stat, 0, len(r.stats))
	for _, s := range r.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Summarize writes a table of the collected stats to w.
func (r *Recorder) Summarize(w io.Writer) {
	stats := r.Stats()
	if len(stats) == 0 {
		return
	}
	fmt.Fprintf(w, "%-12s %8s %12s %12s %12s\n", "operation", "count", "total", "mean", "max")
	for _, s := range stats {
		fmt.Fprintf(w, "%-12s %8d %12s %12s %12s\n", s.Name, s.Count,
			s.Total.Round(time.Microsecond), s.Mean().Round(time.Microsecond), s.Max.Round(time.Microsecond))
	}
}

var defaultRecorder = &Recorder{}

// Enable turns on the process-wide recorder.
func Enable() { defaultRecorder.Enable() }

// Start times one run of name on the process-wide recorder.
func Start(name string) Stopper { return defaultRecorder.Start(name) }

// Summarize writes the process-wide stats to w.
func Summarize(w io.Writer) { defaultRecorder.Summarize(w) }
