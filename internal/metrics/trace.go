package metrics

import (
	"github.com/san-kum/pixeldust/internal/field"
)

const DefaultTraceCapacity = 4096

// Sample is one step of a trace.
type Sample struct {
	Frame            uint64  `json:"frame"`
	MaxDisplacement  float64 `json:"max_displacement"`
	MeanDisplacement float64 `json:"mean_displacement"`
	MaxSpeed         float64 `json:"max_speed"`
	Kinetic          float64 `json:"kinetic"`
}

// Trace keeps the most recent steps in a fixed ring.
type Trace struct {
	buf  []Sample
	head int
	full bool
}

func NewTrace(capacity int) *Trace {
	if capacity <= 0 {
		capacity = DefaultTraceCapacity
	}
	return &Trace{buf: make([]Sample, capacity)}
}

func (t *Trace) Observe(frame uint64, st field.StepStats) {
	t.buf[t.head] = Sample{
		Frame:            frame,
		MaxDisplacement:  st.MaxDisplacement,
		MeanDisplacement: st.MeanDisplacement,
		MaxSpeed:         st.MaxSpeed,
		Kinetic:          st.Kinetic,
	}
	t.head++
	if t.head == len(t.buf) {
		t.head = 0
		t.full = true
	}
}

func (t *Trace) Len() int {
	if t.full {
		return len(t.buf)
	}
	return t.head
}

// Samples returns the retained steps oldest first.
func (t *Trace) Samples() []Sample {
	if !t.full {
		return append([]Sample(nil), t.buf[:t.head]...)
	}
	out := make([]Sample, 0, len(t.buf))
	out = append(out, t.buf[t.head:]...)
	return append(out, t.buf[:t.head]...)
}

// Series extracts one column of the trace for plotting.
func (t *Trace) Series(pick func(Sample) float64) []float64 {
	samples := t.Samples()
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = pick(s)
	}
	return out
}

func (t *Trace) Reset() {
	t.head = 0
	t.full = false
}

// Recorder fans every step out to a trace and a metric set. It satisfies
// engine.Observer.
type Recorder struct {
	Trace   *Trace
	Metrics []Metric
}

func NewRecorder(p field.Params, capacity int) *Recorder {
	return &Recorder{
		Trace:   NewTrace(capacity),
		Metrics: Standard(p),
	}
}

func (r *Recorder) Observe(frame uint64, st field.StepStats) {
	r.Trace.Observe(frame, st)
	for _, m := range r.Metrics {
		m.Observe(frame, st)
	}
}

// Values maps metric names to their current values.
func (r *Recorder) Values() map[string]float64 {
	out := make(map[string]float64, len(r.Metrics))
	for _, m := range r.Metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (r *Recorder) Reset() {
	r.Trace.Reset()
	for _, m := range r.Metrics {
		m.Reset()
	}
}
