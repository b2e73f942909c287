package count

import (
	"fmt"
	"io"
)

// Progress is the view of a running Session handed to a Tracer after
// every accumulated witness.
type Progress interface {
	State() State
	Count() uint64
	Witnesses() int
	DontCares() int
}

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -o ../fakes/fake_tracer.go tracer.go Tracer
type Tracer interface {
	Trace(p Progress)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ Progress) {
}

type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(p Progress) {
	fmt.Fprintf(t.Writer, "---\nState: %s\nWitnesses: %d\nDon't cares: %d\nCount: %d\n", p.State(), p.Witnesses(), p.DontCares(), p.Count())
}

// ProgressTracer prints the running count on a thinning schedule:
// every count below 100, then every 100, every 500 above 10000 and
// every 1000 above 100000.
type ProgressTracer struct {
	Writer io.Writer
	next   uint64
	step   uint64
}

func NewProgressTracer(w io.Writer) *ProgressTracer {
	return &ProgressTracer{Writer: w, next: 100, step: 100}
}

func (t *ProgressTracer) Trace(p Progress) {
	if k := p.DontCares(); k > 0 {
		fmt.Fprintf(t.Writer, "%d variables were unassigned in partial (counter-)model\n", k)
	}
	c := p.Count()
	if c < 100 {
		fmt.Fprintf(t.Writer, "current count: %d\n", c)
		return
	}
	if c < t.next {
		return
	}
	fmt.Fprintf(t.Writer, "current count: %d\n", c)
	t.next += t.step
	if c > 10000 {
		t.step = 500
	}
	if c > 100000 {
		t.step = 1000
	}
}
