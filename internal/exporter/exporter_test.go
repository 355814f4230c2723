package exporter

import (
	"context"
	"sync"
	"testing"

	"github.com/clipforge/exporter/internal/config"
	"github.com/clipforge/exporter/internal/reporter"
)

func TestNewDefaultsToNullReporter(t *testing.T) {
	e := New(&config.ExportPlan{}, nil)
	if e.rep == nil {
		t.Fatal("expected a non-nil default reporter")
	}
	if e.Phase() != reporter.PhaseIdle {
		t.Errorf("phase = %v, want idle", e.Phase())
	}
}

func TestAbortIsIdempotentAndCancelsRunContext(t *testing.T) {
	e := New(&config.ExportPlan{}, nil)
	called := 0
	var mu sync.Mutex
	e.cancel = func() {
		mu.Lock()
		called++
		mu.Unlock()
	}

	e.Abort()
	e.Abort()
	e.Abort()

	mu.Lock()
	defer mu.Unlock()
	if called != 1 {
		t.Errorf("cancel called %d times, want 1", called)
	}
}

func TestAbortBeforeRunIsObservedOnNextRun(t *testing.T) {
	e := New(&config.ExportPlan{}, nil)
	e.Abort()
	e.mu.Lock()
	aborted := e.aborted
	e.mu.Unlock()
	if !aborted {
		t.Error("expected aborted flag to be set")
	}
}

func TestTeardownStackRunsInReverseOrderOnce(t *testing.T) {
	var order []int
	ts := newTeardownStack()
	ts.push(func() { order = append(order, 1) })
	ts.push(func() { order = append(order, 2) })
	ts.push(func() { order = append(order, 3) })

	ts.runAll()
	ts.runAll() // must be a no-op the second time

	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestSetPhaseUpdatesExporterAndNotifiesReporter(t *testing.T) {
	rep := &recordingReporter{}
	e := New(&config.ExportPlan{}, rep)
	e.setPhase(reporter.PhaseRendering)

	if e.Phase() != reporter.PhaseRendering {
		t.Errorf("Phase() = %v, want rendering", e.Phase())
	}
	if len(rep.phases) != 1 || rep.phases[0] != reporter.PhaseRendering {
		t.Errorf("reported phases = %v, want [rendering]", rep.phases)
	}
}

func TestRunRejectsInvalidPlanWithoutStartingWork(t *testing.T) {
	e := New(&config.ExportPlan{}, nil)
	_, err := e.Run(context.Background())
	if err == nil {
		t.Fatal("expected Run to reject a plan with no video URL")
	}
	if e.Phase() != reporter.PhaseFailed {
		t.Errorf("Phase() = %v, want failed", e.Phase())
	}
}

// recordingReporter captures phase transitions for assertions; every other
// method is a no-op, matching reporter.NullReporter's shape.
type recordingReporter struct {
	reporter.NullReporter
	mu     sync.Mutex
	phases []reporter.Phase
}

func (r *recordingReporter) PhaseChanged(p reporter.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, p)
}
