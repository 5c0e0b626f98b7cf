package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	if m == nil {
		t.Fatal("expected metrics, got nil")
	}

	m.ObserveIteration()
	m.ObserveDecision("implement")
	m.ObserveVerification("master", true, 0.9)
	m.ObserveCorrection("succeeded")
	m.ObserveAgentCall("worker", 2*time.Second)
	m.ObserveCheck("syntax", false)
	m.ObserveSession("completed")
	m.ObserveError("orchestrator", fmt.Errorf("plain"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"aiorch_iterations_total",
		"aiorch_decisions_total",
		"aiorch_verifications_total",
		"aiorch_verification_score",
		"aiorch_corrections_total",
		"aiorch_agent_call_duration_seconds",
		"aiorch_checks_total",
		"aiorch_sessions_total",
		"aiorch_errors_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestObserveCounts(t *testing.T) {
	_, m := NewRegistry()

	m.ObserveIteration()
	m.ObserveIteration()
	if got := testutil.ToFloat64(m.Iterations); got != 2 {
		t.Errorf("expected 2 iterations, got %v", got)
	}

	m.ObserveDecision("done")
	if got := testutil.ToFloat64(m.Decisions.WithLabelValues("done")); got != 1 {
		t.Errorf("expected 1 done decision, got %v", got)
	}

	m.ObserveVerification("engine", false, 0.25)
	if got := testutil.ToFloat64(m.Verifications.WithLabelValues("engine", "false")); got != 1 {
		t.Errorf("expected 1 failed engine verification, got %v", got)
	}

	m.ObserveError("checkpoint", errors.NewCheckpointNotFoundError("x"))
	if got := testutil.ToFloat64(m.Errors.WithLabelValues("CHECKPOINT-001", "checkpoint")); got != 1 {
		t.Errorf("expected coded error to be counted, got %v", got)
	}
	m.ObserveError("checkpoint", nil)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveIteration()
	m.ObserveDecision("skip")
	m.ObserveVerification("master", true, 1)
	m.ObserveCorrection("exhausted")
	m.ObserveAgentCall("master", time.Second)
	m.ObserveCheck("tests", true)
	m.ObserveSession("failed")
	m.ObserveError("x", fmt.Errorf("y"))
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	New(reg)
}

func TestWriteTextfile(t *testing.T) {
	reg, m := NewRegistry()
	m.ObserveIteration()
	m.ObserveCheck("syntax", true)

	path := filepath.Join(t.TempDir(), "metrics", "aiorch.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "aiorch_iterations_total 1") {
		t.Errorf("textfile missing iteration counter:\n%s", content)
	}
	if !strings.Contains(content, `aiorch_checks_total{checker="syntax",passed="true"} 1`) {
		t.Errorf("textfile missing check counter:\n%s", content)
	}
}
