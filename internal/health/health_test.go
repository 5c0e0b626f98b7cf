package health

import (
	"context"
	"testing"
	"time"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
)

type mockChecker struct {
	name   string
	result *Result
	delay  time.Duration
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(ctx context.Context) *Result {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return Unhealthy("check cancelled").WithDetail("error", ctx.Err().Error())
		}
	}
	return m.result
}

func TestManagerCheck(t *testing.T) {
	manager := NewManager()
	manager.AddChecker(&mockChecker{name: "a", result: Healthy("ok")})
	manager.AddChecker(&mockChecker{name: "b", result: Degraded("meh")})

	results := manager.Check(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results["a"].Status != StatusHealthy || results["b"].Status != StatusDegraded {
		t.Errorf("unexpected statuses: %v, %v", results["a"].Status, results["b"].Status)
	}
	if results["a"].Latency == 0 {
		t.Error("latency should be recorded")
	}
	if manager.Count() != 2 {
		t.Errorf("Count = %d, want 2", manager.Count())
	}
}

func TestManagerTimeout(t *testing.T) {
	manager := NewManager().WithTimeout(20 * time.Millisecond)
	manager.AddChecker(&mockChecker{name: "slow", result: Healthy("late"), delay: 5 * time.Second})

	results := manager.Check(context.Background())
	if results["slow"].Status != StatusUnhealthy {
		t.Errorf("slow check should be cancelled, got %v", results["slow"].Status)
	}
}

func TestManagerNilResult(t *testing.T) {
	manager := NewManager()
	manager.AddChecker(&mockChecker{name: "broken"})
	if got := manager.Check(context.Background())["broken"].Status; got != StatusUnhealthy {
		t.Errorf("nil result should be unhealthy, got %v", got)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]*Result
		want    Status
	}{
		{"empty", map[string]*Result{}, StatusHealthy},
		{"all healthy", map[string]*Result{"a": Healthy(""), "b": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]*Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"one unhealthy", map[string]*Result{"a": Degraded(""), "b": Unhealthy("")}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportSorted(t *testing.T) {
	manager := NewManager()
	manager.AddChecker(&mockChecker{name: "zeta", result: Healthy("ok")})
	manager.AddChecker(&mockChecker{name: "alpha", result: Unhealthy("down")})

	report := manager.Report(context.Background())
	if report.Status != StatusUnhealthy {
		t.Errorf("report status = %v, want unhealthy", report.Status)
	}
	if len(report.Results) != 2 || report.Results[0].Name != "alpha" || report.Results[1].Name != "zeta" {
		t.Errorf("results not sorted by name: %+v", report.Results)
	}
}

func TestBinaryChecker(t *testing.T) {
	ok := NewBinaryChecker("sh", true)
	if ok.Name() != "sh-binary" {
		t.Errorf("Name() = %q", ok.Name())
	}

	missingRequired := NewBinaryChecker("definitely-not-a-real-binary-xyz", true)
	if got := missingRequired.Check(context.Background()).Status; got != StatusUnhealthy {
		t.Errorf("missing required binary should be unhealthy, got %v", got)
	}

	missingOptional := NewBinaryChecker("definitely-not-a-real-binary-xyz", false)
	if got := missingOptional.Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("missing optional binary should be degraded, got %v", got)
	}
}

func TestParseVersion(t *testing.T) {
	tests := map[string]string{
		"git version 2.42.0.windows.1": "2.42.0",
		"Python 3.11.4":                "3.11.4",
		"claude 1.0 (Claude Code)":     "1.0",
		"no version here":              "",
	}
	for in, want := range tests {
		if got := parseVersion(in); got != want {
			t.Errorf("parseVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAgentChecker(t *testing.T) {
	up := agent.NewFake(agent.TypeClaude)
	down := agent.NewFake(agent.TypeCodex)
	down.Available = false

	if got := NewAgentChecker().Check(context.Background()).Status; got != StatusUnhealthy {
		t.Errorf("no agents should be unhealthy, got %v", got)
	}
	if got := NewAgentChecker(up).Check(context.Background()).Status; got != StatusHealthy {
		t.Errorf("available agent should be healthy, got %v", got)
	}
	if got := NewAgentChecker(up, down).Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("partial availability should be degraded, got %v", got)
	}
	if got := NewAgentChecker(down).Check(context.Background()).Status; got != StatusUnhealthy {
		t.Errorf("no available agent should be unhealthy, got %v", got)
	}
}
