package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultTimeout bounds each check unless WithTimeout overrides it
const DefaultTimeout = 5 * time.Second

// Manager runs a fixed set of checkers concurrently. Register every checker
// before the first Check or Report.
type Manager struct {
	checkers []Checker
	timeout  time.Duration
}

func NewManager() *Manager {
	return &Manager{timeout: DefaultTimeout}
}

func (m *Manager) WithTimeout(timeout time.Duration) *Manager {
	if timeout > 0 {
		m.timeout = timeout
	}
	return m
}

func (m *Manager) AddChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// run returns one result per checker in registration order
func (m *Manager) run(ctx context.Context) []NamedResult {
	out := make([]NamedResult, len(m.checkers))
	var wg sync.WaitGroup
	for i, c := range m.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = NamedResult{Name: c.Name(), Result: m.runOne(ctx, c)}
		}()
	}
	wg.Wait()
	return out
}

func (m *Manager) runOne(ctx context.Context, c Checker) *Result {
	checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	result := c.Check(checkCtx)
	if result == nil {
		result = Unhealthy("check returned no result")
	}
	if result.Latency == 0 {
		result.Latency = time.Since(start)
	}
	return result
}

// Check runs all checks and keys the results by checker name
func (m *Manager) Check(ctx context.Context) map[string]*Result {
	results := make(map[string]*Result, len(m.checkers))
	for _, nr := range m.run(ctx) {
		results[nr.Name] = nr.Result
	}
	return results
}

type NamedResult struct {
	Name string `json:"name" yaml:"name"`
	*Result
}

// Report is the outcome of a full health check run
type Report struct {
	Status  Status        `json:"status" yaml:"status"`
	Results []NamedResult `json:"checks" yaml:"checks"`
}

// Report runs every check; results are sorted by name
func (m *Manager) Report(ctx context.Context) *Report {
	results := m.run(ctx)
	sort.SliceStable(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	report := &Report{Status: StatusHealthy, Results: results}
	for _, nr := range results {
		report.Status = worse(report.Status, nr.Status)
	}
	return report
}

// OverallStatus is the worst status among results
func OverallStatus(results map[string]*Result) Status {
	status := StatusHealthy
	for _, r := range results {
		status = worse(status, r.Status)
	}
	return status
}

func worse(a, b Status) Status {
	rank := func(s Status) int {
		switch s {
		case StatusUnhealthy:
			return 2
		case StatusDegraded:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func (m *Manager) CheckNames() []string {
	names := make([]string, len(m.checkers))
	for i, c := range m.checkers {
		names[i] = c.Name()
	}
	return names
}

func (m *Manager) Count() int { return len(m.checkers) }
