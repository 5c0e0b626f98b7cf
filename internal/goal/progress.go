package goal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/log"
)

// ProgressFile is the snapshot file name inside a session directory
const ProgressFile = "progress.json"

// ProgressState is the overall lifecycle of work on a goal
type ProgressState string

const (
	ProgressNotStarted ProgressState = "not_started"
	ProgressStarting   ProgressState = "starting"
	ProgressInProgress ProgressState = "in_progress"
	ProgressBlocked    ProgressState = "blocked"
	ProgressCompleting ProgressState = "completing"
	ProgressCompleted  ProgressState = "completed"
	ProgressFailed     ProgressState = "failed"
)

var nominalTransitions = map[ProgressState][]ProgressState{
	ProgressNotStarted: {ProgressStarting},
	ProgressStarting:   {ProgressInProgress, ProgressBlocked, ProgressCompleting, ProgressCompleted, ProgressFailed},
	ProgressInProgress: {ProgressBlocked, ProgressCompleting, ProgressCompleted, ProgressFailed},
	ProgressBlocked:    {ProgressInProgress, ProgressCompleting, ProgressCompleted, ProgressFailed},
	ProgressCompleting: {ProgressInProgress, ProgressBlocked, ProgressCompleted, ProgressFailed},
}

// AllowedTransition reports whether from → to is part of the nominal lifecycle.
// The tracker does not enforce it; off-table transitions are only logged.
func AllowedTransition(from, to ProgressState) bool {
	if from == to {
		return true
	}
	for _, s := range nominalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IterationRecord is one immutable entry of the tracker history
type IterationRecord struct {
	Iteration         int            `json:"iteration"`
	Timestamp         time.Time      `json:"timestamp"`
	Action            string         `json:"action"`
	Result            string         `json:"result"`
	Success           bool           `json:"success"`
	FilesChanged      []string       `json:"files_changed"`
	CriteriaAddressed []string       `json:"criteria_addressed"`
	DurationSeconds   float64        `json:"duration_seconds"`
	Metadata          map[string]any `json:"metadata"`
}

// IterationInput describes an iteration about to be recorded
type IterationInput struct {
	Action            string
	Result            string
	Success           bool
	FilesChanged      []string
	CriteriaAddressed []string
	Duration          time.Duration
	Metadata          map[string]any
}

// Snapshot is the persisted progress document
type Snapshot struct {
	GoalTitle         string                     `json:"goal_title"`
	State             ProgressState              `json:"state"`
	StartedAt         time.Time                  `json:"started_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
	TotalCriteria     int                        `json:"total_criteria"`
	CompletedCriteria int                        `json:"completed_criteria"`
	CurrentIteration  int                        `json:"current_iteration"`
	Iterations        []IterationRecord          `json:"iterations"`
	BlockedReason     string                     `json:"blocked_reason"`
	CriteriaStatus    map[string]CriterionStatus `json:"criteria_status"`
}

// ProgressPercentage is 0 when there are no criteria
func (s *Snapshot) ProgressPercentage() float64 {
	if s.TotalCriteria == 0 {
		return 0
	}
	return float64(s.CompletedCriteria) / float64(s.TotalCriteria) * 100
}

// Duration is the time between start and last update
func (s *Snapshot) Duration() time.Duration {
	return s.UpdatedAt.Sub(s.StartedAt)
}

// MarshalJSON adds the computed progress_percentage and duration_seconds fields
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	return json.Marshal(struct {
		plain
		ProgressPercentage float64 `json:"progress_percentage"`
		DurationSeconds    float64 `json:"duration_seconds"`
	}{
		plain:              plain(s),
		ProgressPercentage: s.ProgressPercentage(),
		DurationSeconds:    s.Duration().Seconds(),
	})
}

// LoadSnapshot reads a progress document; computed fields are ignored
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse progress file: %w", err)
	}
	if s.CriteriaStatus == nil {
		s.CriteriaStatus = map[string]CriterionStatus{}
	}
	return &s, nil
}

// Tracker records iterations against a goal and persists snapshots
type Tracker struct {
	goal       *Goal
	sessionDir string
	autoSave   bool
	snapshot   Snapshot
	logger     *log.Logger
	saveErr    error
}

// NewTracker creates a tracker. With autoSave and a non-empty sessionDir every
// mutation rewrites sessionDir/progress.json.
func NewTracker(g *Goal, sessionDir string, autoSave bool) *Tracker {
	now := time.Now()
	t := &Tracker{
		goal:       g,
		sessionDir: sessionDir,
		autoSave:   autoSave,
		logger:     log.Nop(),
		snapshot: Snapshot{
			GoalTitle:         g.Title,
			State:             ProgressNotStarted,
			StartedAt:         now,
			UpdatedAt:         now,
			TotalCriteria:     g.TotalCriteria(),
			CompletedCriteria: g.CompletedCriteria(),
			Iterations:        []IterationRecord{},
		},
	}
	t.snapshot.CriteriaStatus = criteriaStatus(g)
	return t
}

// SetLogger sets the logger used for save failures and off-table transitions
func (t *Tracker) SetLogger(l *log.Logger) {
	if l != nil {
		t.logger = l
	}
}

func criteriaStatus(g *Goal) map[string]CriterionStatus {
	m := make(map[string]CriterionStatus, len(g.AcceptanceCriteria))
	for _, c := range g.AcceptanceCriteria {
		m[c.ID] = c.Status
	}
	return m
}

// Snapshot returns a copy of the current snapshot
func (t *Tracker) Snapshot() Snapshot {
	s := t.snapshot
	s.Iterations = append([]IterationRecord(nil), t.snapshot.Iterations...)
	s.CriteriaStatus = make(map[string]CriterionStatus, len(t.snapshot.CriteriaStatus))
	for k, v := range t.snapshot.CriteriaStatus {
		s.CriteriaStatus[k] = v
	}
	return s
}

func (t *Tracker) State() ProgressState  { return t.snapshot.State }
func (t *Tracker) CurrentIteration() int { return t.snapshot.CurrentIteration }

// Path is where auto-save writes, or "" without a session directory
func (t *Tracker) Path() string {
	if t.sessionDir == "" {
		return ""
	}
	return filepath.Join(t.sessionDir, ProgressFile)
}

// LastSaveError returns the error of the most recent failed auto-save
func (t *Tracker) LastSaveError() error { return t.saveErr }

func (t *Tracker) transition(to ProgressState) {
	if !AllowedTransition(t.snapshot.State, to) {
		t.logger.Warn("unusual progress transition", "from", t.snapshot.State, "to", to)
	}
	t.snapshot.State = to
}

// Start sets STARTING and stamps the start time; the iteration counter is untouched
func (t *Tracker) Start() {
	t.transition(ProgressStarting)
	t.snapshot.StartedAt = time.Now()
	t.update()
}

// RecordIteration appends a record and advances the counter by one
func (t *Tracker) RecordIteration(in IterationInput) IterationRecord {
	t.snapshot.CurrentIteration++
	rec := IterationRecord{
		Iteration:         t.snapshot.CurrentIteration,
		Timestamp:         time.Now(),
		Action:            in.Action,
		Result:            in.Result,
		Success:           in.Success,
		FilesChanged:      nonNil(in.FilesChanged),
		CriteriaAddressed: nonNil(in.CriteriaAddressed),
		DurationSeconds:   in.Duration.Seconds(),
		Metadata:          in.Metadata,
	}
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	t.snapshot.Iterations = append(t.snapshot.Iterations, rec)

	if t.snapshot.State == ProgressStarting {
		t.snapshot.State = ProgressInProgress
	}
	t.update()
	return rec
}

// UpdateCriterion sets the status of the criterion with the given ID and
// recounts completions. Unknown IDs are ignored.
func (t *Tracker) UpdateCriterion(id string, status CriterionStatus) {
	if _, ok := t.snapshot.CriteriaStatus[id]; !ok {
		t.logger.Warn("ignoring update for unknown criterion", "criterion", id)
		return
	}
	t.snapshot.CriteriaStatus[id] = status

	completed := 0
	for _, s := range t.snapshot.CriteriaStatus {
		if s == StatusCompleted {
			completed++
		}
	}
	t.snapshot.CompletedCriteria = completed
	if completed == t.snapshot.TotalCriteria && completed > 0 {
		t.transition(ProgressCompleting)
	}
	t.update()
}

func (t *Tracker) MarkBlocked(reason string) {
	t.transition(ProgressBlocked)
	t.snapshot.BlockedReason = reason
	t.update()
}

func (t *Tracker) Unblock() {
	t.transition(ProgressInProgress)
	t.snapshot.BlockedReason = ""
	t.update()
}

func (t *Tracker) MarkCompleted() {
	t.transition(ProgressCompleted)
	t.update()
}

func (t *Tracker) MarkFailed(reason string) {
	t.transition(ProgressFailed)
	t.snapshot.BlockedReason = reason
	t.update()
}

// SyncWithGoal replaces the criteria view with g's current state
func (t *Tracker) SyncWithGoal(g *Goal) {
	t.goal = g
	t.snapshot.GoalTitle = g.Title
	t.snapshot.TotalCriteria = g.TotalCriteria()
	t.snapshot.CompletedCriteria = g.CompletedCriteria()
	t.snapshot.CriteriaStatus = criteriaStatus(g)
	t.update()
}

func (t *Tracker) update() {
	t.snapshot.UpdatedAt = time.Now()
	if t.autoSave && t.sessionDir != "" {
		if _, err := t.Save(""); err != nil {
			t.saveErr = err
			t.logger.Warn("failed to save progress", "error", err)
		}
	}
}

// Save writes the snapshot to path, or to the session directory when path is empty
func (t *Tracker) Save(path string) (string, error) {
	if path == "" {
		path = t.Path()
	}
	if path == "" {
		return "", fmt.Errorf("no save path available")
	}
	data, err := json.MarshalIndent(t.snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode progress: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to write progress: %w", err)
	}
	return path, nil
}

// Load replaces the in-memory snapshot with the one stored at path
func (t *Tracker) Load(path string) error {
	s, err := LoadSnapshot(path)
	if err != nil {
		return err
	}
	t.snapshot = *s
	return nil
}

// History returns the last n records, or all of them when n <= 0
func (t *Tracker) History(n int) []IterationRecord {
	its := t.snapshot.Iterations
	if n > 0 && n < len(its) {
		its = its[len(its)-n:]
	}
	return append([]IterationRecord(nil), its...)
}

// Summary renders a short multi-line progress report
func (t *Tracker) Summary() string {
	return SummarizeSnapshot(&t.snapshot)
}

// SummarizeSnapshot renders a short multi-line progress report for s
func SummarizeSnapshot(s *Snapshot) string {
	lines := []string{
		"Goal: " + s.GoalTitle,
		"State: " + string(s.State),
		fmt.Sprintf("Progress: %d/%d (%.1f%%)", s.CompletedCriteria, s.TotalCriteria, s.ProgressPercentage()),
		fmt.Sprintf("Iterations: %d", s.CurrentIteration),
		fmt.Sprintf("Duration: %.1f minutes", s.Duration().Minutes()),
	}
	if s.BlockedReason != "" {
		lines = append(lines, "Blocked: "+s.BlockedReason)
	}
	return strings.Join(lines, "\n")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
