// Package goal models a written goal, tracks progress against it and
// validates its acceptance criteria.
package goal

import "fmt"

// CriterionStatus is the lifecycle of one acceptance criterion
type CriterionStatus string

const (
	StatusPending    CriterionStatus = "pending"
	StatusInProgress CriterionStatus = "in_progress"
	StatusCompleted  CriterionStatus = "completed"
	StatusFailed     CriterionStatus = "failed"
)

// AcceptanceCriterion is one checkable condition of a goal. ID is assigned at
// parse time from the criterion's position and is the join key used by the
// tracker and the validator.
type AcceptanceCriterion struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Status      CriterionStatus `json:"status"`
	Completed   bool            `json:"completed"`
	Priority    int             `json:"priority"`
	Tags        []string        `json:"tags,omitempty"`
}

// MarkCompleted sets the criterion completed
func (c *AcceptanceCriterion) MarkCompleted() {
	c.Completed = true
	c.Status = StatusCompleted
}

// MarkFailed sets the criterion failed
func (c *AcceptanceCriterion) MarkFailed() {
	c.Completed = false
	c.Status = StatusFailed
}

// Goal is a parsed goal document
type Goal struct {
	Title               string                 `json:"title"`
	Description         string                 `json:"description"`
	AcceptanceCriteria  []*AcceptanceCriterion `json:"acceptance_criteria"`
	QualityRequirements []string               `json:"quality_requirements"`
	Constraints         []string               `json:"constraints"`
	Metadata            map[string]any         `json:"metadata,omitempty"`
	RawContent          string                 `json:"-"`
}

// NewGoal builds a goal programmatically; every criterion starts pending
func NewGoal(title, description string, criteria, quality, constraints []string) *Goal {
	g := &Goal{
		Title:               title,
		Description:         description,
		QualityRequirements: append([]string{}, quality...),
		Constraints:         append([]string{}, constraints...),
		Metadata:            map[string]any{},
	}
	for _, desc := range criteria {
		g.addCriterion(desc, false)
	}
	return g
}

func (g *Goal) addCriterion(desc string, completed bool) *AcceptanceCriterion {
	c := &AcceptanceCriterion{
		ID:          fmt.Sprintf("AC-%d", len(g.AcceptanceCriteria)+1),
		Description: desc,
		Status:      StatusPending,
		Priority:    1,
	}
	if completed {
		c.MarkCompleted()
	}
	g.AcceptanceCriteria = append(g.AcceptanceCriteria, c)
	return c
}

func (g *Goal) TotalCriteria() int {
	return len(g.AcceptanceCriteria)
}

func (g *Goal) CompletedCriteria() int {
	n := 0
	for _, c := range g.AcceptanceCriteria {
		if c.Completed {
			n++
		}
	}
	return n
}

// ProgressPercentage is 0 for a goal without criteria
func (g *Goal) ProgressPercentage() float64 {
	if g.TotalCriteria() == 0 {
		return 0
	}
	return float64(g.CompletedCriteria()) / float64(g.TotalCriteria()) * 100
}

// IsAchieved holds iff every criterion is completed and there is at least one
func (g *Goal) IsAchieved() bool {
	if len(g.AcceptanceCriteria) == 0 {
		return false
	}
	for _, c := range g.AcceptanceCriteria {
		if !c.Completed {
			return false
		}
	}
	return true
}

// PendingCriteria returns the criteria not yet completed, in order
func (g *Goal) PendingCriteria() []*AcceptanceCriterion {
	var pending []*AcceptanceCriterion
	for _, c := range g.AcceptanceCriteria {
		if !c.Completed {
			pending = append(pending, c)
		}
	}
	return pending
}

// NextCriterion returns the pending criterion with the lowest priority value.
// Ties go to the first one in document order.
func (g *Goal) NextCriterion() *AcceptanceCriterion {
	var next *AcceptanceCriterion
	for _, c := range g.PendingCriteria() {
		if next == nil || c.Priority < next.Priority {
			next = c
		}
	}
	return next
}

// FindCriterion looks a criterion up by ID
func (g *Goal) FindCriterion(id string) *AcceptanceCriterion {
	for _, c := range g.AcceptanceCriteria {
		if c.ID == id {
			return c
		}
	}
	return nil
}
