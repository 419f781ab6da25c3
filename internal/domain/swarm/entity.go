package swarm

import (
	"time"

	"crisiswatch/pkg/errors"
)

// ErrInvalidTransition is returned when a status change would leave a terminal state
var ErrInvalidTransition = errors.New("invalid agent status transition")

// AgentStatus is the lifecycle state of a collection agent
type AgentStatus string

const (
	AgentIdle       AgentStatus = "idle"
	AgentCollecting AgentStatus = "collecting"
	AgentProcessing AgentStatus = "processing"
	AgentCompleted  AgentStatus = "completed"
	AgentError      AgentStatus = "error"
)

// Terminal reports whether the status is final
func (s AgentStatus) Terminal() bool {
	return s == AgentCompleted || s == AgentError
}

// rank orders the non-terminal states; a status may only move forward
func (s AgentStatus) rank() int {
	switch s {
	case AgentIdle:
		return 0
	case AgentCollecting:
		return 1
	case AgentProcessing:
		return 2
	default:
		return 3
	}
}

// AgentType groups agents by the kind of data they produce
type AgentType string

const (
	TypeNews         AgentType = "news"
	TypeSocial       AgentType = "social"
	TypeProfessional AgentType = "professional"
	TypeMarket       AgentType = "market"
	TypeSentiment    AgentType = "sentiment"
	TypeRealtime     AgentType = "realtime"
	TypeCrisis       AgentType = "crisis"
	TypePlatform     AgentType = "platform"
	TypeStakeholder  AgentType = "stakeholder"
	TypeGeographic   AgentType = "geographic"
	TypeCompetitor   AgentType = "competitor"
	TypeRisk         AgentType = "risk"
)

// DataAgent is one logical unit of collection work
type DataAgent struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Type       AgentType   `json:"type"`
	Status     AgentStatus `json:"status"`
	Progress   int         `json:"progress"` // 0-100
	DataPoints int         `json:"data_points"`
	Errors     []string    `json:"errors"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewDataAgent creates an idle agent
func NewDataAgent(id, name string, agentType AgentType) DataAgent {
	return DataAgent{
		ID:     id,
		Name:   name,
		Type:   agentType,
		Status: AgentIdle,
		Errors: []string{},
	}
}

// Transition moves the agent to a new status.
// Terminal agents never change; non-terminal agents never move backwards.
func (a *DataAgent) Transition(to AgentStatus) error {
	if a.Status.Terminal() || to.rank() < a.Status.rank() {
		return errors.Wrapf(ErrInvalidTransition, "%s: %s -> %s", a.ID, a.Status, to)
	}

	a.Status = to
	if to == AgentCompleted {
		a.Progress = 100
	}
	return nil
}

// SetProgress raises progress; lower values and updates after termination are ignored.
func (a *DataAgent) SetProgress(progress int) bool {
	if a.Status.Terminal() {
		return false
	}
	if progress > 100 {
		progress = 100
	}
	if progress <= a.Progress {
		return false
	}
	a.Progress = progress
	return true
}

// AddDataPoints accumulates collected records
func (a *DataAgent) AddDataPoints(n int) bool {
	if a.Status.Terminal() || n <= 0 {
		return false
	}
	a.DataPoints += n
	return true
}

// Fail records the error and moves the agent to AgentError
func (a *DataAgent) Fail(msg string) bool {
	if a.Status.Terminal() {
		return false
	}
	a.Errors = append(a.Errors, msg)
	a.Status = AgentError
	return true
}

// Clone returns a copy that shares no memory with a
func (a DataAgent) Clone() DataAgent {
	a.Errors = append([]string{}, a.Errors...)
	return a
}

// Status of the swarm as a whole
type Status string

const (
	StatusIdle        Status = "idle"
	StatusCollecting  Status = "collecting"
	StatusAggregating Status = "aggregating"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// AgentSwarm is the roster of agents working on one company
type AgentSwarm struct {
	ID                  string      `json:"id"`
	CompanyName         string      `json:"company_name"`
	StartDate           time.Time   `json:"start_date"`
	EndDate             *time.Time  `json:"end_date,omitempty"`
	Agents              []DataAgent `json:"agents"`
	OverallProgress     float64     `json:"overall_progress"`
	Status              Status      `json:"status"`
	TotalDataPoints     int         `json:"total_data_points"`
	EstimatedCompletion *time.Time  `json:"estimated_completion,omitempty"`
	Epoch               uint64      `json:"epoch"`
}

// Agent returns the agent with the given id or nil
func (s *AgentSwarm) Agent(id string) *DataAgent {
	for i := range s.Agents {
		if s.Agents[i].ID == id {
			return &s.Agents[i]
		}
	}
	return nil
}

// Recompute derives overall progress (mean) and total data points (sum)
func (s *AgentSwarm) Recompute(now time.Time) {
	if len(s.Agents) == 0 {
		s.OverallProgress = 0
		s.TotalDataPoints = 0
		return
	}

	progress, points := 0, 0
	for _, a := range s.Agents {
		progress += a.Progress
		points += a.DataPoints
	}
	s.OverallProgress = float64(progress) / float64(len(s.Agents))
	s.TotalDataPoints = points

	if s.OverallProgress > 0 && s.OverallProgress < 100 && !s.StartDate.IsZero() {
		elapsed := now.Sub(s.StartDate)
		eta := s.StartDate.Add(time.Duration(float64(elapsed) * 100 / s.OverallProgress))
		s.EstimatedCompletion = &eta
	}
}

// AllTerminal reports whether every agent has settled
func (s *AgentSwarm) AllTerminal() bool {
	for _, a := range s.Agents {
		if !a.Status.Terminal() {
			return false
		}
	}
	return true
}

// Failed returns the agents that ended in error
func (s *AgentSwarm) Failed() []DataAgent {
	var failed []DataAgent
	for _, a := range s.Agents {
		if a.Status == AgentError {
			failed = append(failed, a)
		}
	}
	return failed
}

// Snapshot returns a deep copy safe to hand to observers
func (s *AgentSwarm) Snapshot() AgentSwarm {
	c := *s
	c.Agents = make([]DataAgent, len(s.Agents))
	for i, a := range s.Agents {
		c.Agents[i] = a.Clone()
	}
	if s.EndDate != nil {
		end := *s.EndDate
		c.EndDate = &end
	}
	if s.EstimatedCompletion != nil {
		eta := *s.EstimatedCompletion
		c.EstimatedCompletion = &eta
	}
	return c
}
