package game

// Task is a one-off earning task from the task catalog.
type Task struct {
	ID             int64  `json:"id"`
	Category       string `json:"category"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Reward         int64  `json:"reward"`
	ActionType     string `json:"action_type"`
	ActionURL      string `json:"action_url,omitempty"`
	RequiredLeague League `json:"required_league,omitempty"`
	SortOrder      int    `json:"sort_order"`
}

type TaskStatus string

const (
	TaskLocked    TaskStatus = "locked"
	TaskAvailable TaskStatus = "available"
	TaskCompleted TaskStatus = "completed"
)

// unlocked reports whether the player's league meets the task's requirement.
func (t Task) unlocked(p PlayerState) bool {
	return t.RequiredLeague == "" || p.League.Rank() >= t.RequiredLeague.Rank()
}

// TaskStatusFor is the status shown to the player.
func TaskStatusFor(p PlayerState, t Task, completed bool) TaskStatus {
	switch {
	case completed:
		return TaskCompleted
	case !t.unlocked(p):
		return TaskLocked
	default:
		return TaskAvailable
	}
}

// ClaimTask pays the task reward. Completion is checked by the caller, which
// also records it in the same transaction as the new state.
func (e *Engine) ClaimTask(p PlayerState, t Task, completed bool) (CreditResult, error) {
	res := CreditResult{Amount: t.Reward, OldBalance: p.Balance, State: p}
	if p.Restricted {
		return res, ErrRestricted
	}
	if completed {
		return res, ErrAlreadyClaimed
	}
	if !t.unlocked(p) {
		return res, ErrLeagueLocked
	}
	return e.Credit(p, t.Reward)
}
