package checkout

// ProgressDelayMs is the delay before the active step's progress bar fills.
const ProgressDelayMs = 50

// Indicator status values.
const (
	StatusCompleted = "completed"
	StatusActive    = "active"
	StatusPending   = ""
)

// Wizard is a linear step counter over [1, Steps].
type Wizard struct {
	steps   int
	current int
}

// NewWizard starts a wizard at step 1. Fewer than one step is treated as one.
func NewWizard(steps int) *Wizard {
	if steps < 1 {
		steps = 1
	}
	return &Wizard{steps: steps, current: 1}
}

// Steps is the number of steps fixed at construction.
func (w *Wizard) Steps() int { return w.steps }

// Current is the visible step.
func (w *Wizard) Current() int { return w.current }

// AtFinal reports whether the last step is showing.
func (w *Wizard) AtFinal() bool { return w.current == w.steps }

// Next advances one step unless already at the last one.
func (w *Wizard) Next() bool {
	if w.current >= w.steps {
		return false
	}
	w.current++
	return true
}

// Prev goes back one step unless already at the first one.
func (w *Wizard) Prev() bool {
	if w.current <= 1 {
		return false
	}
	w.current--
	return true
}

// Indicator decorates one stepper entry.
type Indicator struct {
	Step            int    `json:"step"`
	Status          string `json:"status"`
	Progress        int    `json:"progress"`
	ProgressDelayMs int    `json:"progress_delay_ms,omitempty"`
}

// Indicators derives the stepper decorations from the current step.
func (w *Wizard) Indicators() []Indicator {
	out := make([]Indicator, 0, w.steps)
	for step := 1; step <= w.steps; step++ {
		ind := Indicator{Step: step, Status: StatusPending}
		switch {
		case step < w.current:
			ind.Status = StatusCompleted
			ind.Progress = 100
		case step == w.current:
			ind.Status = StatusActive
			ind.Progress = 50
			ind.ProgressDelayMs = ProgressDelayMs
		}
		out = append(out, ind)
	}
	return out
}

// Panels reports the visibility of each step panel. Exactly one is visible.
func (w *Wizard) Panels() []bool {
	out := make([]bool, w.steps)
	out[w.current-1] = true
	return out
}
