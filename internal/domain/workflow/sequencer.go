package workflow

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/rpggio/stepflow/internal/domain/project"
)

// ExecutionOrder orders steps the way they run: highest step_number first.
func ExecutionOrder(a, b project.Step) int {
	return cmp.Compare(b.StepNumber, a.StepNumber)
}

// Sequencer owns a project's steps in execution order and the index of the active one.
type Sequencer struct {
	proj   *project.Project
	cursor int
}

// NewSequencer orders proj.Steps in place and locates the current-step pointer.
func NewSequencer(proj *project.Project) (*Sequencer, error) {
	slices.SortStableFunc(proj.Steps, ExecutionOrder)
	for i := 1; i < len(proj.Steps); i++ {
		if proj.Steps[i].StepNumber == proj.Steps[i-1].StepNumber {
			return nil, fmt.Errorf("%w: duplicate step_number %d", project.ErrInvalidInput, proj.Steps[i].StepNumber)
		}
	}

	seq := &Sequencer{proj: proj, cursor: -1}
	if proj.CurrentStepNumber != nil {
		idx, found := seq.index(*proj.CurrentStepNumber)
		if !found {
			return nil, fmt.Errorf("%w: current step %d does not exist", project.ErrInvalidState, *proj.CurrentStepNumber)
		}
		seq.cursor = idx
	}
	return seq, nil
}

// Project returns the project the sequencer operates on.
func (q *Sequencer) Project() *project.Project {
	return q.proj
}

// Step returns the step with the given number.
func (q *Sequencer) Step(number int) (*project.Step, bool) {
	idx, found := q.index(number)
	if !found {
		return nil, false
	}
	return &q.proj.Steps[idx], true
}

func (q *Sequencer) index(number int) (int, bool) {
	return slices.BinarySearchFunc(q.proj.Steps, number, func(s project.Step, n int) int {
		return cmp.Compare(n, s.StepNumber)
	})
}

// Steps returns the steps in execution order.
func (q *Sequencer) Steps() []project.Step {
	return q.proj.Steps
}

// Current returns the active step.
func (q *Sequencer) Current() (*project.Step, bool) {
	if q.cursor < 0 {
		return nil, false
	}
	return &q.proj.Steps[q.cursor], true
}

// Next returns the step that runs after the current one.
func (q *Sequencer) Next() (*project.Step, error) {
	if q.cursor < 0 {
		return nil, project.ErrInvalidState
	}
	if q.cursor+1 >= len(q.proj.Steps) {
		return nil, project.ErrNoNextStep
	}
	return &q.proj.Steps[q.cursor+1], nil
}

// Prior returns the step that ran before the current one.
func (q *Sequencer) Prior() (*project.Step, error) {
	if q.cursor < 0 {
		return nil, project.ErrInvalidState
	}
	if q.cursor == 0 {
		return nil, project.ErrNoPriorStep
	}
	return &q.proj.Steps[q.cursor-1], nil
}

// Start activates the first step in execution order.
func (q *Sequencer) Start() error {
	if len(q.proj.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", project.ErrInvalidInput)
	}
	for i := range q.proj.Steps {
		q.proj.Steps[i].Status = project.StepPending
		q.proj.Steps[i].CompletedAt = nil
	}
	q.proj.Status = project.StatusInProgress
	q.moveTo(0)
	return nil
}

// Advance completes the current step and activates the next one. It returns
// nil when the completed step was the last, in which case the project is completed.
func (q *Sequencer) Advance(now time.Time) (*project.Step, error) {
	cur, err := q.active()
	if err != nil {
		return nil, err
	}

	next, err := q.Next()
	cur.Status = project.StepCompleted
	completedAt := now
	cur.CompletedAt = &completedAt

	if err != nil {
		q.proj.Status = project.StatusCompleted
		q.proj.CurrentStepNumber = nil
		q.cursor = -1
		return nil, nil
	}

	next.Status = project.StepInProgress
	q.moveTo(q.cursor + 1)
	return next, nil
}

// Rewind sends the project back to the step that ran before the current one.
func (q *Sequencer) Rewind() (*project.Step, error) {
	cur, err := q.active()
	if err != nil {
		return nil, err
	}
	prior, err := q.Prior()
	if err != nil {
		return nil, err
	}

	cur.Status = project.StepSentBack
	prior.Status = project.StepInProgress
	prior.CompletedAt = nil
	q.moveTo(q.cursor - 1)
	return prior, nil
}

// Halt cancels the project, returning the active step to pending.
func (q *Sequencer) Halt() error {
	cur, err := q.active()
	if err != nil {
		return err
	}
	cur.Status = project.StepPending
	q.proj.Status = project.StatusCancelled
	q.proj.CurrentStepNumber = nil
	q.cursor = -1
	return nil
}

// Check verifies the pointer and step statuses agree.
func (q *Sequencer) Check() error {
	inProgress := 0
	for _, s := range q.proj.Steps {
		if s.Status == project.StepInProgress {
			inProgress++
		}
	}

	if q.proj.Status != project.StatusInProgress {
		if q.proj.CurrentStepNumber != nil || inProgress != 0 {
			return fmt.Errorf("%w: %s project has an active step", project.ErrInvalidState, q.proj.Status)
		}
		return nil
	}

	cur, ok := q.Current()
	if !ok || q.proj.CurrentStepNumber == nil || *q.proj.CurrentStepNumber != cur.StepNumber {
		return fmt.Errorf("%w: active project has no current step", project.ErrInvalidState)
	}
	if inProgress != 1 || cur.Status != project.StepInProgress {
		return fmt.Errorf("%w: expected exactly one step in progress, found %d", project.ErrInvalidState, inProgress)
	}
	for i, s := range q.proj.Steps {
		switch {
		case i < q.cursor && s.Status != project.StepCompleted:
			return fmt.Errorf("%w: step %d ran before the current step but is %s", project.ErrInvalidState, s.StepNumber, s.Status)
		case i > q.cursor && s.Status != project.StepPending && s.Status != project.StepSentBack:
			return fmt.Errorf("%w: step %d has not run yet but is %s", project.ErrInvalidState, s.StepNumber, s.Status)
		}
	}
	return nil
}

func (q *Sequencer) active() (*project.Step, error) {
	if q.proj.Status != project.StatusInProgress {
		return nil, fmt.Errorf("%w: project is %s", project.ErrInvalidState, q.proj.Status)
	}
	cur, ok := q.Current()
	if !ok {
		return nil, fmt.Errorf("%w: no active step", project.ErrInvalidState)
	}
	return cur, nil
}

func (q *Sequencer) moveTo(idx int) {
	q.cursor = idx
	n := q.proj.Steps[idx].StepNumber
	q.proj.CurrentStepNumber = &n
	q.proj.Steps[idx].Status = project.StepInProgress
}
