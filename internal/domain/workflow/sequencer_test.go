package workflow

import (
	"testing"
	"time"

	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/stretchr/testify/require"
)

func threeSteps() *project.Project {
	return &project.Project{
		ID:      "p1",
		OwnerID: "owner",
		Status:  project.StatusInProgress,
		Steps: []project.Step{
			{ID: "s1", StepNumber: 1, AssignedUserID: "carol", Status: project.StepPending},
			{ID: "s3", StepNumber: 3, AssignedUserID: "alice", Status: project.StepPending},
			{ID: "s2", StepNumber: 2, AssignedUserID: "bob", Status: project.StepPending},
		},
	}
}

func stepNumbers(steps []project.Step) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s.StepNumber
	}
	return out
}

func TestNewSequencerOrdersHighestFirst(t *testing.T) {
	seq, err := NewSequencer(threeSteps())
	require.NoError(t, err)
	require.Equal(t, []int{3, 2, 1}, stepNumbers(seq.Steps()))

	_, ok := seq.Current()
	require.False(t, ok)
}

func TestSequencerStepLookup(t *testing.T) {
	p := threeSteps()
	seq, err := NewSequencer(p)
	require.NoError(t, err)

	for _, n := range []int{1, 2, 3} {
		step, ok := seq.Step(n)
		require.True(t, ok)
		require.Equal(t, n, step.StepNumber)
	}
	step, _ := seq.Step(2)
	require.Same(t, &p.Steps[1], step)

	_, ok := seq.Step(4)
	require.False(t, ok)
	_, ok = seq.Step(0)
	require.False(t, ok)
}

func TestNewSequencerRejectsDuplicates(t *testing.T) {
	p := threeSteps()
	p.Steps[2].StepNumber = 1
	_, err := NewSequencer(p)
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestNewSequencerRejectsDanglingPointer(t *testing.T) {
	p := threeSteps()
	n := 7
	p.CurrentStepNumber = &n
	_, err := NewSequencer(p)
	require.ErrorIs(t, err, project.ErrInvalidState)
}

func TestSequencerRunsToCompletion(t *testing.T) {
	p := threeSteps()
	seq, err := NewSequencer(p)
	require.NoError(t, err)
	require.NoError(t, seq.Start())
	require.NoError(t, seq.Check())
	require.Equal(t, 3, *p.CurrentStepNumber)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	next, err := seq.Advance(now)
	require.NoError(t, err)
	require.Equal(t, 2, next.StepNumber)
	require.Equal(t, 2, *p.CurrentStepNumber)
	require.Equal(t, project.StepCompleted, p.Steps[0].Status)
	require.Equal(t, now, *p.Steps[0].CompletedAt)
	require.NoError(t, seq.Check())

	next, err = seq.Advance(now)
	require.NoError(t, err)
	require.Equal(t, 1, next.StepNumber)

	next, err = seq.Advance(now)
	require.NoError(t, err)
	require.Nil(t, next)
	require.Equal(t, project.StatusCompleted, p.Status)
	require.Nil(t, p.CurrentStepNumber)
	require.NoError(t, seq.Check())

	_, err = seq.Advance(now)
	require.ErrorIs(t, err, project.ErrInvalidState)
}

func TestSequencerRewind(t *testing.T) {
	p := threeSteps()
	seq, err := NewSequencer(p)
	require.NoError(t, err)
	require.NoError(t, seq.Start())

	_, err = seq.Rewind()
	require.ErrorIs(t, err, project.ErrNoPriorStep)
	require.Equal(t, 3, *p.CurrentStepNumber)
	require.Equal(t, project.StepInProgress, p.Steps[0].Status)

	_, err = seq.Advance(time.Now())
	require.NoError(t, err)

	prior, err := seq.Rewind()
	require.NoError(t, err)
	require.Equal(t, 3, prior.StepNumber)
	require.Equal(t, 3, *p.CurrentStepNumber)
	require.Equal(t, project.StepInProgress, p.Steps[0].Status)
	require.Nil(t, p.Steps[0].CompletedAt)
	require.Equal(t, project.StepSentBack, p.Steps[1].Status)
	require.NoError(t, seq.Check())

	next, err := seq.Next()
	require.NoError(t, err)
	require.Equal(t, 2, next.StepNumber)
}

func TestSequencerHalt(t *testing.T) {
	p := threeSteps()
	seq, err := NewSequencer(p)
	require.NoError(t, err)
	require.NoError(t, seq.Start())

	require.NoError(t, seq.Halt())
	require.Equal(t, project.StatusCancelled, p.Status)
	require.Nil(t, p.CurrentStepNumber)
	require.Equal(t, project.StepPending, p.Steps[0].Status)
	require.NoError(t, seq.Check())

	require.ErrorIs(t, seq.Halt(), project.ErrInvalidState)
}

func TestSequencerCheckDetectsDrift(t *testing.T) {
	p := threeSteps()
	seq, err := NewSequencer(p)
	require.NoError(t, err)
	require.NoError(t, seq.Start())

	p.Steps[2].Status = project.StepInProgress
	require.ErrorIs(t, seq.Check(), project.ErrInvalidState)
}

func TestNextOnLastStep(t *testing.T) {
	p := &project.Project{
		Status: project.StatusInProgress,
		Steps:  []project.Step{{StepNumber: 5}},
	}
	seq, err := NewSequencer(p)
	require.NoError(t, err)
	require.NoError(t, seq.Start())

	_, err = seq.Next()
	require.ErrorIs(t, err, project.ErrNoNextStep)
	_, err = seq.Prior()
	require.ErrorIs(t, err, project.ErrNoPriorStep)
}
