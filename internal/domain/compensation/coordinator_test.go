package compensation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/store"
	"bizledger/internal/infrastructure/storage/memory"
)

type recorder struct {
	states []State
}

func (r *recorder) hook(_ string, _, to State, _ string) {
	r.states = append(r.states, to)
}

func noop(name string, log *[]string) Step {
	return Step{
		Name: name,
		Do:   func(context.Context) error { *log = append(*log, "do:"+name); return nil },
		Undo: func(context.Context) error { *log = append(*log, "undo:"+name); return nil },
	}
}

func TestCoordinator_Commits(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(WithTransitionHook(rec.hook))
	var log []string

	rep, err := c.Run(context.Background(), "create_loan", noop("a", &log), noop("b", &log))
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, rep.State)
	assert.Equal(t, []string{"a", "b"}, rep.Committed)
	assert.Equal(t, []string{"do:a", "do:b"}, log)
	assert.Equal(t, []State{StateExecuting, StateExecuting, StateCommitted}, rec.states)
}

func TestCoordinator_UndoesInReverseOrder(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(WithTransitionHook(rec.hook))
	var log []string
	boom := errors.New("boom")

	failing := Step{Name: "c", Do: func(context.Context) error { return boom }}
	rep, err := c.Run(context.Background(), "pay_installment", noop("a", &log), noop("b", &log), failing)

	require.Error(t, err)
	assert.True(t, apperror.IsDependentWrite(err))
	assert.ErrorIs(t, err, boom)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "c", appErr.Details["step"])

	assert.Equal(t, []string{"do:a", "do:b", "undo:b", "undo:a"}, log)
	assert.Equal(t, StateRolledBack, rep.State)
	assert.Equal(t, "c", rep.FailedStep)
	assert.Equal(t, []State{StateExecuting, StateExecuting, StateExecuting, StateRollingBack, StateRolledBack}, rec.states)
}

func TestCoordinator_FirstStepFailure(t *testing.T) {
	c := NewCoordinator()
	boom := errors.New("connection refused")

	_, err := c.Run(context.Background(), "create_loan", Step{Name: "insert_loan", Do: func(context.Context) error { return boom }})
	assert.True(t, apperror.HasCode(err, apperror.CodeDatabase))
	assert.ErrorIs(t, err, boom)

	notFound := apperror.NewNotFound("installment", "x")
	_, err = c.Run(context.Background(), "pay", Step{Name: "guard", Do: func(context.Context) error { return notFound }})
	assert.Same(t, notFound, err)
}

func TestCoordinator_UndoFailuresAreCollected(t *testing.T) {
	c := NewCoordinator()
	var log []string
	undoErr := errors.New("undo broke")
	boom := errors.New("boom")

	brokenUndo := Step{
		Name: "b",
		Do:   func(context.Context) error { return nil },
		Undo: func(context.Context) error { return undoErr },
	}
	failing := Step{Name: "c", Do: func(context.Context) error { return boom }}

	rep, err := c.Run(context.Background(), "record_return", noop("a", &log), brokenUndo, failing)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom, "the failing step's cause is kept")
	assert.NotErrorIs(t, err, undoErr)
	assert.Equal(t, []string{"do:a", "undo:a"}, log, "later inverses still run")
	require.Len(t, rep.UndoFailures, 1)
	assert.Equal(t, "b", rep.UndoFailures[0].Step)

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, []string{"b"}, appErr.Details["undo_failures"])
}

func TestCoordinator_AbandonsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCoordinator()
	var log []string

	cancelling := Step{
		Name: "a",
		Do:   func(context.Context) error { cancel(); return nil },
		Undo: func(context.Context) error { log = append(log, "undo:a"); return nil },
	}
	rep, err := c.Run(ctx, "create_loan", cancelling, noop("b", &log))

	assert.True(t, apperror.HasCode(err, apperror.CodeTimeout))
	assert.Equal(t, StateAbandoned, rep.State)
	assert.Equal(t, []string{"a"}, rep.Committed)
	assert.Empty(t, log, "no rollback and no further steps")
}

func TestCoordinator_StepCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCoordinator()
	var log []string

	slow := Step{
		Name: "b",
		Do: func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		},
	}
	rep, err := c.Run(ctx, "create_loan", noop("a", &log), slow)

	assert.True(t, apperror.HasCode(err, apperror.CodeTimeout))
	assert.Equal(t, StateAbandoned, rep.State)
	assert.Equal(t, []string{"do:a"}, log)
}

func TestCoordinator_UndoRunsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewCoordinator()
	var undoCtxErr error

	first := Step{
		Name: "a",
		Do:   func(context.Context) error { return nil },
		Undo: func(ctx context.Context) error { undoCtxErr = ctx.Err(); return nil },
	}
	failing := Step{
		Name: "b",
		Do: func(context.Context) error {
			cancel()
			return errors.New("constraint violation")
		},
	}
	// The step failed for its own reason, so compensation runs even though
	// the request was cancelled meanwhile.
	rep, err := c.Run(ctx, "create_loan", first, failing)

	assert.True(t, apperror.IsDependentWrite(err))
	assert.Equal(t, StateRolledBack, rep.State)
	assert.NoError(t, undoCtxErr, "undo context is detached from cancellation")
}

func TestSteps_RollbackRestoresStore(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	loanID, instID, keptID := id.New(), id.New(), id.New()

	s.Seed("loans", store.Row{"id": loanID, "total_paid": "0", "status": "active"})
	s.Seed("notes", store.Row{"id": keptID, "body": "keep me"})

	c := NewCoordinator()
	failErr := errors.New("insert failed")
	s.FailOn(memory.OpInsert, "audit", failErr)

	_, err := c.Run(ctx, "pay_installment",
		Insert(s, "insert_installment", "loan_installments", store.Row{"id": instID, "loan_id": loanID}),
		Update(s, "update_loan", "loans", store.Row{"total_paid": "100", "status": "paid_off"}, store.Eq{"id": loanID}),
		Delete(s, "delete_note", "notes", store.Eq{"id": keptID}),
		Insert(s, "insert_audit", "audit", store.Row{"id": id.New()}),
	)
	require.True(t, apperror.IsDependentWrite(err))

	assert.Empty(t, s.Rows("loan_installments"))
	loans := s.Rows("loans")
	require.Len(t, loans, 1)
	assert.Equal(t, "0", loans[0]["total_paid"])
	assert.Equal(t, "active", loans[0]["status"])
	notes := s.Rows("notes")
	require.Len(t, notes, 1)
	assert.Equal(t, "keep me", notes[0]["body"])
}

func TestUpdateStep_GuardMatchesNothing(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	instID := id.New()
	s.Seed("loan_installments", store.Row{"id": instID, "status": "paid"})

	step := Update(s, "mark_paid", "loan_installments",
		store.Row{"status": "paid"},
		store.Eq{"id": instID, "status": "pending"})

	err := step.Do(ctx)
	assert.ErrorIs(t, err, ErrNoRowsAffected)
}

func TestInsertStep_RequiresID(t *testing.T) {
	step := Insert(memory.New(), "insert", "expenses", store.Row{"amount": 1})
	assert.Error(t, step.Do(context.Background()))
}
