// Package compensation sequences multi-record writes against a store that
// has no transactions. Each step registers an inverse; when a later step
// fails the inverses of the committed steps run in reverse order.
package compensation

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bizledger/internal/core/apperror"
	"bizledger/pkg/logger"
)

var tracer = otel.Tracer("bizledger/compensation")

// State of a coordinated operation.
type State string

const (
	StateIdle        State = "idle"
	StateExecuting   State = "executing"
	StateCommitted   State = "committed"
	StateRollingBack State = "rolling_back"
	StateRolledBack  State = "rolled_back"
	// StateAbandoned: the request ended before the next step could start.
	// Committed steps stay committed.
	StateAbandoned State = "abandoned"
)

// Step is one write and its inverse.
type Step struct {
	Name string
	Do   func(ctx context.Context) error
	// Undo reverses Do. Nil for steps with nothing to reverse.
	Undo func(ctx context.Context) error
}

// UndoFailure records an inverse that could not be applied.
type UndoFailure struct {
	Step string
	Err  error
}

// Report describes how an operation ended.
type Report struct {
	Operation    string
	State        State
	Committed    []string
	FailedStep   string
	Cause        error
	UndoFailures []UndoFailure
}

// TransitionFunc observes state changes. step is the step being entered or undone.
type TransitionFunc func(operation string, from, to State, step string)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTransitionHook registers fn for every state change.
func WithTransitionHook(fn TransitionFunc) Option {
	return func(c *Coordinator) { c.onTransition = fn }
}

// Coordinator runs step sequences. It is stateless and safe for concurrent use.
type Coordinator struct {
	onTransition TransitionFunc
}

// NewCoordinator creates a coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes steps in order.
//
// A failing first step returns its error (as a database error when it is not
// already an *apperror.AppError); nothing needs undoing. A failure at any
// later step undoes the committed steps newest first and returns a
// DEPENDENT_WRITE_FAILED error. Undo failures are logged and listed in the
// report but never replace the original error.
//
// If ctx is done before a step starts, or a step fails because ctx ended,
// the operation is abandoned without compensation and a TIMEOUT error is
// returned.
func (c *Coordinator) Run(ctx context.Context, operation string, steps ...Step) (*Report, error) {
	ctx, span := tracer.Start(ctx, "compensation."+operation,
		trace.WithAttributes(
			attribute.String("operation", operation),
			attribute.Int("steps", len(steps)),
		))
	defer span.End()

	rep := &Report{Operation: operation, State: StateIdle}
	committed := make([]Step, 0, len(steps))

	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return rep, c.abandon(ctx, span, rep, st.Name, err)
		}

		c.transition(ctx, rep, StateExecuting, st.Name)
		err := c.runStep(ctx, st)
		if err == nil {
			committed = append(committed, st)
			rep.Committed = append(rep.Committed, st.Name)
			continue
		}

		if isContextErr(err) && ctx.Err() != nil {
			return rep, c.abandon(ctx, span, rep, st.Name, err)
		}

		rep.FailedStep = st.Name
		rep.Cause = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "step "+st.Name+" failed")

		if i == 0 {
			c.transition(ctx, rep, StateRolledBack, st.Name)
			logger.Warn(ctx, "operation failed at first step",
				"operation", operation, "step", st.Name, "error", err)
			if appErr, ok := apperror.AsAppError(err); ok {
				return rep, appErr
			}
			return rep, apperror.NewDatabase(err).
				WithDetail("operation", operation).
				WithDetail("step", st.Name)
		}

		c.compensate(ctx, rep, committed)

		appErr := apperror.NewDependentWrite(operation, st.Name, err)
		if len(rep.UndoFailures) > 0 {
			names := make([]string, len(rep.UndoFailures))
			for j, f := range rep.UndoFailures {
				names[j] = f.Step
			}
			appErr = appErr.WithDetail("undo_failures", names)
		}
		return rep, appErr
	}

	c.transition(ctx, rep, StateCommitted, "")
	span.SetStatus(codes.Ok, "")
	return rep, nil
}

func (c *Coordinator) runStep(ctx context.Context, st Step) error {
	ctx, span := tracer.Start(ctx, "step."+st.Name)
	defer span.End()

	if st.Do == nil {
		return nil
	}
	if err := st.Do(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// compensate undoes committed steps newest first. It runs detached from the
// request's cancellation so a client disconnect cannot strand half a rollback.
func (c *Coordinator) compensate(ctx context.Context, rep *Report, committed []Step) {
	undoCtx := context.WithoutCancel(ctx)
	c.transition(undoCtx, rep, StateRollingBack, rep.FailedStep)

	for j := len(committed) - 1; j >= 0; j-- {
		st := committed[j]
		if st.Undo == nil {
			continue
		}

		stepCtx, span := tracer.Start(undoCtx, "undo."+st.Name)
		err := st.Undo(stepCtx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			rep.UndoFailures = append(rep.UndoFailures, UndoFailure{Step: st.Name, Err: err})
			logger.Error(undoCtx, "compensation step failed",
				"operation", rep.Operation,
				"step", st.Name,
				"failed_step", rep.FailedStep,
				"error", err)
		}
		span.End()
	}

	c.transition(undoCtx, rep, StateRolledBack, rep.FailedStep)
	logger.Warn(undoCtx, "operation rolled back",
		"operation", rep.Operation,
		"failed_step", rep.FailedStep,
		"undone", len(committed),
		"undo_failures", len(rep.UndoFailures),
		"error", rep.Cause)
}

func (c *Coordinator) abandon(ctx context.Context, span trace.Span, rep *Report, step string, err error) error {
	rep.Cause = err
	c.transition(ctx, rep, StateAbandoned, step)
	span.SetStatus(codes.Error, "abandoned")
	logger.Warn(ctx, "operation abandoned",
		"operation", rep.Operation,
		"next_step", step,
		"committed", rep.Committed,
		"error", err)
	return apperror.NewTimeout(rep.Operation, err).WithDetail("committed_steps", rep.Committed)
}

func (c *Coordinator) transition(ctx context.Context, rep *Report, to State, step string) {
	from := rep.State
	rep.State = to
	logger.Debug(ctx, "operation state", "operation", rep.Operation, "from", from, "to", to, "step", step)
	if c.onTransition != nil {
		c.onTransition(rep.Operation, from, to, step)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
