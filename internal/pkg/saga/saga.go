// Package saga runs a fixed sequence of steps, each optionally paired with a
// compensating action. A failed step triggers the compensations of every
// completed step in reverse order, so a partial failure always ends in a
// defined terminal state.
//
// States: started -> step N done -> committed | rolled_back | compensation_failed.
package saga

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/beamdash/backend/internal/pkg/saga"

type Phase int

const (
	PhaseStarted Phase = iota
	PhaseStepDone
	PhaseCommitted
	PhaseRolledBack
	PhaseCompensationFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStarted:
		return "started"
	case PhaseStepDone:
		return "step_done"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled_back"
	case PhaseCompensationFailed:
		return "compensation_failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is a point in the saga's life. Step is the 1-based count of
// completed steps.
type State struct {
	Phase Phase
	Step  int
}

func (s State) String() string {
	if s.Phase == PhaseStepDone {
		return fmt.Sprintf("step %d done", s.Step)
	}
	return s.Phase.String()
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	switch s.Phase {
	case PhaseCommitted, PhaseRolledBack, PhaseCompensationFailed:
		return true
	}
	return false
}

type Step struct {
	Name       string
	Do         func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Error reports the failed step and any compensation failures.
type Error struct {
	Saga         string
	Step         string
	Err          error
	Compensation []error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("saga %s: step %s: %v", e.Saga, e.Step, e.Err)
	if len(e.Compensation) > 0 {
		msg += fmt.Sprintf(" (compensation: %v)", errors.Join(e.Compensation...))
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

type Saga struct {
	name     string
	steps    []Step
	state    State
	history  []State
	logger   *zap.Logger
	observer func(name string, s State)
}

type Option func(*Saga)

// WithObserver is notified on every state transition.
func WithObserver(fn func(name string, s State)) Option {
	return func(s *Saga) { s.observer = fn }
}

func New(name string, logger *zap.Logger, opts ...Option) *Saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Saga{name: name, logger: logger.With(zap.String("saga", name))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends a step. Steps added after Run has started are ignored.
func (s *Saga) Add(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

func (s *Saga) State() State { return s.state }

// History returns every state the saga has passed through.
func (s *Saga) History() []State {
	return append([]State(nil), s.history...)
}

func (s *Saga) transition(st State) {
	s.state = st
	s.history = append(s.history, st)
	if s.observer != nil {
		s.observer(s.name, st)
	}
}

// Run executes the steps in order. On failure it compensates the completed
// steps in reverse and returns an *Error wrapping the step error.
// Compensations run even if ctx was cancelled.
func (s *Saga) Run(ctx context.Context) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "saga."+s.name)
	defer span.End()

	s.transition(State{Phase: PhaseStarted})

	for i, step := range s.steps {
		stepCtx, stepSpan := tracer.Start(ctx, s.name+"."+step.Name,
			trace.WithAttributes(attribute.Int("saga.step", i)))
		err := step.Do(stepCtx)
		if err != nil {
			stepSpan.RecordError(err)
			stepSpan.SetStatus(codes.Error, err.Error())
		}
		stepSpan.End()

		if err != nil {
			s.logger.Warn("saga step failed, compensating",
				zap.String("step", step.Name), zap.Int("completed", i), zap.Error(err))
			compErrs := s.compensate(context.WithoutCancel(ctx), i)
			sagaErr := &Error{Saga: s.name, Step: step.Name, Err: err, Compensation: compErrs}
			span.RecordError(sagaErr)
			span.SetStatus(codes.Error, sagaErr.Error())
			if len(compErrs) > 0 {
				s.transition(State{Phase: PhaseCompensationFailed, Step: i})
			} else {
				s.transition(State{Phase: PhaseRolledBack, Step: i})
			}
			span.SetAttributes(attribute.String("saga.state", s.state.String()))
			return sagaErr
		}
		s.transition(State{Phase: PhaseStepDone, Step: i + 1})
	}

	s.transition(State{Phase: PhaseCommitted, Step: len(s.steps)})
	span.SetAttributes(attribute.String("saga.state", s.state.String()))
	return nil
}

// compensate undoes steps [0, completed) in reverse order.
func (s *Saga) compensate(ctx context.Context, completed int) []error {
	var errs []error
	for i := completed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.logger.Error("saga compensation failed", zap.String("step", step.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
		}
	}
	return errs
}
