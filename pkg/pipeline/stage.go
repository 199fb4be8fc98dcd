// Package pipeline runs an exchange through nested stages.
//
// A Stage only supplies the logic before and after the inner call; the chain
// itself performs the delegation, so a stage can neither skip it (short of
// deliberately terminating with stop=true) nor repeat it:
//
//	Global.Before → Route.Before → Filter.Before → action
//	Global.After  ← Route.After  ← Filter.After  ←
//
// Faults flow outward as result.Result values. A panic raised by a stage or
// anything below it becomes a fault at the point it is recovered, and every
// enclosing stage whose Before completed still runs its After.
package pipeline

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/metrics"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

// Stage wraps the inner part of the pipeline.
type Stage interface {
	Name() string
	// Before runs on the way in. Returning stop=true terminates the request
	// with res; the inner call is then skipped.
	Before(x *ctx.Context) (res result.Result, stop bool)
	// After runs on the way out and observes the inner result.
	After(x *ctx.Context, res result.Result)
}

// Action is a terminal handler.
type Action func(x *ctx.Context) result.Result

// Hooks adapts a pair of functions to Stage. Either hook may be nil.
type Hooks struct {
	StageName string
	Pre       func(x *ctx.Context)
	Post      func(x *ctx.Context, res result.Result)
}

func (h Hooks) Name() string { return h.StageName }

func (h Hooks) Before(x *ctx.Context) (result.Result, bool) {
	if h.Pre != nil {
		h.Pre(x)
	}
	return result.Result{}, false
}

func (h Hooks) After(x *ctx.Context, res result.Result) {
	if h.Post != nil {
		h.Post(x, res)
	}
}

// State is the lifecycle position of one stage run.
type State int

const (
	NotStarted State = iota
	PreProcessing
	Delegated
	PostProcessing
	Done
	Faulted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case PreProcessing:
		return "pre_processing"
	case Delegated:
		return "delegated"
	case PostProcessing:
		return "post_processing"
	case Done:
		return "done"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Run executes stages around inner. stages[0] is outermost.
func Run(x *ctx.Context, stages []Stage, inner Action) result.Result {
	return run(x, stages, inner)
}

func run(x *ctx.Context, stages []Stage, inner Action) result.Result {
	if len(stages) == 0 {
		return call(x, inner)
	}
	r := &stageRun{stage: stages[0], start: time.Now()}
	return r.execute(x, func(x *ctx.Context) result.Result {
		return run(x, stages[1:], inner)
	})
}

type stageRun struct {
	stage Stage
	state State
	start time.Time
}

func (r *stageRun) execute(x *ctx.Context, next Action) result.Result {
	name := r.stage.Name()

	r.transition(x, PreProcessing)
	logger.WithCtx(x.Context()).Info("stage", "stage", name, "event", "entering")

	var (
		res  result.Result
		stop bool
	)
	if err := guard(func() { res, stop = r.stage.Before(x) }); err != nil {
		logPanic(x, err)
		// Before did not complete, so After is not owed.
		return r.finish(x, result.Fault(err))
	}

	if stop {
		// Termination without a result still answers the request.
		if res.Status == 0 && res.Body == nil && res.Err == nil {
			res = result.New(http.StatusNoContent, nil)
		}
	} else {
		r.transition(x, Delegated)
		res = next(x)
	}

	r.transition(x, PostProcessing)
	if err := guard(func() { r.stage.After(x, res) }); err != nil {
		logPanic(x, err)
		res = result.Fault(err)
	}
	return r.finish(x, res)
}

func (r *stageRun) finish(x *ctx.Context, res result.Result) result.Result {
	final := Done
	if res.Faulted() {
		final = Faulted
	}
	r.transition(x, final)

	log := logger.WithCtx(x.Context())
	args := []any{"stage", r.stage.Name(), "event", "exiting", "state", final.String(), "status", res.StatusCode()}
	if res.Faulted() {
		args = append(args, "error", res.Err.Error())
	}
	log.Info("stage", args...)

	metrics.ObserveStage(r.stage.Name(), final.String(), r.start)
	return res
}

func (r *stageRun) transition(x *ctx.Context, next State) {
	logger.WithCtx(x.Context()).Debug("stage transition",
		"stage", r.stage.Name(),
		"from", r.state.String(),
		"to", next.String(),
	)
	r.state = next
}

// call runs an action with panic recovery.
func call(x *ctx.Context, a Action) (res result.Result) {
	if a == nil {
		return result.Fault(result.ErrNoResult)
	}
	if err := guard(func() { res = a(x) }); err != nil {
		logPanic(x, err)
		return result.Fault(err)
	}
	return res
}

// guard runs fn and converts a panic into a *result.PanicError.
func guard(fn func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &result.PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}

// logPanic writes the stack of a recovered panic once, where it became a
// fault.
func logPanic(x *ctx.Context, err error) {
	var pe *result.PanicError
	if errors.As(err, &pe) {
		logger.WithCtx(x.Context()).Error("panic recovered", "error", pe.Error(), "stack", string(pe.Stack))
	}
}
