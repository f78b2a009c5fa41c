package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
)

// Unit is a long-running component managed by a Runner.
type Unit struct {
	// Name of this unit, used by the logger and in error messages.
	Name string
	// Serve runs the unit. It blocks until the unit exits; a nil return during
	// normal operation is treated as an unexpected exit.
	Serve func(ctx context.Context) error
	// Stop stops the unit gracefully. May be nil.
	Stop func() error
}

// Runner manages the lifecycle of a set of units, abstracting away the
// complexities of shutting them down as well as collecting any unexpected
// errors they encounter.
type Runner struct {
	// Allows a client to pass a custom logger to this runner.
	log *slog.Logger
	// Name of this runner, which will be used by the logger.
	name string
	// The units managed by this runner.
	units []Unit
	// Protects the errors, ensuring that we collect any unit error.
	errorsMutex sync.Mutex
	// Collects any errors encountered by a unit asynchronously.
	errors *multierror.Error
	// Contains the error callbacks.
	errorCallbacks []func(error)
	// Indicates that this runner is currently terminating.
	terminating atomic.Bool
	// Ensures that this runner attempts to terminate a single time.
	terminateOnce sync.Once
	// Cancels the context passed to unit Serves.
	cancelUnits context.CancelFunc
}

// New returns a new runner.
func New(name string, units ...Unit) *Runner {
	return &Runner{
		log:   slog.Default(),
		name:  name,
		units: units,
	}
}

// WithLogger sets this runner's logger.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	r.log = logger
	return r
}

// OnError calls the given callback if this runner shuts down unexpectedly.
// Non-blocking call.
func (r *Runner) OnError(callback func(error)) *Runner {
	r.errorCallbacks = append(r.errorCallbacks, callback)
	return r
}

// GetError returns any error collected from units as a single error.
func (r *Runner) GetError() error {
	r.errorsMutex.Lock()
	defer r.errorsMutex.Unlock()
	return r.errors.ErrorOrNil()
}

// Run runs this runner, serving its units in parallel. It blocks until every
// unit has exited and returns the collected errors, if any. Cancelling ctx
// triggers a graceful exit.
func (r *Runner) Run(ctx context.Context) error {
	r.log = r.log.With("runner", r.name)
	// Units get a context detached from ctx. It is cancelled by terminate,
	// after the terminating flag is set.
	unitCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancelUnits = cancel
	go func() {
		<-ctx.Done()
		r.Exit()
	}()

	wg := sync.WaitGroup{}
	wg.Add(len(r.units))
	for _, unit := range r.units {
		go func() {
			r.runUnit(unitCtx, unit)
			wg.Done()
		}()
	}
	wg.Wait()
	return r.GetError()
}

func (r *Runner) runUnit(ctx context.Context, unit Unit) {
	r.log.InfoContext(ctx, "starting unit", "unit", unit.Name)
	if err := unit.Serve(ctx); err != nil {
		err = fmt.Errorf("[%s] encountered a fatal error: %w", unit.Name, err)
		r.appendError(err)
		if !r.terminating.Load() {
			r.die(err)
		}
		return
	}
	// Die on clean exit, unless Exit has been called by this runner,
	// as indicated by the `terminating` field.
	if !r.terminating.Load() {
		err := fmt.Errorf("[%s] exited unexpectedly", unit.Name)
		r.appendError(err)
		r.die(err)
	}
}

func (r *Runner) appendError(err error) {
	r.errorsMutex.Lock()
	r.errors = multierror.Append(r.errors, err)
	r.errorsMutex.Unlock()
}

func (r *Runner) die(err error) {
	r.terminateOnce.Do(func() {
		for _, errorCallback := range r.errorCallbacks {
			errorCallback(err)
		}
		r.log.Error("dying", "error", err)
		r.terminate()
		r.log.Error("died")
	})
}

// Exit shuts down this runner gracefully.
func (r *Runner) Exit() {
	r.terminateOnce.Do(func() {
		r.log.Info("exiting gracefully")
		r.terminate()
		r.log.Info("exited gracefully")
	})
}

// terminate stops units in reverse order, so that the units serving traffic
// stop before the ones they depend on.
func (r *Runner) terminate() {
	r.terminating.Store(true)
	if r.cancelUnits != nil {
		r.cancelUnits()
	}
	for i := len(r.units) - 1; i >= 0; i-- {
		unit := r.units[i]
		if unit.Stop == nil {
			continue
		}
		if err := unit.Stop(); err != nil {
			r.appendError(fmt.Errorf("[%s] stopping: %w", unit.Name, err))
		}
	}
}
