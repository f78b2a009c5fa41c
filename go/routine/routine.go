package routine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PermanentError is a permanent error that will cause a routine to exit immediately.
type PermanentError struct{ Err error }

// Error implements the error interface.
func (e *PermanentError) Error() string { return fmt.Sprintf("permanent error: %v", e.Err) }

// Is is used by errors.Is() to match correctly.
func (e *PermanentError) Is(err error) bool {
	_, ok := err.(*PermanentError)
	return ok
}

// NewPermanentError instantiates and returns a new permanent error.
func NewPermanentError(format string, args ...any) *PermanentError {
	return &PermanentError{Err: fmt.Errorf(format, args...)}
}

// FN is a routine function.
type FN func(context.Context) error

// Routine is a wrapper around some function that needs to be executed in a loop in a go routine.
type Routine struct {
	log *slog.Logger

	// Required fields.
	name             string
	fn               FN
	onPermanentError func(error)
	exited           chan struct{}
	closeOnce        sync.Once
	cancel           context.CancelFunc
	retry            chan struct{}

	// Additional fields.
	timeout              time.Duration
	constantBackOff      *backoff.ConstantBackOff
	ticker               *time.Ticker
	signals              []<-chan struct{}
	maxConsecutiveErrors int
}

// New instantiates and returns a new Routine.
func New(name string, fn FN, onPermanentError func(error)) *Routine {
	return &Routine{
		log:              slog.Default(),
		name:             name,
		fn:               fn,
		onPermanentError: onPermanentError,
		exited:           make(chan struct{}),
		retry:            make(chan struct{}, 1), // non-blocking writes.
	}
}

// WithLogger sets this routine's logger.
func (r *Routine) WithLogger(logger *slog.Logger) *Routine {
	r.log = logger
	return r
}

// WithMaxConsecutiveErrors sets a max consecutive error threshold which, if exceeded, kills the routine.
func (r *Routine) WithMaxConsecutiveErrors(maxConsecutiveErrors int) *Routine {
	r.maxConsecutiveErrors = maxConsecutiveErrors
	return r
}

// WithTimeout sets a timeout on the context for each execution of the routine's FN.
func (r *Routine) WithTimeout(timeout time.Duration) *Routine {
	r.timeout = timeout
	return r
}

// WithTicker sets an interval at which the fn will be executed.
func (r *Routine) WithTicker(interval time.Duration) *Routine {
	if r.ticker != nil {
		panic("WithTicker called twice")
	}
	r.ticker = time.NewTicker(interval)
	return r
}

// WithSignal allows a signal to trigger a run of the routine function.
func (r *Routine) WithSignal(channels ...<-chan struct{}) *Routine {
	r.signals = append(r.signals, channels...)
	return r
}

// WithConstantBackOff adds a constant backoff every time a non-permanent error is encountered.
func (r *Routine) WithConstantBackOff(interval time.Duration) *Routine {
	r.constantBackOff = backoff.NewConstantBackOff(interval)
	return r
}

// Start the routine. Non-blocking call.
func (r *Routine) Start(ctx context.Context) *Routine {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.log = r.log.With("routine", r.name)
	r.log.InfoContext(ctx, "started routine")
	running.WithLabelValues(r.name).Set(1)

	consecutiveErrors := 0
	fn := func(ctx context.Context) error {
		if err := r.execute(ctx); err != nil {
			consecutiveErrors++
			if r.maxConsecutiveErrors != 0 && consecutiveErrors >= r.maxConsecutiveErrors {
				return NewPermanentError("exceeded max consecutive errors (%d): %w", r.maxConsecutiveErrors, err)
			}
			return err
		}
		consecutiveErrors = 0
		return nil
	}

	// Fan all triggers into a single channel. Without any trigger the channel
	// is closed so that every receive returns immediately and the loop
	// free-runs.
	signal := make(chan struct{}, 1)
	notify := func() {
		select {
		case signal <- struct{}{}:
		default: // There is already an unconsumed signal in here.
		}
	}
	if r.ticker == nil && len(r.signals) == 0 {
		close(signal)
	}
	if r.ticker != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-r.ticker.C:
					notify()
				}
			}
		}()
	}
	for _, channel := range r.signals {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-channel:
					if !ok {
						return
					}
					notify()
				}
			}
		}()
	}

	// Function responsible for executing `fn` at the right moments.
	go func() {
		defer func() {
			close(r.exited)
			r.Close()
		}()

		for {
			if err := fn(ctx); err != nil {
				select {
				case <-ctx.Done():
					r.log.InfoContext(ctx, "context done", "error", ctx.Err())
					return
				default:
				}

				if errors.Is(err, &PermanentError{}) {
					r.log.ErrorContext(ctx, "exiting due to permanent error", "error", err)
					r.onPermanentError(err)
					return
				}
				r.log.ErrorContext(ctx, "executing fn", "error", err)
				if r.constantBackOff != nil {
					time.Sleep(r.constantBackOff.NextBackOff())
				}
				// Add a retry signal.
				select {
				case r.retry <- struct{}{}:
				default:
				}
			}

			select {
			case <-ctx.Done():
				r.log.InfoContext(ctx, "context done", "error", ctx.Err())
				return
			case <-signal:
				r.log.DebugContext(ctx, "received signal")
			case <-r.retry:
				r.log.DebugContext(ctx, "retrying")
			}
		}
	}()
	return r
}

// Done returns a channel closed once the routine has exited its loop.
func (r *Routine) Done() <-chan struct{} {
	return r.exited
}

// Close closes this routine. It is a blocking call guaranteeing that the routine has exited its loop by the time it returns.
func (r *Routine) Close() {
	r.closeOnce.Do(func() {
		r.log.Info("closing")
		r.cancel()
		<-r.exited
		r.log.Info("closed")
		if r.ticker != nil {
			r.ticker.Stop()
		}
		running.WithLabelValues(r.name).Set(0)
	})
}

func (r *Routine) execute(ctx context.Context) error {
	if r.timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	start := time.Now()
	err := r.fn(ctx)
	status := "success"
	if err != nil {
		status = "error"
	}
	executionsTotal.WithLabelValues(r.name, status).Inc()
	durationSeconds.WithLabelValues(r.name).Observe(time.Since(start).Seconds())
	return err
}
