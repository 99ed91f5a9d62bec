package poller

import (
	"context"
	"fmt"
	"os"
	"time"

	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/lager/v3"
	"github.com/tedsuo/ifrit"
)

const (
	DefaultInterval = 100 * time.Millisecond
	DefaultTimeout  = 2 * time.Minute
)

// Predicate reports whether the awaited condition holds. An error aborts
// polling; only a false result is retried.
type Predicate func(ctx context.Context) (bool, error)

type TimeoutError struct {
	Timeout  time.Duration
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("condition not met after %s (%d attempts)", e.Timeout, e.Attempts)
}

type CancelledError struct{}

func (e *CancelledError) Error() string {
	return "cancelled"
}

type Poller struct {
	clock             clock.Clock
	interval, timeout time.Duration
}

// New returns a Poller that waits interval between attempts and gives up
// after timeout. A zero timeout polls until the context is done.
func New(clock clock.Clock, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		clock:    clock,
		interval: interval,
		timeout:  timeout,
	}
}

func NewDefault() *Poller {
	return New(clock.NewClock(), DefaultInterval, DefaultTimeout)
}

// LoopUntil evaluates predicate immediately and then once per interval until
// it returns true, it fails, the timeout elapses or ctx is done. The context
// handed to predicate is cancelled when the timeout elapses, so an attempt
// blocked on the supervisor is abandoned with a TimeoutError. No attempt is
// made after LoopUntil returns.
func (p *Poller) LoopUntil(ctx context.Context, logger lager.Logger, predicate Predicate) error {
	logger = logger.Session("loop-until", lager.Data{"interval": p.interval.String(), "timeout": p.timeout.String()})

	startTime := p.clock.Now()
	attempts := 0

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	expired := make(chan struct{})
	if p.timeout > 0 {
		deadline := p.clock.NewTimer(p.timeout)
		defer deadline.Stop()

		go func() {
			select {
			case <-deadline.C():
				close(expired)
				cancel()
			case <-attemptCtx.Done():
			}
		}()
	}

	timedOut := func() bool {
		select {
		case <-expired:
			return true
		default:
		}
		return p.timeout > 0 && !p.clock.Now().Before(startTime.Add(p.timeout))
	}

	var timer clock.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		attempts++

		done, err := predicate(attemptCtx)
		if done && err == nil {
			logger.Debug("condition-met", lager.Data{"attempts": attempts})
			return nil
		}

		if timedOut() {
			logger.Info("timed-out", lager.Data{"attempts": attempts})
			return &TimeoutError{Timeout: p.timeout, Attempts: attempts}
		}

		if err != nil {
			logger.Error("predicate-failed", err, lager.Data{"attempts": attempts})
			return err
		}

		wait := p.interval
		if p.timeout > 0 {
			remaining := startTime.Add(p.timeout).Sub(p.clock.Now())
			if remaining < wait {
				wait = remaining
			}
		}

		if timer == nil {
			timer = p.clock.NewTimer(wait)
		} else {
			timer.Reset(wait)
		}

		select {
		case <-timer.C():
		case <-ctx.Done():
			logger.Info("abandoned", lager.Data{"attempts": attempts})
			return ctx.Err()
		}
	}
}

// NewRunner wraps LoopUntil in an ifrit process. The process is ready
// immediately; signalling it abandons polling and exits with CancelledError.
func NewRunner(logger lager.Logger, poller *Poller, predicate Predicate) ifrit.Runner {
	return ifrit.RunFunc(func(signals <-chan os.Signal, ready chan<- struct{}) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		result := make(chan error, 1)
		go func() {
			result <- poller.LoopUntil(ctx, logger, predicate)
		}()

		close(ready)

		select {
		case err := <-result:
			return err
		case <-signals:
			cancel()
			<-result
			return new(CancelledError)
		}
	})
}
