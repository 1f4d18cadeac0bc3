package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const commandTimeout = time.Second * 10

// CommandOption configures the shared dependencies of a command handler
type CommandOption func(*commandDeps)

type commandDeps struct {
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// WithCommandLogger sets the handler logger
func WithCommandLogger(logger Logger) CommandOption {
	return func(d *commandDeps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithCommandActivitySink sets the sink receiving handler events
func WithCommandActivitySink(sink ActivitySink) CommandOption {
	return func(d *commandDeps) {
		d.activitySink = normalizeActivitySink(sink)
	}
}

// WithCommandClock injects the clock used to stamp events
func WithCommandClock(clock func() time.Time) CommandOption {
	return func(d *commandDeps) {
		if clock != nil {
			d.now = clock
		}
	}
}

func newCommandDeps(opts []CommandOption) commandDeps {
	deps := commandDeps{
		logger:       defLogger(),
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}
	return deps
}

func (d commandDeps) record(ctx context.Context, event ActivityEvent) {
	recordActivity(ctx, d.activitySink, d.logger, d.now, event)
}

func checkContext(ctx context.Context, operation string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during "+operation)
	default:
		return nil
	}
}

// commandError tags err with its category. Errors that already carry one
// pass through unchanged.
func commandError(err error, message string) error {
	if err == nil {
		return nil
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return err
	}

	return goerrors.Wrap(err, ErrorCategory(err), message)
}
