package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/sweeney/ledctl/internal/led"
)

// ErrStopped is returned by Submit when the loop is no longer accepting requests.
var ErrStopped = errors.New("control loop stopped")

// Request carries a raw command payload to the goroutine that owns the channel.
// Reply, if non-nil, receives exactly one Result and must be buffered.
type Request struct {
	Payload []byte
	Source  string
	Reply   chan<- Result
}

// Result is the outcome of one Request.
type Result struct {
	Op      Op
	Changed bool
	Err     error
	State   led.State
}

// Handle parses payload and applies it to ch. It is what the owning goroutine
// runs for each Request.
func Handle(ch *led.Channel, payload []byte) Result {
	c, err := Parse(payload)
	if err != nil {
		return Result{Op: c.Op, Err: err, State: ch.State()}
	}
	changed, err := Apply(ch, c)
	return Result{Op: c.Op, Changed: changed, Err: err, State: ch.State()}
}

// Invalid reports whether err came from a bad payload rather than the loop.
func Invalid(err error) bool {
	return err != nil && !errors.Is(err, ErrStopped) && !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// Submit sends payload to requests and waits for the result.
// done is closed by the owner when it stops reading requests.
func Submit(ctx context.Context, requests chan<- Request, done <-chan struct{}, payload []byte, source string) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case requests <- Request{Payload: payload, Source: source, Reply: reply}:
	case <-done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, fmt.Errorf("submit command: %w", ctx.Err())
	}
	select {
	case r := <-reply:
		return r, nil
	case <-done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, fmt.Errorf("await command: %w", ctx.Err())
	}
}
