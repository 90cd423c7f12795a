// Package xcmd provides signal-driven shutdown waiting for the runtime
// shell, adapted from common/go/xcmd.
package xcmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Interrupted wraps the os.Signal that ended a WaitInterrupted call.
type Interrupted struct {
	os.Signal
}

func (m Interrupted) Error() string {
	return m.String()
}

// WaitInterrupted blocks until either SIGINT or SIGTERM is received, or the
// given context is canceled, whichever comes first.
func WaitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)

	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case v := <-ch:
		return Interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
