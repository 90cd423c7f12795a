package xcmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_WaitInterruptedReturnsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := WaitInterrupted(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
