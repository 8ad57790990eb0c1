package container

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkloadNaming(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tenant-42-web", WebWorkload(42))
	assert.Equal(t, "tenant-42-db", DBWorkload(42))
	assert.Equal(t, "tenant-42-redis", RedisWorkload(42))
}

func TestExecResult_Success(t *testing.T) {
	t.Parallel()

	assert.True(t, (&ExecResult{ExitCode: 0}).Success())
	assert.False(t, (&ExecResult{ExitCode: 1, Stderr: "boom"}).Success())
}

func TestClassify_DeadlineBecomesTimeout(t *testing.T) {
	t.Parallel()

	d := &DockerExecutor{}
	wrapped := errors.New("failed to start exec")

	err := d.classify(context.Background(), context.DeadlineExceeded, wrapped)
	assert.ErrorIs(t, err, ErrCommandTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = d.classify(ctx, errors.New("connection reset"), wrapped)
	assert.Equal(t, wrapped, err, "cancellation is not a timeout")
}

func TestShellQuote(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `'SELECT 1'`, shellQuote("SELECT 1"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}
