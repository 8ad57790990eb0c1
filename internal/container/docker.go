package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/hostwarden/hostwarden/internal/logger"
)

// defaultCommandTimeout bounds commands whose Command.Timeout is zero.
const defaultCommandTimeout = 60 * time.Second

// DockerExecutor implements Executor against the Docker Engine API.
type DockerExecutor struct {
	cli          client.APIClient
	log          logger.Logger
	queryTimeout time.Duration
}

// NewDockerExecutor connects to the Docker daemon from the environment
// (DOCKER_HOST et al.).
func NewDockerExecutor(queryTimeout time.Duration, log logger.Logger) (*DockerExecutor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return NewDockerExecutorWithClient(cli, queryTimeout, log), nil
}

// NewDockerExecutorWithClient wires an existing API client, mainly for tests.
func NewDockerExecutorWithClient(cli client.APIClient, queryTimeout time.Duration, log logger.Logger) *DockerExecutor {
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}
	return &DockerExecutor{cli: cli, log: log, queryTimeout: queryTimeout}
}

// Run executes a command inside the workload container. The workload must
// be running; a stopped or missing container fails fast with
// ErrWorkloadNotRunning.
func (d *DockerExecutor) Run(ctx context.Context, workloadID string, cmd Command) (*ExecResult, error) {
	if len(cmd.Argv) == 0 {
		return nil, errors.New("empty command")
	}

	inspect, err := d.cli.ContainerInspect(ctx, workloadID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrWorkloadNotRunning, workloadID)
		}
		return nil, fmt.Errorf("failed to inspect workload %s: %w", workloadID, err)
	}
	if inspect.State == nil || !inspect.State.Running {
		return nil, fmt.Errorf("%w: %s", ErrWorkloadNotRunning, workloadID)
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	created, err := d.cli.ContainerExecCreate(execCtx, workloadID, dockercontainer.ExecOptions{
		Cmd:          cmd.Argv,
		WorkingDir:   cmd.WorkDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, d.classify(execCtx, err, fmt.Errorf("failed to create exec in %s: %w", workloadID, err))
	}

	attach, err := d.cli.ContainerExecAttach(execCtx, created.ID, dockercontainer.ExecStartOptions{})
	if err != nil {
		return nil, d.classify(execCtx, err, fmt.Errorf("failed to start exec in %s: %w", workloadID, err))
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return nil, d.classify(execCtx, err, fmt.Errorf("failed to read exec output from %s: %w", workloadID, err))
	}

	info, err := d.cli.ContainerExecInspect(execCtx, created.ID)
	if err != nil {
		return nil, d.classify(execCtx, err, fmt.Errorf("failed to inspect exec in %s: %w", workloadID, err))
	}

	result := &ExecResult{
		ExitCode: info.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	d.log.Debug("workload command finished",
		logger.String("workload", workloadID),
		logger.String("command", strings.Join(cmd.Argv, " ")),
		logger.Int("exit_code", result.ExitCode))
	return result, nil
}

// RunQuery executes SQL via the mysql client baked into the workload's
// database container, reading credentials from the container environment.
func (d *DockerExecutor) RunQuery(ctx context.Context, workloadID string, query string, timeout time.Duration) (*ExecResult, error) {
	if timeout <= 0 {
		timeout = d.queryTimeout
	}
	return d.Run(ctx, workloadID, Command{
		Argv:    []string{"sh", "-c", fmt.Sprintf(`mysql -uroot -p"$MYSQL_ROOT_PASSWORD" -e %s`, shellQuote(query))},
		Timeout: timeout,
	})
}

// classify maps a context deadline hit to ErrCommandTimeout so callers can
// tell "ran too long" from "could not run".
func (d *DockerExecutor) classify(ctx context.Context, cause, wrapped error) error {
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrCommandTimeout
	}
	return wrapped
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
