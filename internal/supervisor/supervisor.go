package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/arloliu/shardkeeper/internal/hooks"
	"github.com/arloliu/shardkeeper/internal/logging"
	"github.com/arloliu/shardkeeper/internal/metrics"
	"github.com/arloliu/shardkeeper/types"
)

// Supervisor starts and stops per-shard worker processes. Each worker is
// isolated in its own OS process; the supervisor never shares memory with
// one, and only ever communicates with it via a stdin message or a
// process signal.
type Supervisor struct {
	workerCommand string
	opts          *options

	mu      sync.Mutex
	handles map[string]*Handle // shardID -> handle
}

// New creates a Supervisor that spawns workerCommand for each shard.
func New(workerCommand string, opts ...Option) *Supervisor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}
	if o.hooks.OnWorkerExit == nil {
		o.hooks = hooks.NewNop()
	}

	return &Supervisor{
		workerCommand: workerCommand,
		opts:          o,
		handles:       make(map[string]*Handle),
	}
}

// Spawn starts a worker process for shardID. leaseCounter is nil when the
// worker should claim the shard fresh rather than resume an existing
// lease. Returns immediately once the process has started; the caller
// does not block on the worker's own startup.
func (s *Supervisor) Spawn(ctx context.Context, shardID string, leaseCounter *int64, worker types.WorkerOptions) (*Handle, error) {
	s.mu.Lock()
	if _, exists := s.handles[shardID]; exists {
		s.mu.Unlock()

		return nil, fmt.Errorf("supervisor: shard %s already has a live worker", shardID)
	}
	s.mu.Unlock()

	worker.ShardID = shardID
	worker.InitialLeaseCounter = leaseCounter

	payload, err := json.Marshal(worker)
	if err != nil {
		return nil, fmt.Errorf("supervisor: encode worker options for %s: %w", shardID, err)
	}

	//nolint:gosec // workerCommand is operator-configured, not user input
	cmd := exec.Command(s.workerCommand, s.opts.args...)
	cmd.Env = append(os.Environ(), "SHARDKEEPER_WORKER_OPTIONS="+string(payload))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("supervisor: open stdin for %s: %w", shardID, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("supervisor: start worker for %s: %w", shardID, err)
	}

	handle := newHandle(shardID, cmd)
	handle.stdin = stdin

	s.mu.Lock()
	s.handles[shardID] = handle
	s.mu.Unlock()

	handle.setState(StateRunning)
	s.opts.metrics.RecordWorkerSpawn(shardID)
	s.opts.logger.Info("worker spawned", "shard_id", shardID, "pid", cmd.Process.Pid)

	go s.monitor(ctx, handle)

	return handle, nil
}

// Stop sends the structured shutdown message to handle's worker and waits
// either for it to exit or for the grace timeout to elapse, after which
// it is forcibly killed. Stop returns once the worker has fully exited,
// unless ctx is done first, in which case it returns ctx.Err() without
// waiting for the exit.
func (s *Supervisor) Stop(ctx context.Context, handle *Handle) error {
	handle.setState(StateStopping)

	if err := s.sendShutdown(handle); err != nil {
		s.opts.logger.Warn("failed to deliver shutdown message, killing worker", "shard_id", handle.ShardID, "error", err)
		return s.kill(handle)
	}

	select {
	case <-handle.exited:
		return nil
	case <-time.After(s.opts.graceTimeout):
		s.opts.logger.Warn("worker did not exit within grace period, killing", "shard_id", handle.ShardID)

		return s.kill(handle)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopAll stops every live handle concurrently and waits for all of them
// to finish.
func (s *Supervisor) StopAll(ctx context.Context) error {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, len(handles))
	for i, h := range handles {
		wg.Add(1)
		go func(i int, h *Handle) {
			defer wg.Done()
			errs[i] = s.Stop(ctx, h)
		}(i, h)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

// Count returns the number of currently live worker handles.
func (s *Supervisor) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.handles)
}

// Handles returns a snapshot of the currently live handles.
func (s *Supervisor) Handles() []*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		out = append(out, h)
	}

	return out
}

func (s *Supervisor) sendShutdown(handle *Handle) error {
	msg, err := json.Marshal(types.ShutdownMessage{Type: types.ShutdownMessageType})
	if err != nil {
		return fmt.Errorf("supervisor: encode shutdown message: %w", err)
	}
	msg = append(msg, '\n')

	if _, err := handle.stdin.Write(msg); err != nil {
		return fmt.Errorf("supervisor: write shutdown message for %s: %w", handle.ShardID, err)
	}

	return nil
}

func (s *Supervisor) kill(handle *Handle) error {
	if err := handle.cmd.Process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("supervisor: kill %s: %w", handle.ShardID, err)
	}

	<-handle.exited

	return nil
}

// monitor waits for the process to exit, updates the handle's terminal
// state, removes it from the live set, and notifies hooks and metrics.
func (s *Supervisor) monitor(ctx context.Context, handle *Handle) {
	err := handle.cmd.Wait()

	exitCode := 0
	if err != nil {
		exitCode = exitCodeOf(err)
	}

	s.mu.Lock()
	wasStopping := handle.State() == StateStopping
	delete(s.handles, handle.ShardID)
	s.mu.Unlock()

	forced := wasStopping && exitCode != 0

	handle.setExited(exitCode, err)

	s.opts.metrics.RecordWorkerExit(handle.ShardID, exitCode, forced)
	s.opts.metrics.SetActiveWorkers(s.Count())

	if exitCode == 0 {
		s.opts.logger.Info("worker exited", "shard_id", handle.ShardID, "exit_code", exitCode)
	} else {
		s.opts.logger.Error("worker exited with error", "shard_id", handle.ShardID, "exit_code", exitCode, "error", err)
	}

	if hookErr := s.opts.hooks.OnWorkerExit(ctx, handle.ShardID, exitCode, err); hookErr != nil {
		s.opts.logger.Warn("OnWorkerExit hook failed", "shard_id", handle.ShardID, "error", hookErr)
	}
}

func exitCodeOf(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}
