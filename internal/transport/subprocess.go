// file: internal/transport/subprocess.go
package transport

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/config"
	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
)

const exitGracePeriod = 2 * time.Second

// SubprocessTransport runs an MCP server as a child process and talks to it over its
// stdin and stdout. Stderr is forwarded to the debug log.
type SubprocessTransport struct {
	cfg    config.RemoteServer
	opts   Options
	logger logging.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stream *StreamTransport
	exited chan struct{}
	// stderrDone is closed once every stderr line has been logged.
	stderrDone chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

// NewSubprocessTransport prepares a transport for cfg. Nothing is spawned until Start.
func NewSubprocessTransport(cfg config.RemoteServer, opts Options) (*SubprocessTransport, error) {
	if cfg.Command == "" {
		return nil, errors.Newf("remote %q has no command", cfg.Name)
	}
	return &SubprocessTransport{
		cfg:    cfg,
		opts:   opts,
		logger: opts.logger("stdio").WithField("remote", cfg.Name),
		done:   make(chan struct{}),
	}, nil
}

// Start spawns the process and begins reading its output.
func (t *SubprocessTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cmd != nil {
		return errors.New("subprocess transport already started")
	}

	env, err := config.ResolveEnv(t.cfg.Env)
	if err != nil {
		return NewUnavailableError(t.cfg.Command, err)
	}

	// The process outlives Start's context; it is stopped by Close.
	cmd := exec.Command(t.cfg.Command, t.cfg.Args...) // #nosec G204 -- command comes from operator configuration.
	cmd.Env = mergeEnv(os.Environ(), env)
	cmd.Dir = t.cfg.WorkDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return NewUnavailableError(t.cfg.Command, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return NewUnavailableError(t.cfg.Command, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return NewUnavailableError(t.cfg.Command, err)
	}
	if err := ctx.Err(); err != nil {
		return contextError(ctx, "start")
	}
	if err := cmd.Start(); err != nil {
		return NewUnavailableError(t.cfg.Command, err)
	}
	t.logger.Info("Started MCP server process.", "command", t.cfg.Command, "pid", cmd.Process.Pid)

	t.cmd = cmd
	t.stream = NewStreamTransport(t.cfg.Name, stdout, stdin, t.opts)
	t.exited = make(chan struct{})
	t.stderrDone = make(chan struct{})
	_ = t.stream.Start(ctx)

	go t.logStderr(bufio.NewScanner(stderr))
	go t.reap()
	return nil
}

// reap waits for the child once its stdout and stderr have been read to the end, then
// marks the transport done. Wait must not run before the pipes are drained.
func (t *SubprocessTransport) reap() {
	<-t.stream.readerDone
	<-t.stderrDone
	err := t.cmd.Wait()
	close(t.exited)
	if err != nil {
		t.logger.Warn("MCP server process exited.", "error", err)
	} else {
		t.logger.Info("MCP server process exited.")
	}
	t.closeOnce.Do(func() { close(t.done) })
}

func (t *SubprocessTransport) logStderr(scanner *bufio.Scanner) {
	defer close(t.stderrDone)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	for scanner.Scan() {
		t.logger.Debug("Server stderr.", "line", scanner.Text())
	}
}

func (t *SubprocessTransport) active() (*StreamTransport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stream == nil {
		return nil, NewClosedError("send", errors.New("subprocess not started"))
	}
	return t.stream, nil
}

// Send writes req to the child's stdin and waits for the correlated response.
func (t *SubprocessTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	s, err := t.active()
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, req)
}

// Notify writes n to the child's stdin.
func (t *SubprocessTransport) Notify(ctx context.Context, n *protocol.Notification) error {
	s, err := t.active()
	if err != nil {
		return err
	}
	return s.Notify(ctx, n)
}

// Done is closed once the stream has ended. Pending requests have already failed by then.
func (t *SubprocessTransport) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stream == nil {
		return t.done
	}
	return t.stream.Done()
}

// Err reports why the stream ended.
func (t *SubprocessTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stream == nil {
		return nil
	}
	return t.stream.Err()
}

// Close drains queued writes, closes stdin, and waits briefly for the child to exit
// before killing it.
func (t *SubprocessTransport) Close() error {
	t.mu.Lock()
	stream, cmd, exited := t.stream, t.cmd, t.exited
	t.mu.Unlock()
	if stream == nil {
		t.closeOnce.Do(func() { close(t.done) })
		return nil
	}

	_ = stream.Close()
	select {
	case <-exited:
	case <-time.After(exitGracePeriod):
		t.logger.Warn("MCP server process did not exit; killing it.", "pid", cmd.Process.Pid)
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return errors.Wrap(err, "failed to kill MCP server process")
		}
		<-exited
	}
	return nil
}

// mergeEnv overlays extra onto base, replacing existing keys.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key := kv
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				key = kv[:i]
				break
			}
		}
		if _, overridden := extra[key]; !overridden {
			out = append(out, kv)
		}
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}
