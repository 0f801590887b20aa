// Package process runs external tools as supervised children: each child
// gets its own process group so the whole tree can be terminated at once.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/bnema/mediagrab/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const (
	// DefaultKillGrace is how long an interrupted tree may take to exit
	// before it is killed outright.
	DefaultKillGrace = 3 * time.Second

	maxStderrTail = 4096
)

// LineFunc receives one line of child output. Returning an error kills
// the process tree; Wait then reports that error.
type LineFunc func(line string) error

type Options struct {
	Dir       string
	Env       []string
	KillGrace time.Duration
	OnStdout  LineFunc
	OnStderr  LineFunc
}

// ExitError is returned by Wait when the child exits unsuccessfully.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %v", e.Name, e.Code, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Handle is a running child process.
type Handle struct {
	name  string
	cmd   *exec.Cmd
	grace time.Duration

	exited  chan struct{}
	done    chan struct{}
	exitErr error
	err     error

	mu       sync.Mutex
	stderr   strings.Builder
	abortErr error
	killOnce sync.Once
	killErr  error
}

// Start launches name with args. The tree is killed when ctx is done.
func Start(ctx context.Context, name string, args []string, opts Options) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	setProcessGroup(cmd)

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW)
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	// The child holds its own copies of the write ends.
	closeAll(stdoutW, stderrW)

	grace := opts.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}

	h := &Handle{
		name:   name,
		cmd:    cmd,
		grace:  grace,
		exited: make(chan struct{}),
		done:   make(chan struct{}),
	}

	logger.L().Debug("process started",
		zap.String("name", name),
		zap.Int("pid", cmd.Process.Pid),
	)

	go func() {
		h.exitErr = cmd.Wait()
		close(h.exited)
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go h.read(&wg, stdoutR, opts.OnStdout, false)
	go h.read(&wg, stderrR, opts.OnStderr, true)

	go func() {
		wg.Wait()
		<-h.exited
		h.err = h.result()
		close(h.done)
	}()

	go func() {
		select {
		case <-ctx.Done():
			h.abort(ctx.Err())
		case <-h.exited:
		}
	}()

	return h, nil
}

func (h *Handle) read(wg *sync.WaitGroup, r *os.File, fn LineFunc, isStderr bool) {
	defer wg.Done()
	defer r.Close() //nolint:errcheck

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitByNewlineOrCR)
	for scanner.Scan() {
		line := scanner.Text()
		if isStderr {
			h.appendStderr(line)
		}
		if fn == nil {
			continue
		}
		if err := fn(line); err != nil {
			h.abort(err)
			// Keep draining so the child never blocks on a full pipe.
			fn = nil
		}
	}
	_, _ = io.Copy(io.Discard, r)
}

// abort records why the process was stopped early and kills the tree.
func (h *Handle) abort(cause error) {
	h.mu.Lock()
	if h.abortErr == nil {
		h.abortErr = cause
	}
	h.mu.Unlock()

	if err := h.KillTree(); err != nil {
		logger.Warn.Printf("kill %s (pid %d): %v", h.name, h.Pid(), err)
	}
}

func (h *Handle) result() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.abortErr != nil {
		return h.abortErr
	}
	if h.exitErr == nil {
		return nil
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(h.exitErr, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &ExitError{
		Name:   h.name,
		Code:   code,
		Stderr: h.stderr.String(),
		Err:    h.exitErr,
	}
}

func (h *Handle) appendStderr(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stderr.Len()+len(line)+1 > maxStderrTail {
		// Keep the most recent output, which is where tools report errors.
		tail := h.stderr.String()
		keep := maxStderrTail / 2
		if len(tail) > keep {
			tail = tail[len(tail)-keep:]
		}
		h.stderr.Reset()
		h.stderr.WriteString(tail)
	}
	h.stderr.WriteString(line)
	h.stderr.WriteByte('\n')
}

func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Wait blocks until the process exited and both output streams are drained.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Exited is closed once the process itself has been reaped.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// StderrTail returns the most recent stderr output.
func (h *Handle) StderrTail() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stderr.String()
}

// KillTree interrupts the process group, escalates to an unconditional
// kill once the grace period has passed, and returns after the process
// has been reaped. Concurrent and repeated calls share one termination.
func (h *Handle) KillTree() error {
	h.killOnce.Do(func() {
		logger.L().Debug("killing process tree",
			zap.String("name", h.name),
			zap.Int("pid", h.Pid()),
		)
		// Runs even when the leader is gone: descendants may still hold
		// the group.
		h.killErr = killGroup(h.Pid(), h.grace, h.exited)
		<-h.exited
	})
	return h.killErr
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
