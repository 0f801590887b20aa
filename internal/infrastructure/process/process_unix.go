//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/bnema/mediagrab/internal/infrastructure/logger"
	"golang.org/x/sys/unix"
)

const groupPollInterval = 20 * time.Millisecond

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killGroup interrupts the group led by pid, waits for the leader to exit
// or the grace period to pass, then kills whatever is left of the group.
func killGroup(pid int, grace time.Duration, exited <-chan struct{}) error {
	if err := signalGroup(pid, unix.SIGINT); err != nil {
		return fmt.Errorf("interrupt process group %d: %w", pid, err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
	}

	if !groupAlive(pid) {
		return nil
	}
	if err := signalGroup(pid, unix.SIGKILL); err != nil {
		return fmt.Errorf("kill process group %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	for groupAlive(pid) && time.Now().Before(deadline) {
		time.Sleep(groupPollInterval)
	}
	if groupAlive(pid) {
		// Usually unreaped zombies; SIGKILL cannot be ignored.
		logger.Debug.Printf("process group %d still listed after kill", pid)
	}
	return nil
}

func signalGroup(pid int, sig unix.Signal) error {
	err := unix.Kill(-pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

func groupAlive(pid int) bool {
	err := unix.Kill(-pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
