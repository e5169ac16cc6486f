// Package media drives ffmpeg and ffprobe for screen and microphone capture,
// frame extraction and audio decoding.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"reviewcap/internal/domain"
)

const (
	defaultSettle      = 250 * time.Millisecond
	defaultStopTimeout = 1200 * time.Millisecond
)

// process is one long-running ffmpeg invocation that is stopped with an
// interrupt so the output container gets finalized.
type process struct {
	cmd     *exec.Cmd
	stderr  *bytes.Buffer
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

// startProcess launches command and waits settle for it to stay up. An exit
// within that window means the capture device could not be opened.
func startProcess(ctx context.Context, command string, args []string, settle time.Duration) (*process, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", command, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		detail := trimOutput(stderr.String())
		if err != nil {
			return nil, fmt.Errorf("%w: ffmpeg exited before capture started: %v: %s", domain.ErrDeviceUnavailable, err, detail)
		}
		return nil, fmt.Errorf("%w: ffmpeg exited before capture started: %s", domain.ErrDeviceUnavailable, detail)
	case <-time.After(settle):
	}

	return &process{cmd: cmd, stderr: &stderr, waitErr: waitErr}, nil
}

// stop interrupts the process and kills it if it does not exit in time.
func (p *process) stop(timeout time.Duration) error {
	p.stopOnce.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-p.waitErr:
			if ok {
				p.stopErr = normalizeStopErr(err)
			}
		case <-time.After(timeout):
			if p.cmd.Process != nil {
				_ = p.cmd.Process.Kill()
			}
			err, ok := <-p.waitErr
			if ok {
				p.stopErr = normalizeStopErr(err)
			}
		}

		if p.stopErr != nil && p.stderr.Len() > 0 {
			p.stopErr = fmt.Errorf("%w: %s", p.stopErr, trimOutput(p.stderr.String()))
		}
	})
	return p.stopErr
}

// normalizeStopErr drops exit statuses caused by the interrupt itself.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 512 {
		s = "..." + s[len(s)-512:]
	}
	return s
}

// runTool runs a short-lived command and includes its output in errors.
func runTool(ctx context.Context, command string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", command, err, trimOutput(stderr.String()))
	}
	return out, nil
}

// CheckTool reports whether command resolves on PATH.
func CheckTool(command string) (string, error) {
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", command, err)
	}
	return path, nil
}
