package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// PCMDecoder converts an audio file to raw signed 16-bit little-endian PCM.
type PCMDecoder struct {
	command string
}

func NewPCMDecoder(command string) *PCMDecoder {
	if command == "" {
		command = "ffmpeg"
	}
	return &PCMDecoder{command: command}
}

func (d *PCMDecoder) Decode(ctx context.Context, audioPath string, sampleRate, channels int) (io.ReadCloser, error) {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}

	cmd := exec.CommandContext(ctx, d.command,
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", audioPath,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	return &pcmStream{cmd: cmd, stdout: stdout, stderr: &stderr}, nil
}

// pcmStream surfaces a failed decode as the read error at end of stream.
type pcmStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer

	waitOnce sync.Once
	waitErr  error
}

func (s *pcmStream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if err == io.EOF {
		if werr := s.wait(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (s *pcmStream) wait() error {
	s.waitOnce.Do(func() {
		if err := s.cmd.Wait(); err != nil {
			s.waitErr = fmt.Errorf("decoding audio: %w: %s", err, trimOutput(s.stderr.String()))
		}
	})
	return s.waitErr
}

// Close stops the decoder if the stream was not read to the end.
func (s *pcmStream) Close() error {
	done := false
	s.waitOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
		done = true
	})
	if done {
		return nil
	}
	return s.waitErr
}
