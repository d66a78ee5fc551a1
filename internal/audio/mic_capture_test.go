package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"weekplan/internal/ports"
)

// fakeRecorder writes a script that ignores its arguments and behaves
// like a long-running recorder.
func fakeRecorder(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recorder.sh")
	contents := "#!/bin/sh\n" + script + "\n"
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("write recorder script: %v", err)
	}
	return path
}

func TestStartReadsRecorderOutput(t *testing.T) {
	t.Parallel()

	command := fakeRecorder(t, `printf 'pcm-bytes'; sleep 5`)
	capture := NewMicCapture(command)

	mic, err := capture.Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer mic.Stop()

	buf := make([]byte, 32)
	n, err := mic.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "pcm-bytes" {
		t.Errorf("read %q", got)
	}
}

func TestStartFailsWhenRecorderExitsImmediately(t *testing.T) {
	t.Parallel()

	command := fakeRecorder(t, `echo 'no such device' >&2; exit 1`)
	capture := NewMicCapture(command)

	_, err := capture.Start(context.Background(), ports.AudioConfig{})
	if err == nil {
		t.Fatal("expected start to fail")
	}
	if !strings.Contains(err.Error(), "no such device") {
		t.Errorf("error %q does not carry the recorder diagnostics", err)
	}
}

func TestStartFailsWhenRecorderIsMissing(t *testing.T) {
	t.Parallel()

	capture := NewMicCapture(filepath.Join(t.TempDir(), "missing-recorder"))

	if _, err := capture.Start(context.Background(), ports.AudioConfig{}); err == nil {
		t.Fatal("expected start to fail")
	}
}

func TestStopInterruptsRecorderAndDrainsReads(t *testing.T) {
	t.Parallel()

	command := fakeRecorder(t, `while :; do sleep 1; done`)
	capture := NewMicCapture(command)

	mic, err := capture.Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// The interrupt exit status is swallowed.
	if err := mic.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// Stop is idempotent.
	if err := mic.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	buf := make([]byte, 8)
	if _, err := mic.Read(buf); err == nil {
		t.Error("read after stop should fail or hit EOF")
	}
}

func TestIgnoreExit(t *testing.T) {
	t.Parallel()

	if err := ignoreExit(&exec.ExitError{}); err != nil {
		t.Errorf("exit error should be ignored, got %v", err)
	}
	sentinel := errors.New("boom")
	if err := ignoreExit(sentinel); !errors.Is(err, sentinel) {
		t.Errorf("non-exit error should pass through, got %v", err)
	}
	if err := ignoreExit(nil); err != nil {
		t.Errorf("nil should pass through, got %v", err)
	}
}
