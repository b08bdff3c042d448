package errors

import (
	"errors"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{KindIO, "I/O error"},
		{KindPath, "Path error"},
		{KindCommand, "Command error"},
		{KindFFmpeg, "FFmpeg error"},
		{KindDecode, "Decode error"},
		{KindConfig, "Configuration error"},
		{KindNoFramesFound, "No frames found"},
		{KindEmptySelection, "Empty selection"},
		{KindNoUsableFrames, "No usable frames"},
		{KindDownload, "Download error"},
		{KindOperationFailed, "Operation failed"},
		{KindCancelled, "Operation cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("ErrorKind.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCoreErrorError(t *testing.T) {
	// Test error with underlying error
	underlying := errors.New("underlying error")
	err := &CoreError{
		Kind:       KindIO,
		Message:    "test message",
		Underlying: underlying,
	}

	got := err.Error()
	expected := "I/O error: test message: underlying error"
	if got != expected {
		t.Errorf("CoreError.Error() = %v, want %v", got, expected)
	}

	// Test error without underlying error
	err2 := &CoreError{
		Kind:    KindConfig,
		Message: "config issue",
	}

	got2 := err2.Error()
	expected2 := "Configuration error: config issue"
	if got2 != expected2 {
		t.Errorf("CoreError.Error() = %v, want %v", got2, expected2)
	}
}

func TestCoreErrorUnwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &CoreError{
		Kind:       KindIO,
		Message:    "test",
		Underlying: underlying,
	}

	if err.Unwrap() != underlying {
		t.Error("Unwrap() should return underlying error")
	}
}

func TestCoreErrorIs(t *testing.T) {
	err1 := &CoreError{Kind: KindIO, Message: "test1"}
	err2 := &CoreError{Kind: KindIO, Message: "test2"}
	err3 := &CoreError{Kind: KindConfig, Message: "test3"}

	if !err1.Is(err2) {
		t.Error("Same kind errors should match")
	}

	if err1.Is(err3) {
		t.Error("Different kind errors should not match")
	}
}

func TestCommandError(t *testing.T) {
	// Test CommandStart error
	startErr := &CommandError{
		Command:    "ffmpeg",
		Kind:       CommandStart,
		Underlying: errors.New("not found"),
	}
	if got := startErr.Error(); got != "failed to execute ffmpeg: not found" {
		t.Errorf("CommandStart error = %v", got)
	}

	// Test CommandWait error
	waitErr := &CommandError{
		Command:    "ffmpeg",
		Kind:       CommandWait,
		Underlying: errors.New("signal"),
	}
	if got := waitErr.Error(); got != "failed to wait for ffmpeg: signal" {
		t.Errorf("CommandWait error = %v", got)
	}

	// Test CommandFailed error
	failedErr := &CommandError{
		Command:  "ffmpeg",
		Kind:     CommandFailed,
		ExitCode: 1,
		Stderr:   "pipe closed",
	}
	expected := "command ffmpeg failed with exit code 1: pipe closed"
	if got := failedErr.Error(); got != expected {
		t.Errorf("CommandFailed error = %v, want %v", got, expected)
	}
}

func TestErrorConstructors(t *testing.T) {
	t.Run("NewIOError", func(t *testing.T) {
		err := NewIOError("disk full", errors.New("no space"))
		if err.Kind != KindIO {
			t.Errorf("Expected KindIO, got %v", err.Kind)
		}
	})

	t.Run("NewPathError", func(t *testing.T) {
		err := NewPathError("invalid path")
		if err.Kind != KindPath {
			t.Errorf("Expected KindPath, got %v", err.Kind)
		}
	})

	t.Run("NewFFmpegError", func(t *testing.T) {
		err := NewFFmpegError("encode failed", nil)
		if err.Kind != KindFFmpeg {
			t.Errorf("Expected KindFFmpeg, got %v", err.Kind)
		}
	})

	t.Run("NewDecodeError", func(t *testing.T) {
		err := NewDecodeError("frame.jpg", errors.New("bad header"))
		if err.Kind != KindDecode {
			t.Errorf("Expected KindDecode, got %v", err.Kind)
		}
	})

	t.Run("NewConfigError", func(t *testing.T) {
		err := NewConfigError("invalid step")
		if err.Kind != KindConfig {
			t.Errorf("Expected KindConfig, got %v", err.Kind)
		}
	})

	t.Run("NewNoFramesFoundError", func(t *testing.T) {
		err := NewNoFramesFoundError([]string{"images"})
		if err.Kind != KindNoFramesFound {
			t.Errorf("Expected KindNoFramesFound, got %v", err.Kind)
		}
	})

	t.Run("NewEmptyWindowError", func(t *testing.T) {
		err := NewEmptyWindowError()
		if err.Kind != KindNoFramesFound {
			t.Errorf("Expected KindNoFramesFound, got %v", err.Kind)
		}
	})

	t.Run("NewEmptySelectionError", func(t *testing.T) {
		err := NewEmptySelectionError()
		if err.Kind != KindEmptySelection {
			t.Errorf("Expected KindEmptySelection, got %v", err.Kind)
		}
	})

	t.Run("NewNoUsableFramesError", func(t *testing.T) {
		err := NewNoUsableFramesError()
		if err.Kind != KindNoUsableFrames {
			t.Errorf("Expected KindNoUsableFrames, got %v", err.Kind)
		}
	})

	t.Run("NewDownloadError", func(t *testing.T) {
		err := NewDownloadError("status 502", nil)
		if err.Kind != KindDownload {
			t.Errorf("Expected KindDownload, got %v", err.Kind)
		}
	})

	t.Run("NewCancelledError", func(t *testing.T) {
		err := NewCancelledError()
		if err.Kind != KindCancelled {
			t.Errorf("Expected KindCancelled, got %v", err.Kind)
		}
	})
}

func TestIsKind(t *testing.T) {
	err := NewConfigError("test")

	if !IsKind(err, KindConfig) {
		t.Error("IsKind should return true for matching kind")
	}

	if IsKind(err, KindIO) {
		t.Error("IsKind should return false for non-matching kind")
	}

	if IsKind(errors.New("plain error"), KindConfig) {
		t.Error("IsKind should return false for non-CoreError")
	}
}

func TestIsCancelled(t *testing.T) {
	cancelledErr := NewCancelledError()
	if !IsCancelled(cancelledErr) {
		t.Error("IsCancelled should return true for cancelled error")
	}

	otherErr := NewConfigError("test")
	if IsCancelled(otherErr) {
		t.Error("IsCancelled should return false for non-cancelled error")
	}
}

func TestIsFatalRun(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"empty catalog", NewNoFramesFoundError([]string{"images"}), true},
		{"empty window", NewEmptyWindowError(), true},
		{"empty selection", NewEmptySelectionError(), true},
		{"no usable frames", NewNoUsableFramesError(), true},
		{"io error", NewIOError("disk", nil), false},
		{"plain error", errors.New("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatalRun(tt.err); got != tt.want {
				t.Errorf("IsFatalRun() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapExecError(t *testing.T) {
	// Non-ExitError becomes a start error
	err := WrapExecError("ffmpeg", errors.New("executable not found"), "")
	if !IsKind(err, KindCommand) {
		t.Fatalf("expected KindCommand, got %v", err.Kind)
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatal("expected CommandError in chain")
	}
	if cmdErr.Kind != CommandStart {
		t.Errorf("expected CommandStart, got %v", cmdErr.Kind)
	}
}
