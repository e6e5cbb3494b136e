package compressor

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"testing"
)

// =============================================================================
// Error Categorization Tests
// =============================================================================

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantReason ErrorReason
	}{
		{"nil error", nil, ErrorUnknown},

		// Standard errors
		{"os.ErrNotExist", os.ErrNotExist, ErrorFileNotFound},
		{"os.ErrPermission", os.ErrPermission, ErrorPermissionDenied},
		{"os.ErrExist", os.ErrExist, ErrorUnknown},

		// Syscall errors
		{"EACCES", syscall.EACCES, ErrorPermissionDenied},
		{"EPERM", syscall.EPERM, ErrorPermissionDenied},
		{"EROFS", syscall.EROFS, ErrorPermissionDenied},
		{"EBUSY", syscall.EBUSY, ErrorFileInUse},
		{"ETXTBSY", syscall.ETXTBSY, ErrorFileInUse},
		{"ENOENT", syscall.ENOENT, ErrorFileNotFound},
		{"EISDIR", syscall.EISDIR, ErrorIsDirectory},
		{"ELOOP", syscall.ELOOP, ErrorInvalidPath},

		// Wrapped errors
		{"wrapped EACCES", fmt.Errorf("failed to open: %w", syscall.EACCES), ErrorPermissionDenied},
		{"PathError with EBUSY", &os.PathError{Op: "open", Path: "/x", Err: syscall.EBUSY}, ErrorFileInUse},
		{"wrapped PathError not found", fmt.Errorf("stat: %w", &os.PathError{Op: "stat", Path: "/x", Err: syscall.ENOENT}), ErrorFileNotFound},
		{"artifact mismatch", fmt.Errorf("%w: 10 bytes on disk", ErrArtifactMismatch), ErrorArtifactMismatch},

		// Unknown errors
		{"generic error", errors.New("something went wrong"), ErrorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError("/test/path", tt.err)

			if tt.err == nil {
				if result != nil {
					t.Error("expected nil for nil error")
				}
				return
			}

			if result == nil {
				t.Fatal("unexpected nil result")
			}
			if result.Reason != tt.wantReason {
				t.Errorf("Reason = %v, want %v", result.Reason, tt.wantReason)
			}
			if result.Path != "/test/path" {
				t.Errorf("Path = %q, want /test/path", result.Path)
			}
			if !errors.Is(result, tt.err) {
				t.Error("categorized error should unwrap to the original")
			}
		})
	}
}

func TestCategorizeErrorKeepsExisting(t *testing.T) {
	orig := &CompressionError{Path: "/a", Reason: ErrorIsDirectory, Original: errors.New("dir")}
	got := CategorizeError("/b", fmt.Errorf("wrapped: %w", orig))
	if got != orig {
		t.Errorf("expected existing CompressionError to be returned, got %+v", got)
	}
}

func TestErrorReasonString(t *testing.T) {
	tests := []struct {
		reason ErrorReason
		want   string
	}{
		{ErrorPermissionDenied, "Permission denied"},
		{ErrorFileInUse, "File is in use"},
		{ErrorFileNotFound, "File not found"},
		{ErrorIsDirectory, "Is a directory"},
		{ErrorInvalidPath, "Invalid path"},
		{ErrorArtifactMismatch, "Artifact mismatch"},
		{ErrorUnknown, "Unknown error"},
		{ErrorReason(42), "Unspecified error"},
	}

	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("ErrorReason(%d).String() = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

func TestUserMessageMentionsPath(t *testing.T) {
	for reason := ErrorPermissionDenied; reason <= ErrorUnknown; reason++ {
		err := &CompressionError{Path: "/data/report.csv", Reason: reason, Original: errors.New("boom")}
		if msg := err.UserMessage(); !strings.Contains(msg, "/data/report.csv") {
			t.Errorf("UserMessage for %v = %q, missing path", reason, msg)
		}
	}
}

func TestFormatErrorSummary(t *testing.T) {
	if got := FormatErrorSummary(nil); got != "" {
		t.Errorf("expected empty summary, got %q", got)
	}

	errs := []*CompressionError{
		{Path: "/a", Reason: ErrorPermissionDenied},
		{Path: "/b", Reason: ErrorPermissionDenied},
		{Path: "/c", Reason: ErrorArtifactMismatch},
	}
	summary := FormatErrorSummary(errs)

	if !strings.Contains(summary, "Permission denied: 2 files") {
		t.Errorf("summary missing permission count: %q", summary)
	}
	if !strings.Contains(summary, "Artifact mismatch: 1 files") {
		t.Errorf("summary missing mismatch count: %q", summary)
	}
	if !strings.Contains(summary, "Tip:") {
		t.Errorf("summary missing permission tip: %q", summary)
	}
	if strings.Index(summary, "Permission denied") > strings.Index(summary, "Artifact mismatch") {
		t.Error("summary order should be stable")
	}
}

func TestGroupErrors(t *testing.T) {
	errs := []*CompressionError{
		{Path: "/a", Reason: ErrorFileInUse},
		{Path: "/b", Reason: ErrorUnknown},
		{Path: "/c", Reason: ErrorFileInUse},
	}
	grouped := GroupErrors(errs)
	if len(grouped[ErrorFileInUse]) != 2 || len(grouped[ErrorUnknown]) != 1 {
		t.Errorf("unexpected grouping: %v", grouped)
	}
}
