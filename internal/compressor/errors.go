package compressor

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
)

// ErrorReason categorizes why compressing a file failed
type ErrorReason int

const (
	ErrorPermissionDenied ErrorReason = iota
	ErrorFileInUse
	ErrorFileNotFound
	ErrorIsDirectory
	ErrorInvalidPath
	ErrorArtifactMismatch
	ErrorUnknown
)

// ErrArtifactMismatch is returned when the written .gz does not match what was produced
var ErrArtifactMismatch = errors.New("compressed artifact does not match the original")

// String returns a human-readable error reason
func (e ErrorReason) String() string {
	switch e {
	case ErrorPermissionDenied:
		return "Permission denied"
	case ErrorFileInUse:
		return "File is in use"
	case ErrorFileNotFound:
		return "File not found"
	case ErrorIsDirectory:
		return "Is a directory"
	case ErrorInvalidPath:
		return "Invalid path"
	case ErrorArtifactMismatch:
		return "Artifact mismatch"
	case ErrorUnknown:
		return "Unknown error"
	default:
		return "Unspecified error"
	}
}

// CompressionError represents a detailed per-file failure
type CompressionError struct {
	Path     string
	Reason   ErrorReason
	Original error
}

// Error implements the error interface
func (e *CompressionError) Error() string {
	return fmt.Sprintf("%s: %s (%v)", e.Path, e.Reason, e.Original)
}

// Unwrap exposes the underlying error
func (e *CompressionError) Unwrap() error {
	return e.Original
}

// UserMessage returns a user-friendly error message
func (e *CompressionError) UserMessage() string {
	switch e.Reason {
	case ErrorPermissionDenied:
		return fmt.Sprintf("Permission denied: %s", e.Path)
	case ErrorFileInUse:
		return fmt.Sprintf("File is being used: %s", e.Path)
	case ErrorFileNotFound:
		return fmt.Sprintf("Disappeared before compression: %s", e.Path)
	case ErrorIsDirectory:
		return fmt.Sprintf("Not a regular file: %s", e.Path)
	case ErrorInvalidPath:
		return fmt.Sprintf("Invalid or unsafe path: %s", e.Path)
	case ErrorArtifactMismatch:
		return fmt.Sprintf("Compressed copy failed verification, original kept: %s", e.Path)
	default:
		return fmt.Sprintf("Error compressing %s: %v", e.Path, e.Original)
	}
}

// CategorizeError analyzes an error and returns a categorized CompressionError
func CategorizeError(path string, err error) *CompressionError {
	if err == nil {
		return nil
	}

	var existing *CompressionError
	if errors.As(err, &existing) {
		return existing
	}

	compErr := &CompressionError{
		Path:     path,
		Original: err,
		Reason:   ErrorUnknown,
	}

	switch {
	case errors.Is(err, ErrArtifactMismatch):
		compErr.Reason = ErrorArtifactMismatch
		return compErr
	case errors.Is(err, os.ErrNotExist):
		compErr.Reason = ErrorFileNotFound
		return compErr
	case errors.Is(err, os.ErrPermission):
		compErr.Reason = ErrorPermissionDenied
		return compErr
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM, syscall.EROFS:
			compErr.Reason = ErrorPermissionDenied
		case syscall.EBUSY, syscall.ETXTBSY:
			compErr.Reason = ErrorFileInUse
		case syscall.ENOENT:
			compErr.Reason = ErrorFileNotFound
		case syscall.EISDIR:
			compErr.Reason = ErrorIsDirectory
		case syscall.ELOOP, syscall.ENAMETOOLONG:
			compErr.Reason = ErrorInvalidPath
		}
	}

	return compErr
}

// GroupErrors groups compression errors by reason
func GroupErrors(errs []*CompressionError) map[ErrorReason][]*CompressionError {
	grouped := make(map[ErrorReason][]*CompressionError)
	for _, err := range errs {
		grouped[err.Reason] = append(grouped[err.Reason], err)
	}
	return grouped
}

// FormatErrorSummary creates a user-friendly summary of errors
func FormatErrorSummary(errs []*CompressionError) string {
	if len(errs) == 0 {
		return ""
	}

	grouped := GroupErrors(errs)
	var b strings.Builder
	b.WriteString("\nIssues encountered:\n")

	order := []ErrorReason{
		ErrorPermissionDenied,
		ErrorFileInUse,
		ErrorFileNotFound,
		ErrorIsDirectory,
		ErrorInvalidPath,
		ErrorArtifactMismatch,
		ErrorUnknown,
	}
	for _, reason := range order {
		if list, ok := grouped[reason]; ok {
			fmt.Fprintf(&b, "   - %s: %d files\n", reason, len(list))
		}
	}
	if _, ok := grouped[ErrorPermissionDenied]; ok {
		b.WriteString("     Tip: the process needs read and write access to each file and its directory\n")
	}

	return b.String()
}
