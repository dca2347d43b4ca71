// Package backuperrors defines the error kinds used throughout the
// repository, chunker, and streamer packages to decide how a failure
// should be handled by a caller.
package backuperrors

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure. Callers switch on Kind via
// errors.Is against the sentinel values below, not on the wrapped
// message text.
type Kind int

const (
	_ Kind = iota
	KindCorruption
	KindDecrypt
	KindNotFound
	KindAmbiguousPrefix
	KindBackend
	KindConfig
	KindWorker
)

func (k Kind) String() string {
	switch k {
	case KindCorruption:
		return "corruption"
	case KindDecrypt:
		return "decrypt"
	case KindNotFound:
		return "not found"
	case KindAmbiguousPrefix:
		return "ambiguous prefix"
	case KindBackend:
		return "backend"
	case KindConfig:
		return "config"
	case KindWorker:
		return "worker"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind and optional path
// context, so that errors.Is(err, ErrNotFound) and friends work
// across the stack without string matching.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinel kind markers. errors.Is(err, ErrCorruption) is true for
// any *Error of that Kind, regardless of the wrapped cause.
var (
	ErrCorruption      = &Error{Kind: KindCorruption}
	ErrDecrypt         = &Error{Kind: KindDecrypt}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrAmbiguousPrefix = &Error{Kind: KindAmbiguousPrefix}
	ErrBackend         = &Error{Kind: KindBackend}
	ErrConfig          = &Error{Kind: KindConfig}
	ErrWorker          = &Error{Kind: KindWorker}
)

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && e.Kind == t.Kind
}

func newf(kind Kind, path string, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

// Corruptionf builds a CorruptionError: pack trailers out of range,
// blob hash mismatches on verify, snapshot hash mismatches.
func Corruptionf(format string, args ...any) error { return newf(KindCorruption, "", format, args...) }

// Decryptf builds a DecryptError: AES-GCM tag mismatch.
func Decryptf(format string, args ...any) error { return newf(KindDecrypt, "", format, args...) }

// NotFoundf builds a NotFoundError: unknown blob/snapshot ID, empty prefix match.
func NotFoundf(format string, args ...any) error { return newf(KindNotFound, "", format, args...) }

// AmbiguousPrefixf builds an AmbiguousPrefixError.
func AmbiguousPrefixf(format string, args ...any) error {
	return newf(KindAmbiguousPrefix, "", format, args...)
}

// Backendf wraps an I/O failure from the backend with path context.
func Backendf(path string, err error) error {
	return &Error{Kind: KindBackend, Path: path, Err: err}
}

// Configf builds a ConfigError: unknown repository version, malformed manifest.
func Configf(format string, args ...any) error { return newf(KindConfig, "", format, args...) }

// Workerf builds a WorkerError: a pool worker failed.
func Workerf(format string, args ...any) error { return newf(KindWorker, "", format, args...) }

// Is reports whether err (or anything it wraps) is of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
