package failure

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind names a class of build failure. Every Kind maps to exit status 1.
type Kind string

const (
	ConfigMissing           Kind = "ConfigMissing"
	InvalidName             Kind = "InvalidName"
	IllegalPriorVersion     Kind = "IllegalPriorVersion"
	IllegalBumpArgument     Kind = "IllegalBumpArgument"
	SchemaViolation         Kind = "SchemaViolation"
	InsufficientMemoryQuota Kind = "InsufficientMemoryQuota"
	DownloadFailed          Kind = "DownloadFailed"
	DockerImageUnavailable  Kind = "DockerImageUnavailable"
	ReleaseBuildFailed      Kind = "ReleaseBuildFailed"
	MissingReleaseManifest  Kind = "MissingReleaseManifest"
	InvalidMemoryUnit       Kind = "InvalidMemoryUnit"

	DuplicateRelease     Kind = "DuplicateRelease"
	ReleaseBuilderTooOld Kind = "ReleaseBuilderTooOld"
	UpstreamUnavailable  Kind = "UpstreamUnavailable"
	MissingIcon          Kind = "MissingIcon"
)

type Error struct {
	Kind    Kind
	Subject string
	Message string

	// Detail holds captured upstream output such as an HTTP response body
	// or the stderr of a failed subprocess.
	Detail string

	Err error
}

func New(kind Kind, subject, format string, a ...any) *Error {
	return &Error{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, a...)}
}

func Wrap(kind Kind, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

func (err *Error) WithDetail(detail string) *Error {
	err.Detail = strings.TrimSpace(detail)
	return err
}

func (err *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(err.Kind))
	if err.Subject != "" {
		sb.WriteString(": ")
		sb.WriteString(err.Subject)
	}
	if err.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(err.Message)
	}
	if err.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(err.Err.Error())
	}
	return sb.String()
}

func (err *Error) Unwrap() error { return err.Err }

// Is matches another *Error by Kind so callers can use errors.Is with a
// sentinel such as &failure.Error{Kind: failure.DownloadFailed}.
func (err *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == err.Kind && (t.Subject == "" || t.Subject == err.Subject)
}

// KindOf returns the Kind of the first *Error in the chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Report writes the single diagnostic line for err followed by any captured
// upstream detail.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	_, _ = fmt.Fprintln(w, err.Error())
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		_, _ = fmt.Fprintln(w, e.Detail)
	}
}
