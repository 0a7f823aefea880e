package resolver

import "fmt"

type Status int

const (
	StatusResolved Status = iota
	StatusBlocked
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusBlocked:
		return "blocked"
	default:
		return "failed"
	}
}

// FailureKind is the closed set of decode failure variants. Classification
// is an exhaustive switch over these, not substring matching on error text.
type FailureKind int

const (
	FailureTimeout FailureKind = iota
	FailureNetwork
	FailureHTTPStatus
	FailureNoRedirect
	FailureMalformedPayload
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureNetwork:
		return "network"
	case FailureHTTPStatus:
		return "http_status"
	case FailureNoRedirect:
		return "no_redirect"
	default:
		return "malformed_payload"
	}
}

// ResolveError is a decode failure. StatusCode is set only for
// FailureHTTPStatus.
type ResolveError struct {
	Kind       FailureKind
	StatusCode int
	Msg        string
}

func (e *ResolveError) Error() string {
	if e.Kind == FailureHTTPStatus {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Outcome is the result of a single decode attempt. URL is set only when
// Status is StatusResolved, and only after the URL has passed the safety
// validator. Err is set for StatusBlocked (*PolicyError) and StatusFailed
// (*ResolveError).
type Outcome struct {
	Status Status
	URL    string
	Err    error
}

func Resolved(url string) Outcome {
	return Outcome{Status: StatusResolved, URL: url}
}

func Blocked(err error) Outcome {
	return Outcome{Status: StatusBlocked, Err: err}
}

func Failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err}
}
