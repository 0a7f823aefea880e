package resolver

import (
	"errors"
	"math/rand"
	"strings"
	"time"
)

type Classification int

const (
	Permanent Classification = iota
	Retryable
)

func (c Classification) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "permanent"
}

const (
	DefaultMaxRetries  = 3
	DefaultBaseBackoff = 60 * time.Second
	DefaultMaxJitter   = 10 * time.Second
)

// RetryState mirrors the retry bookkeeping an article row carries. The store
// owns it; the policy only computes transitions.
type RetryState struct {
	RetryCount  int
	NextRetryAt *time.Time
	LastError   string
}

type Action int

const (
	ActionSchedule Action = iota
	ActionTerminate
)

// Decision is the disposition of one failed attempt: schedule a later retry
// or terminate with a permanent failure.
type Decision struct {
	Action      Action
	RetryCount  int
	NextRetryAt time.Time
	LastError   string
}

// RetryPolicy turns transient resolution failures into deferred work. It is
// stateless; Next is a pure transition over (state, error) apart from the
// backoff jitter.
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxJitter   time.Duration
}

func NewRetryPolicy(maxRetries int, baseBackoff, maxJitter time.Duration) *RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseBackoff <= 0 {
		baseBackoff = DefaultBaseBackoff
	}
	if maxJitter < 0 {
		maxJitter = DefaultMaxJitter
	}
	return &RetryPolicy{
		MaxRetries:  maxRetries,
		BaseBackoff: baseBackoff,
		MaxJitter:   maxJitter,
	}
}

// Classify decides whether a failure is worth another attempt. Tagged
// resolver errors are matched exhaustively; anything else falls back to
// text classification.
func (p *RetryPolicy) Classify(err error) Classification {
	if err == nil {
		return Permanent
	}

	var perr *PolicyError
	if errors.As(err, &perr) {
		return Permanent
	}

	var rerr *ResolveError
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case FailureTimeout, FailureNetwork:
			return Retryable
		case FailureHTTPStatus:
			if rerr.StatusCode == 429 || rerr.StatusCode >= 500 {
				return Retryable
			}
			return Permanent
		case FailureNoRedirect, FailureMalformedPayload:
			return Permanent
		}
	}

	return ClassifyText(err.Error())
}

// Permanent patterns are checked first so that a message like "connection
// blocked by policy" cannot be rescued by its retryable substring.
var permanentPatterns = []string{
	"not found", "404",
	"forbidden", "403",
	"invalid url",
	"ssrf", "blocked",
	"no parseable content",
}

var retryablePatterns = []string{
	"timeout", "timed out",
	"connection", "network", "dns",
	"429", "502", "503", "504",
	"rate limit",
}

// ClassifyText classifies a free-text error description from a collaborator
// that does not produce tagged failures. Unrecognized messages are permanent:
// an unknown failure must not be retried indefinitely.
func ClassifyText(message string) Classification {
	m := strings.ToLower(message)

	for _, pattern := range permanentPatterns {
		if strings.Contains(m, pattern) {
			return Permanent
		}
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(m, pattern) {
			return Retryable
		}
	}
	return Permanent
}

// Backoff computes the delay before retry number retryCount+1:
// base * 2^retryCount plus uniform jitter in [0, MaxJitter). Jitter keeps
// many simultaneously failing items from retrying in lockstep.
func (p *RetryPolicy) Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}

	delay := p.BaseBackoff << uint(retryCount)
	if p.MaxJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.MaxJitter)))
	}
	return delay
}

// Next computes the retry-state transition for a failed attempt. Reaching
// MaxRetries forces termination regardless of classification; termination is
// one-way, the persistence layer records it with no next retry time.
func (p *RetryPolicy) Next(now time.Time, state RetryState, attemptErr error) Decision {
	errText := ""
	if attemptErr != nil {
		errText = attemptErr.Error()
	}

	if state.RetryCount >= p.MaxRetries || p.Classify(attemptErr) == Permanent {
		return Decision{
			Action:     ActionTerminate,
			RetryCount: state.RetryCount,
			LastError:  errText,
		}
	}

	return Decision{
		Action:      ActionSchedule,
		RetryCount:  state.RetryCount + 1,
		NextRetryAt: now.Add(p.Backoff(state.RetryCount)),
		LastError:   errText,
	}
}
