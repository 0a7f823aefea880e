package resolver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

type Variant int

const (
	VariantRedirect Variant = iota
	VariantLegacy
)

// legacyMarkers are the known identifier prefixes of the legacy embedded
// encoding. The wrapper format carries no version field, so detection is
// marker plus length heuristic.
var legacyMarkers = []string{"CBM", "CAI"}

const (
	DefaultRequestTimeout    = 10 * time.Second
	DefaultMaxRedirects      = 10
	DefaultRateLimitDelay    = 500 * time.Millisecond
	DefaultDecodeRetries     = 3
	DefaultLegacyIDThreshold = 150
)

type DecoderOptions struct {
	RequestTimeout time.Duration
	MaxRedirects   int
	RateLimitDelay time.Duration
	// MaxRetries is the number of HTTP attempts per decode on the redirect
	// path. This inner retry uses pure exponential delay with no jitter;
	// jitter belongs to the outer retry policy.
	MaxRetries int
	// LegacyIDThreshold separates legacy embedded identifiers from
	// redirect-based ones. Empirical, not a protocol guarantee.
	LegacyIDThreshold int
	UserAgent         string
}

func (o *DecoderOptions) applyDefaults() {
	if o.RequestTimeout == 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.MaxRedirects == 0 {
		o.MaxRedirects = DefaultMaxRedirects
	}
	if o.RateLimitDelay == 0 {
		o.RateLimitDelay = DefaultRateLimitDelay
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultDecodeRetries
	}
	if o.LegacyIDThreshold == 0 {
		o.LegacyIDThreshold = DefaultLegacyIDThreshold
	}
}

type URLValidator interface {
	Validate(rawURL string) error
}

var _ URLValidator = (*Validator)(nil)

// Decoder recovers the canonical destination URL from a wrapped aggregator
// link, either by local binary extraction (legacy encoding) or by following
// live HTTP redirects. Every candidate URL passes the validator before it is
// returned as resolved.
//
// The rate-limit window is local to one Decoder instance and is not a
// cross-process guarantee.
type Decoder struct {
	opts      DecoderOptions
	validator URLValidator
	client    *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

func NewDecoder(opts DecoderOptions, validator URLValidator) *Decoder {
	opts.applyDefaults()

	maxRedirects := opts.MaxRedirects
	client := &http.Client{
		Timeout: opts.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Decoder{
		opts:      opts,
		validator: validator,
		client:    client,
	}
}

// DetectVariant is the single place the format heuristic lives. A link is
// legacy embedded only when its article identifier starts with a known
// marker AND stays under the length threshold; long marker-prefixed
// identifiers are redirect-based.
func (d *Decoder) DetectVariant(wrappedLink string) Variant {
	id := articleIdentifier(wrappedLink)
	if id == "" || len(id) >= d.opts.LegacyIDThreshold {
		return VariantRedirect
	}
	for _, marker := range legacyMarkers {
		if strings.HasPrefix(id, marker) {
			return VariantLegacy
		}
	}
	return VariantRedirect
}

// IsLegacyEncoding is a side-effect-free format probe.
func (d *Decoder) IsLegacyEncoding(wrappedLink string) bool {
	return d.DetectVariant(wrappedLink) == VariantLegacy
}

// Decode resolves a wrapped link to its canonical destination URL.
func (d *Decoder) Decode(ctx context.Context, wrappedLink string) Outcome {
	var (
		candidate string
		err       error
	)

	switch d.DetectVariant(wrappedLink) {
	case VariantLegacy:
		candidate, err = d.decodeLegacy(wrappedLink)
	default:
		candidate, err = d.decodeRedirect(ctx, wrappedLink)
	}

	if err != nil {
		return Failed(err)
	}

	if verr := d.validator.Validate(candidate); verr != nil {
		return Blocked(verr)
	}

	return Resolved(candidate)
}

// articleIdentifier returns the path segment following "/articles/", or ""
// when the link has no such segment.
func articleIdentifier(wrappedLink string) string {
	parsed, err := url.Parse(wrappedLink)
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if segment == "articles" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}

func (d *Decoder) decodeLegacy(wrappedLink string) (string, error) {
	id := articleIdentifier(wrappedLink)
	if len(id) <= 3 {
		return "", &ResolveError{Kind: FailureMalformedPayload, Msg: "article identifier too short"}
	}

	payload, err := decodeBase64(id[3:])
	if err != nil {
		return "", &ResolveError{Kind: FailureMalformedPayload, Msg: "invalid base64 payload: " + err.Error()}
	}
	if len(payload) == 0 {
		return "", &ResolveError{Kind: FailureMalformedPayload, Msg: "empty payload"}
	}

	destination := extractDestination(payload)
	if destination == "" {
		return "", &ResolveError{Kind: FailureMalformedPayload, Msg: "no parseable content in payload"}
	}

	return destination, nil
}

// decodeBase64 accepts both URL-safe and standard alphabets; wrapped
// identifiers drop padding, so both are tried unpadded.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

var (
	// A scheme-prefixed run of non-control bytes terminated by a control
	// byte. \x7f counts as a terminator like the C0 range.
	ctrlTerminatedURL = regexp.MustCompile(`(?:https?|ftps?)://[^\x00-\x1f\x7f]+[\x00-\x1f\x7f]`)

	// Same, terminated by whitespace instead.
	spaceTerminatedURL = regexp.MustCompile(`(?:https?|ftps?)://[^\x00-\x1f\x7f\s]+\s`)
)

var schemePrefixes = [][]byte{
	[]byte("https://"),
	[]byte("http://"),
	[]byte("ftp://"),
	[]byte("ftps://"),
}

// extractDestination pulls the first embedded URL out of a decoded legacy
// payload. The payload is a loosely structured binary record with no
// documented schema; URLs inside it are terminated by control bytes.
// Strategies in priority order: control-terminated match, whitespace-
// terminated match, then a raw scan from the first scheme prefix.
func extractDestination(payload []byte) string {
	if m := ctrlTerminatedURL.Find(payload); m != nil {
		return string(trimControl(m))
	}

	if m := spaceTerminatedURL.Find(payload); m != nil {
		return strings.TrimSpace(string(m))
	}

	start := -1
	for _, prefix := range schemePrefixes {
		if i := bytes.Index(payload, prefix); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	if start < 0 {
		return ""
	}

	end := start
	for end < len(payload) && payload[end] >= 0x20 && payload[end] != 0x7f {
		end++
	}

	return string(trimControl(payload[start:end]))
}

func trimControl(b []byte) []byte {
	for len(b) > 0 {
		last := b[len(b)-1]
		if last < 0x20 || last == 0x7f {
			b = b[:len(b)-1]
			continue
		}
		break
	}
	return b
}

func (d *Decoder) decodeRedirect(ctx context.Context, wrappedLink string) (string, error) {
	var lastErr *ResolveError

	for attempt := 0; attempt < d.opts.MaxRetries; attempt++ {
		destination, rerr := d.followRedirects(ctx, wrappedLink)
		if rerr == nil {
			return destination, nil
		}
		lastErr = rerr

		if attempt < d.opts.MaxRetries-1 {
			select {
			case <-time.After(200 * time.Millisecond << attempt):
			case <-ctx.Done():
				return "", &ResolveError{Kind: FailureTimeout, Msg: ctx.Err().Error()}
			}
		}
	}

	return "", lastErr
}

func (d *Decoder) followRedirects(ctx context.Context, wrappedLink string) (string, *ResolveError) {
	d.waitRateLimit()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wrappedLink, nil)
	if err != nil {
		return "", &ResolveError{Kind: FailureMalformedPayload, Msg: "cannot build request: " + err.Error()}
	}
	if d.opts.UserAgent != "" {
		req.Header.Set("User-Agent", d.opts.UserAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", &ResolveError{Kind: FailureTimeout, Msg: err.Error()}
		}
		return "", &ResolveError{Kind: FailureNetwork, Msg: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return "", &ResolveError{Kind: FailureHTTPStatus, StatusCode: resp.StatusCode, Msg: resp.Status}
	}

	destination := resp.Request.URL.String()
	if destination == wrappedLink {
		return "", &ResolveError{Kind: FailureNoRedirect, Msg: "no redirect occurred"}
	}

	return destination, nil
}

// waitRateLimit enforces the minimum spacing between outbound requests.
// The reservation is taken under the lock, the sleep happens outside it, so
// concurrent callers smooth into the interval without strict FIFO ordering.
func (d *Decoder) waitRateLimit() {
	d.mu.Lock()
	now := time.Now()
	wait := d.opts.RateLimitDelay - now.Sub(d.lastRequest)
	if wait > 0 {
		d.lastRequest = now.Add(wait)
	} else {
		d.lastRequest = now
	}
	d.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}

func isTimeout(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
