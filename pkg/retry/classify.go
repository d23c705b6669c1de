package retry

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/pinax-network/token-api-scraper/pkg/common/types"
)

// HTTP statuses worth another attempt: request timeouts, rate limits,
// gateway trouble and the Cloudflare 52x family.
var transientStatuses = map[int]struct{}{
	408: {}, 425: {}, 429: {}, 499: {},
	502: {}, 503: {}, 504: {},
	522: {}, 523: {}, 524: {},
}

// JSON-RPC codes nodes return for internal/transient conditions.
var transientRPCCodes = map[int]struct{}{
	-32000: {}, -32001: {}, -32002: {}, -32603: {},
}

// Overload and rate-limit vocabulary seen across public RPC providers.
var transientPhrases = []string{
	"too many requests",
	"rate limit",
	"busy",
	"overloaded",
	"try again",
	"temporarily unavailable",
	"timeout",
	"timed out",
}

// Phrases indicating a capable-node mismatch behind a load balancer: an
// -32600 carrying one of these means we hit a misconfigured or older
// backend, not that the request itself is invalid.
var capabilityPhrases = []string{
	"does not support constant",
	"unsupported",
	"method not found",
}

// Transport-level failure signatures as Go's net stack spells them.
var transportPhrases = []string{
	"connection reset",
	"connection refused",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"request canceled",
	"unexpected eof",
	"fetch failed",
}

// RetryableStatus reports whether an HTTP status is worth another attempt.
func RetryableStatus(status int) bool {
	if _, ok := transientStatuses[status]; ok {
		return true
	}
	return status >= 500 && status < 600
}

// Retryable classifies an error as transient (retry) or terminal (propagate).
// Classification is pure: it inspects the error chain and message text only.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var transportErr *types.TransportError
	if errors.As(err, &transportErr) {
		return true
	}

	var statusErr *types.HTTPStatusError
	if errors.As(err, &statusErr) {
		return RetryableStatus(statusErr.Status)
	}

	var rpcErr *types.JSONRPCError
	if errors.As(err, &rpcErr) {
		if _, ok := transientRPCCodes[rpcErr.Code]; ok {
			return true
		}
		msg := strings.ToLower(rpcErr.Message)
		if rpcErr.Code == -32600 && containsAny(msg, capabilityPhrases) {
			return true
		}
		return containsAny(msg, transientPhrases)
	}

	var decodeErr *types.DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Transient
	}

	var validationErr *types.ValidationError
	if errors.As(err, &validationErr) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return containsAny(msg, transportPhrases) || containsAny(msg, transientPhrases)
}

func containsAny(msg string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
