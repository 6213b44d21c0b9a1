package verifier

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

// Verifier checks the authenticity of a provider notification. Failures are
// reported through the result, never as errors.
type Verifier interface {
	Verify(ctx context.Context, req domain.WebhookRequest) domain.VerificationResult
}

// Func adapts a function to Verifier.
type Func func(ctx context.Context, req domain.WebhookRequest) domain.VerificationResult

func (f Func) Verify(ctx context.Context, req domain.WebhookRequest) domain.VerificationResult {
	return f(ctx, req)
}

const (
	reasonSignatureMismatch = "Signature mismatch"
	reasonTimestampSkew     = "Timestamp outside tolerance"
	reasonInvalidPayload    = "Invalid payload"
)

// DefaultStripeTolerance bounds the accepted clock skew for Stripe signatures.
const DefaultStripeTolerance = 300 * time.Second

// parseSignatureHeader splits "k1=v1,k2=v2" pairs. Segments without "=" are
// skipped; repeated keys keep every value.
func parseSignatureHeader(header string) map[string][]string {
	parts := make(map[string][]string)
	for _, segment := range strings.Split(header, ",") {
		segment = strings.TrimSpace(segment)
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		parts[key] = append(parts[key], strings.TrimSpace(value))
	}
	return parts
}

func first(parts map[string][]string, key string) string {
	if values := parts[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func computeHMAC(secret string, message []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return mac.Sum(nil)
}

// equalHex compares a computed MAC with a hex signature in constant time.
func equalHex(expected []byte, provided string) bool {
	decoded, err := hex.DecodeString(strings.TrimSpace(provided))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, decoded)
}

func equalBase64(expected []byte, provided string) bool {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(provided))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, decoded)
}

// parseUnix accepts seconds or milliseconds since the epoch.
func parseUnix(value string) (time.Time, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	if n > 1e12 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}

// withinTolerance reports whether |now - ts| <= tolerance. A zero tolerance
// disables the check.
func withinTolerance(clk clock.Clock, ts time.Time, tolerance time.Duration) bool {
	if tolerance <= 0 {
		return true
	}
	skew := clk.Now().Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	return skew <= tolerance
}

func clockOrSystem(clk clock.Clock) clock.Clock {
	if clk == nil {
		return clock.SystemClock{}
	}
	return clk
}
