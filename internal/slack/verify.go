// Package slack implements the inbound Slack request contract: signature
// verification and idempotency key derivation.
package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// MaxTimestampAge is the replay window. Requests whose timestamp differs
// from the verifier clock by more than this are rejected regardless of
// signature validity.
const MaxTimestampAge = 5 * time.Minute

var (
	ErrMissingHeaders    = errors.New("missing signature headers")
	ErrReplayTooOld      = errors.New("request timestamp outside replay window")
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Verify checks a Slack request signature against the signing secret.
// body must be the exact bytes received on the wire; timestamp and signature
// come from the X-Slack-Request-Timestamp and X-Slack-Signature headers.
// It returns nil on success and one of ErrMissingHeaders, ErrReplayTooOld,
// or ErrSignatureMismatch otherwise.
func Verify(secret string, body []byte, timestamp, signature string) error {
	return verifyAt(secret, body, timestamp, signature, time.Now())
}

func verifyAt(secret string, body []byte, timestamp, signature string, now time.Time) error {
	if timestamp == "" || signature == "" {
		return ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp %q", ErrMissingHeaders, timestamp)
	}

	age := now.Unix() - ts
	if age < 0 {
		age = -age
	}
	if time.Duration(age)*time.Second > MaxTimestampAge {
		return fmt.Errorf("%w: age %ds", ErrReplayTooOld, age)
	}

	expected := Sign(secret, body, timestamp)
	// hmac.Equal is constant-time over the signature bytes.
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}

	return nil
}

// Sign computes the v0 signature for a request body and timestamp.
// Slack's basestring is "v0:<timestamp>:<raw body>".
func Sign(secret string, body []byte, timestamp string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte("v0:" + timestamp + ":"))
	h.Write(body)
	return "v0=" + hex.EncodeToString(h.Sum(nil))
}
