package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid request signature")
	ErrRequestExpired   = errors.New("request timestamp expired or too far in future")
)

// maxClockDrift bounds the replay window for signed requests.
const maxClockDrift = 5 * time.Minute

// VerifyHMAC checks the authenticity of a request signed with the shared
// secret. The signed payload is Method + Path + Body + Timestamp; the
// comparison is constant time.
//
// An empty secret disables signing entirely (local development).
func VerifyHMAC(secret, method, path, body, timestamp, signature string) error {
	if secret == "" {
		return nil
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	drift := time.Duration(time.Now().Unix()-ts) * time.Second
	if drift < -maxClockDrift || drift > maxClockDrift {
		return ErrRequestExpired
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + path + body + timestamp))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignRequest produces the signature for a request, for clients and tests.
func SignRequest(secret, method, path, body, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + path + body + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}
