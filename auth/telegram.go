package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"streambet/models"
)

var (
	ErrMissingHash      = errors.New("telegram payload has no hash")
	ErrHashMismatch     = errors.New("telegram payload hash mismatch")
	ErrAuthExpired      = errors.New("telegram auth_date too old")
	ErrMalformedPayload = errors.New("telegram payload malformed")
)

// TelegramVerifier checks payloads produced by the Telegram login widget
type TelegramVerifier struct {
	secretKey []byte
	maxAge    time.Duration
}

// NewTelegramVerifier creates a verifier for the given bot token. A zero
// maxAge disables the auth_date check.
func NewTelegramVerifier(botToken string, maxAge time.Duration) *TelegramVerifier {
	key := sha256.Sum256([]byte(botToken))
	return &TelegramVerifier{
		secretKey: key[:],
		maxAge:    maxAge,
	}
}

// Verify checks the payload signature and age. The profile is filled as far
// as the payload allows even when verification fails, so callers can audit it.
func (v *TelegramVerifier) Verify(data map[string]string, now time.Time) (models.TelegramProfile, error) {
	profile, parseErr := parseProfile(data)

	received := data["hash"]
	if received == "" {
		return profile, ErrMissingHash
	}
	if !hmac.Equal([]byte(v.sign(data)), []byte(strings.ToLower(received))) {
		return profile, ErrHashMismatch
	}
	if parseErr != nil {
		return profile, parseErr
	}

	authDate, err := strconv.ParseInt(data["auth_date"], 10, 64)
	if err != nil {
		return profile, fmt.Errorf("%w: auth_date", ErrMalformedPayload)
	}
	if v.maxAge > 0 && now.Sub(time.Unix(authDate, 0)) > v.maxAge {
		return profile, ErrAuthExpired
	}

	return profile, nil
}

// sign computes the hex HMAC of the data-check string
func (v *TelegramVerifier) sign(data map[string]string) string {
	mac := hmac.New(sha256.New, v.secretKey)
	mac.Write([]byte(dataCheckString(data)))
	return hex.EncodeToString(mac.Sum(nil))
}

// dataCheckString joins the sorted key=value pairs, skipping hash and empty values
func dataCheckString(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k, val := range data {
		if k == "hash" || val == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + data[k]
	}
	return strings.Join(pairs, "\n")
}

func parseProfile(data map[string]string) (models.TelegramProfile, error) {
	var profile models.TelegramProfile

	id, err := strconv.ParseInt(data["id"], 10, 64)
	if err != nil || id <= 0 {
		return profile, fmt.Errorf("%w: id", ErrMalformedPayload)
	}
	profile.TelegramID = id
	profile.FirstName = data["first_name"]
	profile.Username = optional(data["username"])
	profile.LastName = optional(data["last_name"])
	profile.PhotoURL = optional(data["photo_url"])

	if profile.FirstName == "" {
		return profile, fmt.Errorf("%w: first_name", ErrMalformedPayload)
	}
	return profile, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
