package auth

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loginTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signedPayload(v *TelegramVerifier, authDate time.Time) map[string]string {
	data := map[string]string{
		"id":         "123456",
		"first_name": "Alice",
		"username":   "alice",
		"photo_url":  "https://t.me/i/userpic/alice.jpg",
		"auth_date":  strconv.FormatInt(authDate.Unix(), 10),
	}
	data["hash"] = v.sign(data)
	return data
}

func TestDataCheckString(t *testing.T) {
	data := map[string]string{
		"username":   "alice",
		"id":         "1",
		"hash":       "ignored",
		"last_name":  "",
		"auth_date":  "100",
		"first_name": "Alice",
	}

	assert.Equal(t, "auth_date=100\nfirst_name=Alice\nid=1\nusername=alice", dataCheckString(data))
}

func TestTelegramVerifier_Verify(t *testing.T) {
	v := NewTelegramVerifier("123:bot-token", 24*time.Hour)

	t.Run("valid payload", func(t *testing.T) {
		profile, err := v.Verify(signedPayload(v, loginTime.Add(-time.Minute)), loginTime)
		require.NoError(t, err)

		assert.Equal(t, int64(123456), profile.TelegramID)
		assert.Equal(t, "Alice", profile.FirstName)
		require.NotNil(t, profile.Username)
		assert.Equal(t, "alice", *profile.Username)
		assert.Nil(t, profile.LastName)
		require.NotNil(t, profile.PhotoURL)
	})

	t.Run("uppercase hash accepted", func(t *testing.T) {
		data := signedPayload(v, loginTime)
		data["hash"] = strings.ToUpper(data["hash"])
		_, err := v.Verify(data, loginTime)
		assert.NoError(t, err)
	})

	t.Run("tampered field", func(t *testing.T) {
		data := signedPayload(v, loginTime)
		data["id"] = "654321"

		profile, err := v.Verify(data, loginTime)
		assert.ErrorIs(t, err, ErrHashMismatch)
		assert.Equal(t, int64(654321), profile.TelegramID)
	})

	t.Run("missing hash", func(t *testing.T) {
		data := signedPayload(v, loginTime)
		delete(data, "hash")
		_, err := v.Verify(data, loginTime)
		assert.ErrorIs(t, err, ErrMissingHash)
	})

	t.Run("other bot token", func(t *testing.T) {
		other := NewTelegramVerifier("999:other", 24*time.Hour)
		_, err := v.Verify(signedPayload(other, loginTime), loginTime)
		assert.ErrorIs(t, err, ErrHashMismatch)
	})

	t.Run("too old", func(t *testing.T) {
		data := signedPayload(v, loginTime.Add(-25*time.Hour))
		profile, err := v.Verify(data, loginTime)
		assert.ErrorIs(t, err, ErrAuthExpired)
		assert.Equal(t, int64(123456), profile.TelegramID)
	})

	t.Run("age check disabled", func(t *testing.T) {
		lenient := NewTelegramVerifier("123:bot-token", 0)
		_, err := lenient.Verify(signedPayload(lenient, loginTime.Add(-365*24*time.Hour)), loginTime)
		assert.NoError(t, err)
	})

	t.Run("signed but malformed id", func(t *testing.T) {
		data := map[string]string{"id": "abc", "first_name": "Alice", "auth_date": "1"}
		data["hash"] = v.sign(data)
		_, err := v.Verify(data, loginTime)
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("signed but missing auth_date", func(t *testing.T) {
		data := map[string]string{"id": "1", "first_name": "Alice"}
		data["hash"] = v.sign(data)
		_, err := v.Verify(data, loginTime)
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}
