package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidInitData = errors.New("invalid init data")
	ErrInitDataExpired = errors.New("init data expired")
)

// maxClockSkew tolerates an auth_date slightly in the future.
const maxClockSkew = 5 * time.Minute

// ValidateInitData verifies the WebApp init_data signature and that auth_date
// is no older than maxAge, then returns the signed user.
func ValidateInitData(initData, botToken string, now time.Time, maxAge time.Duration) (*WebAppUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrInvalidInitData
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrInvalidInitData
	}
	values.Del("hash")

	provided, err := hex.DecodeString(hash)
	if err != nil {
		return nil, ErrInvalidInitData
	}
	if !hmac.Equal(Sign(values, botToken), provided) {
		return nil, ErrInvalidInitData
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrInvalidInitData
	}
	issued := time.Unix(authDate, 0)
	if now.Sub(issued) > maxAge || issued.Sub(now) > maxClockSkew {
		return nil, ErrInitDataExpired
	}

	return parseUser(values)
}

// Sign computes the init_data hash over every field except "hash":
// HMAC-SHA256(data_check_string, HMAC-SHA256(bot_token, "WebAppData")).
func Sign(values url.Values, botToken string) []byte {
	lines := make([]string, 0, len(values))
	for k, v := range values {
		if k == "hash" {
			continue
		}
		lines = append(lines, k+"="+strings.Join(v, ""))
	}
	sort.Strings(lines)

	key := hmac.New(sha256.New, []byte("WebAppData"))
	key.Write([]byte(botToken))

	h := hmac.New(sha256.New, key.Sum(nil))
	h.Write([]byte(strings.Join(lines, "\n")))
	return h.Sum(nil)
}
