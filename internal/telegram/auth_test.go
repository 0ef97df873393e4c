package telegram

import (
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"
)

// buildInitData signs fields the way the Telegram client does.
func buildInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()
	vals := url.Values{}
	for k, v := range fields {
		vals.Add(k, v)
	}
	vals.Add("hash", hex.EncodeToString(Sign(vals, botToken)))
	return vals.Encode()
}

func TestValidateInitData(t *testing.T) {
	botToken := "123456:test-bot-token"
	now := time.Unix(1_700_000_000, 0)
	fields := map[string]string{
		"auth_date": strconv.FormatInt(now.Unix()-60, 10),
		"query_id":  "AAF",
		"user":      `{"id":77,"username":"u","first_name":"F"}`,
	}
	valid := buildInitData(t, botToken, fields)

	cases := []struct {
		name     string
		initData string
		token    string
		now      time.Time
		wantErr  error
	}{
		{"valid", valid, botToken, now, nil},
		{"wrong token", valid, "other", now, ErrInvalidInitData},
		{"tampered", valid + "&x=1", botToken, now, ErrInvalidInitData},
		{"no hash", "auth_date=1&user=%7B%7D", botToken, now, ErrInvalidInitData},
		{"expired", valid, botToken, now.Add(2 * time.Hour), ErrInitDataExpired},
		{"from the future", valid, botToken, now.Add(-time.Hour), ErrInitDataExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user, err := ValidateInitData(tc.initData, tc.token, tc.now, time.Hour)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.ID != 77 || user.Username != "u" {
				t.Fatalf("unexpected user: %+v", user)
			}
		})
	}
}

func TestValidateInitDataMissingUser(t *testing.T) {
	botToken := "123456:test-bot-token"
	now := time.Now()
	initData := buildInitData(t, botToken, map[string]string{
		"auth_date": strconv.FormatInt(now.Unix(), 10),
	})
	if _, err := ValidateInitData(initData, botToken, now, time.Hour); !errors.Is(err, ErrInvalidInitData) {
		t.Fatalf("expected ErrInvalidInitData, got %v", err)
	}
}

func TestParseUser(t *testing.T) {
	u, err := ParseUser("user=" + url.QueryEscape(`{"id":5,"first_name":"Ann"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.ID != 5 || u.FirstName != "Ann" {
		t.Fatalf("unexpected user: %+v", u)
	}
}
