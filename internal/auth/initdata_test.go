package auth

import (
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"
)

const testBotToken = "123456:TEST-TOKEN"

// signInitData builds a launch payload signed with botToken
func signInitData(t *testing.T, botToken string, userJSON string, authDate time.Time) string {
	t.Helper()

	values := url.Values{}
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", userJSON)
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("hash", signValues(values, botToken))
	return values.Encode()
}

func TestVerifyInitData_Valid(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	initData := signInitData(t, testBotToken,
		`{"id":42,"first_name":"Ann","last_name":"Lee","username":"ann","language_code":"en"}`,
		now.Add(-time.Hour))

	payload, err := VerifyInitData(initData, testBotToken, DefaultInitDataMaxAge, now)
	if err != nil {
		t.Fatalf("VerifyInitData failed: %v", err)
	}

	if payload.User.Id != 42 {
		t.Errorf("Expected user id 42, got %d", payload.User.Id)
	}
	if payload.User.Username != "ann" {
		t.Errorf("Expected username ann, got %s", payload.User.Username)
	}
	if payload.QueryId != "AAHdF6IQAAAAAN0XohDhrOrc" {
		t.Errorf("Expected query id to round trip, got %s", payload.QueryId)
	}
	if !payload.AuthDate.Equal(now.Add(-time.Hour)) {
		t.Errorf("Expected auth date %s, got %s", now.Add(-time.Hour), payload.AuthDate)
	}
}

func TestVerifyInitData_Rejects(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	valid := signInitData(t, testBotToken, `{"id":42}`, now)

	tampered, _ := url.ParseQuery(valid)
	tampered.Set("user", `{"id":43}`)

	missingHash, _ := url.ParseQuery(valid)
	missingHash.Del("hash")

	tests := []struct {
		name     string
		initData string
		botToken string
		now      time.Time
		want     error
	}{
		{"empty", "", testBotToken, now, ErrInvalidInitData},
		{"wrong token", valid, "other:TOKEN", now, ErrInvalidInitData},
		{"tampered user", tampered.Encode(), testBotToken, now, ErrInvalidInitData},
		{"missing hash", missingHash.Encode(), testBotToken, now, ErrInvalidInitData},
		{"expired", valid, testBotToken, now.Add(DefaultInitDataMaxAge + time.Second), ErrInitDataExpired},
		{"no user id", signInitData(t, testBotToken, `{"first_name":"x"}`, now), testBotToken, now, ErrInvalidInitData},
		{"malformed user", signInitData(t, testBotToken, `not-json`, now), testBotToken, now, ErrInvalidInitData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyInitData(tt.initData, tt.botToken, DefaultInitDataMaxAge, tt.now)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
