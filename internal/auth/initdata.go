/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const DefaultInitDataMaxAge = 24 * time.Hour

var (
	ErrInvalidInitData = errors.New("invalid init data")
	ErrInitDataExpired = errors.New("init data expired")
)

// TelegramUser is the user object embedded in Mini App init data
type TelegramUser struct {
	Id           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	PhotoURL     string `json:"photo_url"`
}

// InitData is the verified payload of a Mini App launch
type InitData struct {
	User     TelegramUser
	AuthDate time.Time
	QueryId  string
}

// VerifyInitData checks the Telegram Mini App signature of initData and its age.
// secret = HMAC-SHA256("WebAppData", botToken); hash = hex(HMAC-SHA256(secret, dataCheckString)).
func VerifyInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*InitData, error) {
	if initData == "" || botToken == "" {
		return nil, fmt.Errorf("%w: empty init data or bot token", ErrInvalidInitData)
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, fmt.Errorf("%w: hash not found", ErrInvalidInitData)
	}

	expected := signValues(values, botToken)
	if !hmac.Equal([]byte(hash), []byte(expected)) {
		return nil, fmt.Errorf("%w: hash mismatch", ErrInvalidInitData)
	}

	authDateUnix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid auth_date", ErrInvalidInitData)
	}
	authDate := time.Unix(authDateUnix, 0).UTC()

	if maxAge <= 0 {
		maxAge = DefaultInitDataMaxAge
	}
	if now.Sub(authDate) > maxAge {
		return nil, ErrInitDataExpired
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, fmt.Errorf("%w: invalid user: %v", ErrInvalidInitData, err)
	}
	if user.Id == 0 {
		return nil, fmt.Errorf("%w: user id not found", ErrInvalidInitData)
	}

	return &InitData{
		User:     user,
		AuthDate: authDate,
		QueryId:  values.Get("query_id"),
	}, nil
}

// signValues computes the hex signature over every field except hash
func signValues(values url.Values, botToken string) string {
	pairs := make([]string, 0, len(values))
	for key, vals := range values {
		if key == "hash" {
			continue
		}
		for _, value := range vals {
			pairs = append(pairs, key+"="+value)
		}
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	h := hmac.New(sha256.New, secret.Sum(nil))
	h.Write([]byte(dataCheckString))
	return hex.EncodeToString(h.Sum(nil))
}
