package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"connect4_bot/internal/domain"
)

var ErrInvalidInitData = errors.New("invalid telegram init data")

// максимальный возраст auth_date и допустимый сдвиг часов вперед
const (
	initDataMaxAge = time.Hour
	initDataSkew   = 5 * time.Minute
)

// WebAppUser - поле user из init_data
type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u WebAppUser) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u WebAppUser) Ref() domain.Ref {
	return domain.Ref{ID: domain.PlayerID(u.ID), Name: u.DisplayName()}
}

// ValidateTelegramInitData проверяет HMAC init_data Telegram WebApp
// и свежесть auth_date, чтобы старую строку нельзя было переиспользовать
func ValidateTelegramInitData(initData, botToken string, now time.Time) (url.Values, bool) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, false
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, false
	}
	values.Del("hash")

	provided, err := hex.DecodeString(hash)
	if err != nil {
		return nil, false
	}
	if !hmac.Equal(signInitData(values, botToken), provided) {
		return nil, false
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, false
	}
	issued := time.Unix(authDate, 0)
	if now.Sub(issued) > initDataMaxAge || issued.Sub(now) > initDataSkew {
		return nil, false
	}

	return values, true
}

// ParseWebAppUser валидирует init_data и достает из нее игрока
func ParseWebAppUser(initData, botToken string, now time.Time) (WebAppUser, error) {
	values, ok := ValidateTelegramInitData(initData, botToken, now)
	if !ok {
		return WebAppUser{}, ErrInvalidInitData
	}
	var u WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &u); err != nil || u.ID == 0 {
		return WebAppUser{}, ErrInvalidInitData
	}
	return u, nil
}

// ключ - HMAC("WebAppData", token), подпись - HMAC(ключ, отсортированные пары через \n)
func signInitData(values url.Values, botToken string) []byte {
	pairs := make([]string, 0, len(values))
	for k, v := range values {
		pairs = append(pairs, k+"="+strings.Join(v, ""))
	}
	sort.Strings(pairs)

	secretKey := hmac.New(sha256.New, []byte("WebAppData"))
	secretKey.Write([]byte(botToken))
	h := hmac.New(sha256.New, secretKey.Sum(nil))
	h.Write([]byte(strings.Join(pairs, "\n")))
	return h.Sum(nil)
}
