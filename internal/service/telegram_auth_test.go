package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

// собирает init_data так же, как это делает клиент Telegram
func buildInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()
	var parts []string
	for k, v := range fields {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)

	key := hmac.New(sha256.New, []byte("WebAppData"))
	key.Write([]byte(botToken))
	h := hmac.New(sha256.New, key.Sum(nil))
	h.Write([]byte(strings.Join(parts, "\n")))

	vals := url.Values{}
	for k, v := range fields {
		vals.Add(k, v)
	}
	vals.Add("hash", hex.EncodeToString(h.Sum(nil)))
	return vals.Encode()
}

func freshFields(now time.Time) map[string]string {
	return map[string]string{
		"auth_date": strconv.FormatInt(now.Unix(), 10),
		"user":      `{"id":1,"username":"u","first_name":"F"}`,
	}
}

func TestValidateTelegramInitData_Valid(t *testing.T) {
	botToken := "test-bot-token"
	now := time.Now()
	initData := buildInitData(t, botToken, freshFields(now))

	vals, ok := ValidateTelegramInitData(initData, botToken, now)
	if !ok {
		t.Fatalf("ожидалась валидная init data")
	}
	if vals.Get("user") == "" {
		t.Fatalf("ожидалось поле user в значениях")
	}
}

func TestValidateTelegramInitData_Tampered(t *testing.T) {
	botToken := "test-bot-token"
	now := time.Now()
	initData := buildInitData(t, botToken, freshFields(now))

	// лишнее поле ломает подпись
	tampered := initData + "&x=1"

	if _, ok := ValidateTelegramInitData(tampered, botToken, now); ok {
		t.Fatalf("ожидалось, что измененная init data будет невалидной")
	}
}

func TestValidateTelegramInitData_WrongToken(t *testing.T) {
	now := time.Now()
	initData := buildInitData(t, "token-a", freshFields(now))

	if _, ok := ValidateTelegramInitData(initData, "token-b", now); ok {
		t.Fatalf("подпись чужим токеном не должна проходить")
	}
}

func TestValidateTelegramInitData_Expired(t *testing.T) {
	botToken := "test-bot-token"
	issued := time.Now().Add(-2 * time.Hour)
	initData := buildInitData(t, botToken, freshFields(issued))

	if _, ok := ValidateTelegramInitData(initData, botToken, time.Now()); ok {
		t.Fatalf("init data старше часа должна отклоняться")
	}
}

func TestParseWebAppUser(t *testing.T) {
	botToken := "test-bot-token"
	now := time.Now()
	initData := buildInitData(t, botToken, freshFields(now))

	u, err := ParseWebAppUser(initData, botToken, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 1 || u.DisplayName() != "u" {
		t.Fatalf("неверный пользователь: %+v", u)
	}
	if ref := u.Ref(); ref.ChatID != 0 {
		t.Fatalf("у игрока из WebApp нет чата, получили %d", ref.ChatID)
	}
}

func TestParseWebAppUser_MissingUser(t *testing.T) {
	botToken := "test-bot-token"
	now := time.Now()
	initData := buildInitData(t, botToken, map[string]string{
		"auth_date": strconv.FormatInt(now.Unix(), 10),
	})

	if _, err := ParseWebAppUser(initData, botToken, now); !errors.Is(err, ErrInvalidInitData) {
		t.Fatalf("ожидалась ErrInvalidInitData, получили %v", err)
	}
}
