// Package validator はリクエストの形式チェックを行い、usecaseの入力に変換する。
// 不正ならVALIDATION_ERROR（400）を返す。
package validator

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"artmarket/internal/usecase"
)

const (
	maxTitleLen       = 255
	maxDescriptionLen = 5000
	maxKeyLen         = 255
)

// パスパラメータ・クエリのID
func ParseID(raw string, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, usecase.Validation("invalid " + name)
	}
	return id, nil
}

// 任意のint（空ならdef）
func ParseIntDefault(raw string, def int, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, usecase.Validation("invalid " + name)
	}
	return n, nil
}

// X-Idempotency-Key（空は許可、長すぎはNG）
func IdempotencyKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if len(key) > maxKeyLen {
		return "", usecase.Validation("invalid idempotency key")
	}
	return key, nil
}

func required(s string, name string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", usecase.Validation(name + " is required")
	}
	return s, nil
}

func maxLen(s string, n int, name string) error {
	if utf8.RuneCountInString(s) > n {
		return usecase.Validation(name + " is too long")
	}
	return nil
}

// nilや0以下はNG
func positive(d *decimal.Decimal, name string) (decimal.Decimal, error) {
	if d == nil {
		return decimal.Zero, usecase.Validation(name + " is required")
	}
	if !d.IsPositive() {
		return decimal.Zero, usecase.Validation(name + " must be positive")
	}
	return *d, nil
}

// nilは0扱い、負はNG
func nonNegative(d *decimal.Decimal, name string) (decimal.Decimal, error) {
	if d == nil {
		return decimal.Zero, nil
	}
	if d.IsNegative() {
		return decimal.Zero, usecase.Validation(name + " must not be negative")
	}
	return *d, nil
}
