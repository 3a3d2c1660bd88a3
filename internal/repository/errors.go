package repository

import "errors"

var ErrNotFound = errors.New("not found")

// ユニーク制約違反（二重予約など）
var ErrDuplicate = errors.New("duplicate")
