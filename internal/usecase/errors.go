package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// 画面に返すエラー種別
type ErrorKind string

const (
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindConflict           ErrorKind = "CONFLICT"
	KindInvalidState       ErrorKind = "INVALID_STATE"
	KindPreconditionFailed ErrorKind = "PRECONDITION_FAILED"
	KindPaymentError       ErrorKind = "PAYMENT_ERROR"
	KindValidation         ErrorKind = "VALIDATION_ERROR"
	KindUnauthorized       ErrorKind = "UNAUTHORIZED"
	KindForbidden          ErrorKind = "FORBIDDEN"
	KindInternal           ErrorKind = "INTERNAL"
)

var kindStatus = map[ErrorKind]int{
	KindNotFound:           http.StatusNotFound,
	KindConflict:           http.StatusConflict,
	KindInvalidState:       http.StatusUnprocessableEntity,
	KindPreconditionFailed: http.StatusPreconditionFailed,
	KindPaymentError:       http.StatusBadGateway,
	KindValidation:         http.StatusBadRequest,
	KindUnauthorized:       http.StatusUnauthorized,
	KindForbidden:          http.StatusForbidden,
	KindInternal:           http.StatusInternalServerError,
}

type HTTPError struct {
	Status  int
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Kind:    kindForStatus(status),
		Message: message,
	}
}

func newKindError(kind ErrorKind, message string, cause error) error {
	return &HTTPError{
		Status:  kindStatus[kind],
		Kind:    kind,
		Message: message,
		Err:     cause,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// IsKind はテスト・ログ用
func IsKind(err error, kind ErrorKind) bool {
	he, ok := AsHTTPError(err)
	return ok && he.Kind == kind
}

func NotFound(message string) error     { return newKindError(KindNotFound, message, nil) }
func Conflict(message string) error     { return newKindError(KindConflict, message, nil) }
func InvalidState(message string) error { return newKindError(KindInvalidState, message, nil) }
func Validation(message string) error   { return newKindError(KindValidation, message, nil) }
func Forbidden(message string) error    { return newKindError(KindForbidden, message, nil) }

func PreconditionFailed(message string) error {
	return newKindError(KindPreconditionFailed, message, nil)
}

func PaymentError(message string, cause error) error {
	return newKindError(KindPaymentError, message, cause)
}

func unauthorized() error {
	return newKindError(KindUnauthorized, "unauthorized", nil)
}

// DBエラーは中身を出さない（ログ用にErrに保持）
func dbError(err error) error {
	return newKindError(KindInternal, "db error", err)
}

func kindForStatus(status int) ErrorKind {
	for k, s := range kindStatus {
		if s == status {
			return k
		}
	}
	if status >= 500 {
		return KindInternal
	}
	return KindValidation
}

// 既にHTTPErrorならそのまま、それ以外はdb error
func wrapRepoErr(err error) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	return dbError(err)
}
