package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

const (
	InternalServiceError ErrorCode = "INTERNAL_SERVICE_ERROR"
	BadRequest           ErrorCode = "BAD_REQUEST"
	NotFound             ErrorCode = "NOT_FOUND"

	Unauthorized           ErrorCode = "UNAUTHORIZED"
	Paused                 ErrorCode = "PAUSED"
	AlreadyPaused          ErrorCode = "ALREADY_PAUSED"
	NotPaused              ErrorCode = "NOT_PAUSED"
	RecipientIsContract    ErrorCode = "RECIPIENT_IS_CONTRACT"
	RecipientAlreadyFunded ErrorCode = "RECIPIENT_ALREADY_FUNDED"
	RecipientLocked        ErrorCode = "RECIPIENT_LOCKED"
	InsufficientPool       ErrorCode = "INSUFFICIENT_POOL_BALANCE"
	OwnerBalanceSufficient ErrorCode = "OWNER_BALANCE_SUFFICIENT"
	TransferFailed         ErrorCode = "TRANSFER_FAILED"
	ChainUnavailable       ErrorCode = "CHAIN_UNAVAILABLE"
)

// statusCodes holds the http status reported for every faucet error code
var statusCodes = map[ErrorCode]int{
	InternalServiceError:   http.StatusInternalServerError,
	BadRequest:             http.StatusBadRequest,
	NotFound:               http.StatusNotFound,
	Unauthorized:           http.StatusForbidden,
	Paused:                 http.StatusConflict,
	AlreadyPaused:          http.StatusConflict,
	NotPaused:              http.StatusConflict,
	RecipientIsContract:    http.StatusUnprocessableEntity,
	RecipientAlreadyFunded: http.StatusUnprocessableEntity,
	RecipientLocked:        http.StatusTooManyRequests,
	InsufficientPool:       http.StatusUnprocessableEntity,
	OwnerBalanceSufficient: http.StatusConflict,
	TransferFailed:         http.StatusBadGateway,
	ChainUnavailable:       http.StatusServiceUnavailable,
}

// StatusCode returns the http status associated with the code.
// Unknown codes map to 500.
func (c ErrorCode) StatusCode() int {
	if status, ok := statusCodes[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is the error type returned by every faucet operation. It always carries
// the error code the caller is expected to inspect.
type Error struct {
	Err        error
	StatusCode int
	ErrorCode  ErrorCode
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(statusCode int, errorCode ErrorCode, err error) *Error {
	return &Error{
		Err:        err,
		StatusCode: statusCode,
		ErrorCode:  errorCode,
	}
}

func NewErrorWithMsg(statusCode int, errorCode ErrorCode, msg string) *Error {
	return &Error{
		Err:        errors.New(msg),
		StatusCode: statusCode,
		ErrorCode:  errorCode,
	}
}

// NewFaucetError builds an error for code using the status registered for it.
func NewFaucetError(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Err:        fmt.Errorf(format, args...),
		StatusCode: code.StatusCode(),
		ErrorCode:  code,
	}
}

func NewInternalServiceError(err error) *Error {
	return &Error{
		Err:        err,
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  InternalServiceError,
	}
}

// HasCode reports whether err is a *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.ErrorCode == code
	}
	return false
}
