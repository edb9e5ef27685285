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

// Package ledgererr defines the error taxonomy surfaced by ledger operations.
// Business-rule violations are client errors; everything else is a System error.
package ledgererr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindSystem Kind = iota
	KindValidation
	KindNotFound
	KindInsufficientFunds
	KindLimitExceeded
	KindInvalidOperation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindLimitExceeded:
		return "limit_exceeded"
	case KindInvalidOperation:
		return "invalid_operation"
	default:
		return "system_error"
	}
}

// Sentinels for errors.Is. Any *Error of the matching kind compares equal.
var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation error"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Message: "insufficient funds"}
	ErrLimitExceeded     = &Error{Kind: KindLimitExceeded, Message: "limit exceeded"}
	ErrInvalidOperation  = &Error{Kind: KindInvalidOperation, Message: "invalid operation"}
	ErrSystem            = &Error{Kind: KindSystem, Message: "system error"}
)

// Error carries a kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindSystem {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can write errors.Is(err, ledgererr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InsufficientFunds(format string, args ...any) error {
	return &Error{Kind: KindInsufficientFunds, Message: fmt.Sprintf(format, args...)}
}

func LimitExceeded(format string, args ...any) error {
	return &Error{Kind: KindLimitExceeded, Message: fmt.Sprintf(format, args...)}
}

func InvalidOperation(format string, args ...any) error {
	return &Error{Kind: KindInvalidOperation, Message: fmt.Sprintf(format, args...)}
}

// System wraps an infrastructure failure. The message is safe to log, not to show.
func System(message string, err error) error {
	return &Error{Kind: KindSystem, Message: message, Err: err}
}

// KindOf returns the taxonomy kind of err. Untyped errors are System.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindSystem
}

// IsClientError reports whether err is a caller-actionable business error (4xx).
func IsClientError(err error) bool {
	return err != nil && KindOf(err) != KindSystem
}

// StatusCode maps err onto an HTTP-equivalent status for thin controllers.
func StatusCode(err error) int {
	if err == nil {
		return 200
	}
	switch KindOf(err) {
	case KindValidation:
		return 400
	case KindNotFound:
		return 404
	case KindInsufficientFunds, KindLimitExceeded, KindInvalidOperation:
		return 422
	default:
		return 500
	}
}
