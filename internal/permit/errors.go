package permit

import (
	"errors"
	"fmt"
	"strings"
)

// Code — машинный код отказа. Клиент реагирует по коду, не по тексту.
type Code string

const (
	CodeIncompleteSubmission Code = "IncompleteSubmission"
	CodeIncompleteClosure    Code = "IncompleteClosure"
	CodeInvalidEndTime       Code = "InvalidEndTime"
	CodeInvalidInput         Code = "InvalidInput"

	CodeInvalidState       Code = "InvalidState"
	CodeDuplicateDecision  Code = "DuplicateDecision"
	CodeAlreadyResolved    Code = "AlreadyResolved"
	CodeConflictingRequest Code = "ConflictingRequest"
	CodeNoPendingRequest   Code = "NoPendingRequest"

	CodeForbidden   Code = "Forbidden"
	CodeUnknownRole Code = "UnknownRole"

	CodeNotFound Code = "NotFound"
)

// Kind — класс отказа; определяет HTTP-статус и политику ретраев клиента:
// валидация — исправить вход и повторить; конфликт — перечитать состояние;
// авторизация — не повторять.
type Kind int

const (
	KindValidation Kind = iota
	KindConflict
	KindAuthz
	KindNotFound
)

func (c Code) Kind() Kind {
	switch c {
	case CodeIncompleteSubmission, CodeIncompleteClosure, CodeInvalidEndTime, CodeInvalidInput:
		return KindValidation
	case CodeForbidden, CodeUnknownRole:
		return KindAuthz
	case CodeNotFound:
		return KindNotFound
	default:
		return KindConflict
	}
}

// Error — типизированный отказ перехода. Ни один отказ не «глотается»:
// наряд остаётся в прежнем валидном состоянии, причина возвращается целиком.
type Error struct {
	Code       Code
	Message    string
	Violations []string // заполняется для IncompleteSubmission
}

func (e *Error) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %s [%s]", e.Code, e.Message, strings.Join(e.Violations, "; "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError достаёт *Error из цепочки (для маппинга на HTTP).
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ErrNotFound — наряд с таким id не существует.
var ErrNotFound = &Error{Code: CodeNotFound, Message: "permit not found"}
