// Package core implements the SERVIAPP domain: the service-provider listing,
// its filter/group views, selection and export, session/role resolution, and
// the mutation coordinator that keeps the local listing consistent with the
// remote store.
//
// # Error Codes Reference
//
// Errors surfaced to users carry a short code for support reference:
//
//	AUTH001 - Unauthorized: action requires a signed-in identity
//	AUTH002 - Forbidden: identity lacks ownership or administrator rights
//	REC001  - DuplicateOwner: identity already has a published listing
//	REC002  - NotFound: the referenced listing does not exist
//	REC003  - Validation: a field failed validation
//	EXP001  - EmptySelection: export attempted with nothing selected
//	NET001  - RemoteFailure: a collaborator call failed (store, blob, auth)
//	ERR000  - Unknown: fallback when nothing matched
//
// None of these trigger automatic retry; all are reported at the point of the
// user action.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds. Callers classify with errors.Is.
var (
	// ErrUnauthorized: no identity present for an action requiring one.
	ErrUnauthorized = errors.New("unauthorized: sign in required")

	// ErrForbidden: identity present but not the owner nor an administrator.
	ErrForbidden = errors.New("forbidden: not owner or administrator")

	// ErrDuplicateOwner: attempt to create a second record for one identity.
	ErrDuplicateOwner = errors.New("duplicate owner: identity already has a listing")

	// ErrEmptySelection: export attempted with nothing selected.
	ErrEmptySelection = errors.New("empty selection: nothing to export")

	// ErrNotFound: referenced record id absent.
	ErrNotFound = errors.New("record not found")
)

// ValidationError reports a rejected record field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

// RemoteError wraps any underlying I/O failure from a collaborator (document
// store, blob store, identity service). It is reported to the user, never
// retried automatically.
type RemoteError struct {
	Op  string // which call failed ("store.insert", "blob.put", ...)
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote failure in %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// remoteErr wraps err as a RemoteError unless it already is one or is a
// domain sentinel that must pass through untouched.
func remoteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicateOwner) {
		return err
	}
	return &RemoteError{Op: op, Err: err}
}

// UserMessage provides user-friendly error information with a support code.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string // support reference
}

// kindMessages maps the sentinel kinds to user messages.
var kindMessages = []struct {
	is  error
	msg UserMessage
}{
	{ErrUnauthorized, UserMessage{
		Message: "Você precisa estar logado para essa ação",
		Action:  "Entre na sua conta e tente novamente",
		Code:    "AUTH001",
	}},
	{ErrForbidden, UserMessage{
		Message: "Você não tem permissão para alterar este anúncio",
		Action:  "Apenas o dono do anúncio ou um administrador pode fazer isso",
		Code:    "AUTH002",
	}},
	{ErrDuplicateOwner, UserMessage{
		Message: "Você já possui um serviço cadastrado",
		Action:  "Edite o seu anúncio existente em vez de criar outro",
		Code:    "REC001",
	}},
	{ErrNotFound, UserMessage{
		Message: "Anúncio não encontrado",
		Action:  "Recarregue a lista e tente novamente",
		Code:    "REC002",
	}},
	{ErrEmptySelection, UserMessage{
		Message: "Nenhum serviço selecionado para exportar",
		Action:  "Selecione pelo menos um serviço antes de exportar",
		Code:    "EXP001",
	}},
}

// remotePatterns classify RemoteError causes by substring, most specific
// first. The first match wins.
var remotePatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"connection refused", UserMessage{
		Message: "Não foi possível conectar ao serviço de dados",
		Action:  "Tente novamente em alguns instantes",
		Code:    "NET001",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "A operação demorou demais e foi interrompida",
		Action:  "Verifique sua conexão e tente novamente",
		Code:    "NET001",
	}},
	{"timeout", UserMessage{
		Message: "A operação demorou demais e foi interrompida",
		Action:  "Verifique sua conexão e tente novamente",
		Code:    "NET001",
	}},
}

var defaultMessage = UserMessage{
	Message: "Ocorreu um erro inesperado",
	Action:  "Tente novamente ou contate o suporte",
	Code:    "ERR000",
}

// MapError translates a technical error into a user-facing message.
// Sentinel kinds are matched with errors.Is; remote failures fall back to
// substring classification of the underlying cause.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, km := range kindMessages {
		if errors.Is(err, km.is) {
			return km.msg
		}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return UserMessage{
			Message: "Campo inválido: " + ve.Field,
			Action:  ve.Reason,
			Code:    "REC003",
		}
	}

	var re *RemoteError
	if errors.As(err, &re) {
		cause := strings.ToLower(re.Err.Error())
		for _, rp := range remotePatterns {
			if strings.Contains(cause, rp.pattern) {
				return rp.msg
			}
		}
		return UserMessage{
			Message: "Falha ao comunicar com o serviço de dados",
			Action:  "Tente novamente em alguns instantes",
			Code:    "NET001",
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
