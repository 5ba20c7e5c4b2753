package model

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
)

// ErrorKind classifies failures across extraction, validation, and aggregation.
type ErrorKind string

const (
	KindAnchorMissing     ErrorKind = "EXTRACTION_ANCHOR_MISSING"
	KindFieldNotFound     ErrorKind = "FIELD_NOT_FOUND"
	KindValidationFailed  ErrorKind = "VALIDATION_FAILED"
	KindNoDataFound       ErrorKind = "NO_DATA_FOUND"
	KindLockoutDetected   ErrorKind = "LOCKOUT_DETECTED"
	KindTimeout           ErrorKind = "TIMEOUT"
	KindUnrecognizedShape ErrorKind = "UNRECOGNIZED_SHAPE"
)

// Fatal reports whether the kind aborts processing of a whole document.
func (k ErrorKind) Fatal() bool {
	return k == KindAnchorMissing
}

// KindError attaches an ErrorKind and the offending source to an error.
type KindError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *KindError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *KindError) Unwrap() error {
	return e.Err
}

// NewKindError wraps err with kind and path.
func NewKindError(kind ErrorKind, path string, err error) *KindError {
	return &KindError{Kind: kind, Path: path, Err: err}
}

// KindOf returns the ErrorKind in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return ""
}

// ErrorCategory groups failures for user-facing messages.
type ErrorCategory string

const (
	CategoryNetwork        ErrorCategory = "NETWORK"
	CategoryFileSystem     ErrorCategory = "FILE_SYSTEM"
	CategoryBrowser        ErrorCategory = "BROWSER"
	CategoryAuthentication ErrorCategory = "AUTHENTICATION"
	CategoryValidation     ErrorCategory = "VALIDATION"
	CategoryTimeout        ErrorCategory = "TIMEOUT"
	CategoryUnknown        ErrorCategory = "UNKNOWN"
)

var categoryMessages = map[ErrorCategory]string{
	CategoryNetwork:        "Nettverksfeil - Sjekk internettforbindelsen",
	CategoryFileSystem:     "Filfeil - Kunne ikke lese eller skrive fil",
	CategoryBrowser:        "Nettleserfeil - Kunne ikke starte eller bruke nettleser",
	CategoryAuthentication: "Innloggingsfeil - BankID-autentisering feilet",
	CategoryValidation:     "Valideringsfeil - Ugyldig dataformat",
	CategoryTimeout:        "Tidsavbrudd - Operasjonen tok for lang tid",
	CategoryUnknown:        "Ukjent feil",
}

// Message returns the Norwegian message for the category.
func (c ErrorCategory) Message() string {
	if m, ok := categoryMessages[c]; ok {
		return m
	}
	return categoryMessages[CategoryUnknown]
}

// CategoryOf picks the category a failure is reported under, so users see
// a category message and never the raw error. Nil gives "".
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindTimeout:
		return CategoryTimeout
	case KindLockoutDetected:
		return CategoryAuthentication
	case KindAnchorMissing, KindFieldNotFound, KindValidationFailed, KindUnrecognizedShape, KindNoDataFound:
		return CategoryValidation
	}

	var pe *fs.PathError
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.As(err, &pe):
		return CategoryFileSystem
	case errors.As(err, &ne):
		if ne.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return CategoryTimeout
	case strings.Contains(msg, "bankid"), strings.Contains(msg, "login"), strings.Contains(msg, "innlogging"):
		return CategoryAuthentication
	case strings.Contains(msg, "browser"), strings.Contains(msg, "net::err"), strings.Contains(msg, "target closed"):
		return CategoryBrowser
	}
	return CategoryUnknown
}
