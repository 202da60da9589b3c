package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
	ErrPolicy        = errors.New("content policy rejection")
	ErrNoLinks       = errors.New("no links found")
	ErrDuplicate     = errors.New("duplicate")
	ErrStore         = errors.New("store failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must abort a sync or refresh run rather than
// being recorded against a single title.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStore)
}

// Reason renders a short classification label plus message for run results.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	label := "error"
	switch {
	case errors.Is(err, ErrPolicy):
		label = "policy"
	case errors.Is(err, ErrNoLinks):
		label = "no links"
	case errors.Is(err, ErrNotFound):
		label = "not found"
	case errors.Is(err, ErrTransient):
		label = "transient"
	case errors.Is(err, ErrValidation):
		label = "validation"
	case errors.Is(err, ErrConfiguration):
		label = "configuration"
	}
	return label + ": " + err.Error()
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{component, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
