package addon

import (
	"context"
	"errors"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/teemow/inboxdraft/internal/assistant"
	"github.com/teemow/inboxdraft/internal/google"
	"github.com/teemow/inboxdraft/internal/llm"
)

// maxMessageRunes bounds error text shown on a card.
const maxMessageRunes = 300

// userMessage maps err to the short text shown to the user.
func userMessage(err error) string {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	case errors.Is(err, ErrInvalidTransition):
		return "This card is out of date. Go back and try again."
	case errors.Is(err, google.ErrNoUserToken):
		return "Missing authorization. Reopen the add-on and try again."
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests:
		return "The AI service is busy. Please try again in a moment."
	case errors.Is(err, assistant.ErrEmptyInput), errors.Is(err, ErrNoMessageID):
		return sentence(err.Error())
	}
	return truncate(err.Error(), maxMessageRunes)
}

// sentence capitalises s and ends it with a period.
func sentence(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]
	if last, _ := utf8.DecodeLastRuneInString(s); !unicode.IsPunct(last) {
		s += "."
	}
	return s
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
