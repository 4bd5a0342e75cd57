package game

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidName rejects a spawn name.
var ErrInvalidName = errors.New("invalid name")

// MaxChatLength bounds a chat line in runes.
const MaxChatLength = 35

var markupRe = regexp.MustCompile(`<[^>]*>`)

// ValidateName strips markup and surrounding space, then rejects names that
// are not UTF-8, hold control characters, or exceed maxLen runes.
func ValidateName(name string, maxLen int) (string, error) {
	if !utf8.ValidString(name) {
		return "", ErrInvalidName
	}
	name = strings.TrimSpace(markupRe.ReplaceAllString(name, ""))
	if utf8.RuneCountInString(name) > maxLen {
		return "", ErrInvalidName
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", ErrInvalidName
		}
	}
	return name, nil
}

// SanitizeChat strips markup and control characters and truncates the line.
func SanitizeChat(msg string) string {
	msg = strings.ToValidUTF8(msg, "")
	msg = markupRe.ReplaceAllString(msg, "")
	msg = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, msg)
	msg = strings.TrimSpace(msg)
	if utf8.RuneCountInString(msg) > MaxChatLength {
		msg = string([]rune(msg)[:MaxChatLength])
	}
	return msg
}
