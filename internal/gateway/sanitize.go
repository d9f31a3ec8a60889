package gateway

import "strings"

// EmptyAnswer replaces a blank tutor answer.
const EmptyAnswer = "I couldn't find an answer. Try rephrasing."

// SanitizeAnswer removes the markdown symbols '#', '*' and '$' from a tutor
// answer and keeps every other rune in order. An answer that is blank once
// stripped becomes EmptyAnswer.
func SanitizeAnswer(text string) string {
	out := strings.Map(func(r rune) rune {
		switch r {
		case '#', '*', '$':
			return -1
		}
		return r
	}, text)
	if strings.TrimSpace(out) == "" {
		return EmptyAnswer
	}
	return out
}
