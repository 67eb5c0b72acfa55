package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// sanitizeInput drops control characters other than tab, newline and
// carriage return, then trims whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// pathID returns the {id} path value when it is a well-formed UUID.
// Anything else cannot name a stored record.
func pathID(r *http.Request) (string, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
