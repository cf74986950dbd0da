package httpx

import (
	"net/http"
	"strings"
)

// TokenQueryParam is the query parameter browsers fall back to when they
// cannot set an Authorization header.
const TokenQueryParam = "token"

// BearerToken extracts a token from "Authorization: Bearer <t>", falling back
// to the token query parameter. It reports false when neither is present.
func BearerToken(r *http.Request) (string, bool) {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, rest, ok := strings.Cut(authz, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		tok := strings.TrimSpace(rest)
		return tok, tok != ""
	}

	if tok := strings.TrimSpace(r.URL.Query().Get(TokenQueryParam)); tok != "" {
		return tok, true
	}
	return "", false
}

// WriteBearerError writes an RFC 6750 challenge with a JSON error body.
func WriteBearerError(w http.ResponseWriter, code int, errCode, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+errCode+`", error_description="`+desc+`"`)
	WriteJSON(w, code, map[string]string{
		"error":             errCode,
		"error_description": desc,
	})
}
