package slogx

import (
	"log/slog"
	"strings"
)

// Secret is a string that never reaches a log line. Passwords, bootstrap
// tokens and signing keys are wrapped in it wherever they are logged.
type Secret string

func (Secret) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}

// Email returns an attribute holding addr with the local part masked, enough
// to correlate log lines without recording the address.
func Email(key, addr string) slog.Attr {
	return slog.String(key, MaskEmail(addr))
}

// MaskEmail keeps the first character of the local part and the domain:
// "alice@example.com" becomes "a***@example.com".
func MaskEmail(addr string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(addr), "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
