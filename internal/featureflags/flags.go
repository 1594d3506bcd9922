package featureflags

import (
	"os"
	"strings"
)

// RegistrationClosed rejects new sign-ups with 403.
const RegistrationClosed = "registration_closed"

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	return enabledIn(os.Getenv, name)
}

func enabledIn(getenv func(string) string, name string) bool {
	switch strings.ToLower(strings.TrimSpace(getenv("FLAG_" + strings.ToUpper(name)))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
