package featureflags

import (
	"os"
	"strings"
)

// Enabled reports whether the FLAG_<NAME> environment variable switches
// a flag on. Accepted truthy values: 1, true, yes, on (case-insensitive).
// The demo seed is the only flag the server reads today.
func Enabled(name string) bool {
	switch strings.ToLower(os.Getenv("FLAG_" + strings.ToUpper(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
