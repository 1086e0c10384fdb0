// Package secrets resolves sensitive configuration values.
//
// Country database credentials are provisioned as mounted secret files in
// production; plain environment variables remain available for local
// development. Resolve prefers the file form so a leaked environment never
// carries production credentials.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Resolve returns the value for name. When name_FILE is set, the trimmed file
// contents win; otherwise the environment value is used. An unset value
// resolves to "" without error so callers can apply defaults.
func Resolve(name string) (string, error) {
	if path := os.Getenv(name + "_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read secret file for %s: %w", name, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return os.Getenv(name), nil
}
