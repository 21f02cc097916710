package secrets

import (
	"fmt"
	"os"
	"strings"
)

// EnvLoader returns a Loader that reads the given environment variables.
// For each key K, a non-empty K_FILE names a file whose trimmed contents
// are used instead, which is how container runtimes mount secrets.
// Missing variables are omitted from the result map.
func EnvLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if path := os.Getenv(k + "_FILE"); path != "" {
				b, err := os.ReadFile(path) //nolint:gosec // operator-supplied secret path
				if err != nil {
					return nil, fmt.Errorf("read %s_FILE: %w", k, err)
				}
				vals[k] = strings.TrimSpace(string(b))
				continue
			}
			if v := os.Getenv(k); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}
