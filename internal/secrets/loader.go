// Package secrets resolves credentials given inline or through a file.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages.
	Name string
	// Value is an inline secret from configuration or flags.
	Value string
	// File points to a file holding the secret. It takes precedence over Value.
	File string
}

func (s Source) name() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return "secret"
}

// Load returns the trimmed secret from src. It fails when neither File nor
// Value holds a usable secret.
func Load(src Source) (string, error) {
	secret, err := read(src)
	if err != nil {
		return "", err
	}
	if secret == "" {
		if file := strings.TrimSpace(src.File); file != "" {
			return "", fmt.Errorf("%s file %q is empty", src.name(), file)
		}
		return "", fmt.Errorf("%s is not configured", src.name())
	}
	return secret, nil
}

// LoadOptional behaves like Load but returns an empty secret when src is not
// configured at all. A configured file that is empty is still an error.
func LoadOptional(src Source) (string, error) {
	if strings.TrimSpace(src.File) == "" && strings.TrimSpace(src.Value) == "" {
		return "", nil
	}
	return Load(src)
}

func read(src Source) (string, error) {
	file := strings.TrimSpace(src.File)
	if file == "" {
		return strings.TrimSpace(src.Value), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s from file %q: %w", src.name(), file, err)
	}
	return strings.TrimSpace(string(data)), nil
}
