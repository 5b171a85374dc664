package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads envName using the *_FILE convention: when
// envName+"_FILE" is set the secret is read from that path, otherwise the
// variable itself is used. Neither set yields "".
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// Credentials is a basic-auth user and password pair.
type Credentials struct {
	User string
	Pass string
}

// IsSet reports whether both parts are present.
func (c Credentials) IsSet() bool {
	return c.User != "" && c.Pass != ""
}

// ResolveCredentials reads prefix+"_USER" and prefix+"_PASS" as secrets.
func ResolveCredentials(prefix string) (Credentials, error) {
	user, err := ResolveSecret(prefix + "_USER")
	if err != nil {
		return Credentials{}, err
	}
	pass, err := ResolveSecret(prefix + "_PASS")
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{User: user, Pass: pass}, nil
}
