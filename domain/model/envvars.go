package model

import "fmt"

// Limits on user-supplied environment variables. Names follow POSIX shell
// identifier rules; values are capped so a single deployment cannot bloat
// the pod spec beyond what the API server accepts.
const (
	MaxEnvVars       = 1000
	MaxEnvNameLength = 253
	MaxEnvValueBytes = 128 * 1024
)

// ValidateEnvVars checks the whole environment map and returns the first
// violation found as a *ValidationError.
func ValidateEnvVars(env map[string]string) error {
	if len(env) > MaxEnvVars {
		return &ValidationError{Field: "env_vars", Reason: fmt.Sprintf("too many variables (%d > %d)", len(env), MaxEnvVars)}
	}
	for name, value := range env {
		if err := validateEnvName(name); err != nil {
			return err
		}
		if err := validateEnvValue(name, value); err != nil {
			return err
		}
	}
	return nil
}

func validateEnvName(name string) error {
	if name == "" {
		return &ValidationError{Field: "env_vars", Reason: "variable name is empty"}
	}
	if len(name) > MaxEnvNameLength {
		return &ValidationError{Field: "env_vars", Reason: fmt.Sprintf("variable name %q exceeds %d characters", name, MaxEnvNameLength)}
	}
	for i, c := range name {
		switch {
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9':
			if i == 0 {
				return &ValidationError{Field: "env_vars", Reason: fmt.Sprintf("variable name %q starts with a digit", name)}
			}
		default:
			return &ValidationError{Field: "env_vars", Reason: fmt.Sprintf("variable name %q contains invalid character %q", name, c)}
		}
	}
	return nil
}

func validateEnvValue(name, value string) error {
	if len(value) > MaxEnvValueBytes {
		return &ValidationError{Field: "env_vars", Reason: fmt.Sprintf("value of %q exceeds %d bytes", name, MaxEnvValueBytes)}
	}
	for _, c := range value {
		if c == 0 {
			return &ValidationError{Field: "env_vars", Reason: fmt.Sprintf("value of %q contains a NUL byte", name)}
		}
	}
	return nil
}
