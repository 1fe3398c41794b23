package utils

import "os"

// GetEnvFn mirrors the teacher's lookup-with-default environment accessor,
// narrowed to the single string-default shape the CLI actually needs.
type GetEnvFn func(name string, defaultVal ...string) string

// Getenv reads an environment variable, falling back to defaultVal[0] (if
// given) when unset or empty. Exposed as a var, not a plain func, so tests
// can substitute a fake environment without touching the process's own.
var Getenv GetEnvFn

func getenv(name string, defaultVal ...string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	if len(defaultVal) > 0 {
		return defaultVal[0]
	}
	return ""
}

func init() {
	Getenv = getenv
}
