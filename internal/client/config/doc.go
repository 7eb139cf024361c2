// Package config loads client runtime settings from defaults, an optional
// JSON file and command-line flags, in that order of precedence.
package config
