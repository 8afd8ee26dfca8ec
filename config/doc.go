// Package config loads and validates the application configuration from
// a YAML file layered over built-in defaults. Environment variables are
// expanded in the raw file, keeping credentials out of checked-in config.
package config
