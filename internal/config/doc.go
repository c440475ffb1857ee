// Package config loads stepper.toml, resolves it against defaults,
// environment variables and CLI overrides, validates it, and builds the
// step registry and contexts the engine runs.
package config
