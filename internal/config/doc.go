// Package config defines the application configuration structure and
// loading logic. Configuration is read from environment variables with the
// CURATOR_ prefix and an optional config.yaml file, then validated before
// any component starts.
package config
