// Package config loads the service configuration from a YAML file and
// INTAKE_* environment variables.
package config
