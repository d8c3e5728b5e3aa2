// Package config loads, validates, and normalizes shuttle configuration.
//
// Configuration is TOML with a small surface: the two storage endpoints
// (fileserver mount and project space), the datamover and workspace tool
// locations with their timeouts, and logging. Load applies defaults,
// expands ~ and relative paths, and fails fast on invalid values so the
// rest of the tool can trust the config it receives.
package config
