// Package config handles configuration loading, parsing, and validation
// from various sources (defaults, an optional YAML file, .env, environment
// variables, and command-line flags). It provides type-safe access to the
// settings of a generation run while keeping configuration details separate
// from the dispatcher.
package config
