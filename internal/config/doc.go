// Package config resolves run settings for roxdl.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// ROXDL_* environment variables, then explicitly set command-line flags.
package config
