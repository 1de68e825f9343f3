// Package config loads engine configuration from environment variables
// using struct field tags, with optional .env file support for local
// development.
package config
