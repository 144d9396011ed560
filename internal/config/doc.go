// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config.yaml file. It provides
// type-safe access to the settings needed by the server, the stores, the
// token service, and the notification workers.
package config
