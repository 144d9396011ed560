//go:build integration

// Package testdb provides helpers for tests that run against a real
// PostgreSQL database. They are compiled only with the integration build tag
// and skip themselves when no database URL is configured.
package testdb
