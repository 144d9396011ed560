// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. The schema is managed by goose
// migrations embedded from the migrations subpackage.
package postgres
