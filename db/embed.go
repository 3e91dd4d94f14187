// Package db embeds the PostgreSQL schema.
package db

import _ "embed"

// Schema creates the customer, product, order and order item tables. Every
// statement is idempotent so it runs on each start.
//
//go:embed migrations/001_schema.sql
var Schema string
