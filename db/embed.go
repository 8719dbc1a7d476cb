// Package db embeds the PostgreSQL schema for the catalog and order tables.
package db

import _ "embed"

// Schema creates every table idempotently; it is applied on each start.
//
//go:embed migrations/001_schema.sql
var Schema string
