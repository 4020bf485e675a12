// Package db embeds the database schema applied on startup.
package db

import _ "embed"

// Schema holds the DDL for the storefront tables. The statements are
// idempotent, so re-running them on boot is safe.
//
//go:embed migrations/001_schema.sql
var Schema string
