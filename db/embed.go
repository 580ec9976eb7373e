// Package db embeds the SQL schema so the binary can migrate itself.
package db

import _ "embed"

// Schema holds the DDL for users, products, orders and order items.
//
//go:embed migrations/001_schema.sql
var Schema string
