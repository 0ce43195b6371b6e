// Package db embeds the catalog and order schema.
package db

import _ "embed"

// Schema contains idempotent DDL for products, discounts, orders, line items
// and API keys.
//
//go:embed migrations/001_schema.sql
var Schema string
