package store

import "embed"

// Migrations holds the goose migration scripts for the roster schema. They
// are embedded so deployments carry the schema with the binary.
//
//go:embed migrations/*.sql
var Migrations embed.FS
