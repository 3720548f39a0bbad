package eventrelay

import "embed"

// MigrationFiles contains the SQL migration files for the Relica-backed
// processed-key store, embedded in the binary. Users can access these files
// programmatically to apply migrations using their preferred migration tool
// (goose, golang-migrate, atlas, etc.)
//
// Example with goose:
//
//	import (
//	    "github.com/pressly/goose/v3"
//	    eventrelay "github.com/coregx/eventrelay"
//	)
//
//	goose.SetBaseFS(eventrelay.MigrationFiles)
//	if err := goose.Up(db, "migrations"); err != nil {
//	    log.Fatal(err)
//	}
//
//go:embed migrations/*.sql
var MigrationFiles embed.FS
