// Package migrations ships the schema and seed SQL inside the binary so
// deployments never depend on a checkout layout.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sql seeds
var content embed.FS

var (
	// Schema holds the ordered *.up.sql / *.down.sql migration files.
	Schema = mustSub("sql")
	// Seeds holds idempotent seed files applied after migrations.
	Seeds = mustSub("seeds")
)

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(content, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
