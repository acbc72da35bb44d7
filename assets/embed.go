package assets

import (
	"embed"
	"io/fs"
)

//go:embed sql/*.sql
var FS embed.FS

// Migrations returns the embedded SQL migrations rooted at "sql".
func Migrations() fs.FS {
	return FS
}
