// Package migrations embeds the schema migration files for both database
// backends so binaries can bootstrap their own schema.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// UpFiles returns the up-migration file contents for the given dialect
// ("sqlite" or "postgres"), sorted by file name.
func UpFiles(dialect string) ([]string, error) {
	entries, err := fs.Glob(files, dialect+"/*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)

	contents := make([]string, 0, len(entries))
	for _, name := range entries {
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		contents = append(contents, string(data))
	}
	return contents, nil
}
