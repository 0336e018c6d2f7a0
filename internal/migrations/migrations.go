package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed *.sql
var files embed.FS

// GetInitialSchema returns the initial database schema
func GetInitialSchema() (string, error) {
	data, err := files.ReadFile("001_initial_schema.sql")
	if err != nil {
		return "", fmt.Errorf("could not read initial schema: %w", err)
	}
	return string(data), nil
}

// All returns every migration script in apply order
func All() ([]string, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	scripts := make([]string, 0, len(names))
	for _, name := range names {
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("could not read migration %s: %w", name, err)
		}
		scripts = append(scripts, string(data))
	}
	return scripts, nil
}
