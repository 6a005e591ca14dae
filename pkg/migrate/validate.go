package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

const (
	gooseUp   = "-- +goose Up"
	gooseDown = "-- +goose Down"
)

// migrationFile is one parsed entry of the migrations directory.
type migrationFile struct {
	Version string
	Name    string
	File    string
}

// ValidateDir checks every .sql file in dir: YYYYMMDDHHMMSS_name.sql
// filenames, unique versions and names, and an Up section followed by a Down
// section.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS applies the ValidateDir checks to the root of fsys.
func ValidateFS(fsys fs.FS) error {
	files, err := listMigrations(fsys)
	if err != nil {
		return err
	}

	names := map[string]string{}
	for _, f := range files {
		if prev, ok := names[f.Name]; ok {
			return fmt.Errorf("migration name %q used by %q and %q", f.Name, prev, f.File)
		}
		names[f.Name] = f.File

		b, err := fs.ReadFile(fsys, f.File)
		if err != nil {
			return fmt.Errorf("read file %q: %w", f.File, err)
		}
		txt := string(b)
		up := strings.Index(txt, gooseUp)
		if up < 0 {
			return fmt.Errorf("migration %q missing %q", f.File, gooseUp)
		}
		down := strings.Index(txt, gooseDown)
		if down < 0 {
			return fmt.Errorf("migration %q missing %q", f.File, gooseDown)
		}
		if down < up {
			return fmt.Errorf("migration %q has %q before %q", f.File, gooseDown, gooseUp)
		}
	}
	return nil
}

// listMigrations returns the .sql files in fsys ordered by version.
func listMigrations(fsys fs.FS) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	versions := map[string]string{}
	var files []migrationFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := versions[m[1]]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		versions[m[1]] = name
		files = append(files, migrationFile{Version: m[1], Name: m[2], File: name})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}
