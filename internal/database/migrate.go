package database

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
)

// Migration is one versioned SQL script pair embedded from migrations/.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrationFile = regexp.MustCompile(`^(\d{6})_([a-z0-9_]+)\.(up|down)\.sql$`)

// migrations is the embedded set in version order. A malformed set is a build
// defect, so loading it panics.
var migrations = mustLoadMigrations(migrationFS, "migrations")

func mustLoadMigrations(fsys fs.FS, dir string) []Migration {
	set, err := loadMigrations(fsys, dir)
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return set
}

// loadMigrations reads NNNNNN_name.up.sql / NNNNNN_name.down.sql pairs from
// dir. Every version needs both halves and a single name.
func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := migrationFile.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("migration file %q does not match NNNNNN_name.(up|down).sql", entry.Name())
		}
		version, _ := strconv.Atoi(match[1])
		name, direction := match[2], match[3]

		body, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		} else if m.Name != name {
			return nil, fmt.Errorf("migration %06d has two names: %s and %s", version, m.Name, name)
		}
		if direction == "up" {
			m.UpScript = string(body)
		} else {
			m.DownScript = string(body)
		}
	}

	set := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		switch {
		case m.UpScript == "":
			return nil, fmt.Errorf("migration %s has no up script", m)
		case m.DownScript == "":
			return nil, fmt.Errorf("migration %s has no down script", m)
		}
		set = append(set, *m)
	}
	sort.Slice(set, func(i, j int) bool { return set[i].Version < set[j].Version })
	return set, nil
}

// Migrations returns the embedded migrations in version order.
func Migrations() []Migration {
	return append([]Migration(nil), migrations...)
}

func findMigration(set []Migration, version int) (Migration, bool) {
	for _, m := range set {
		if m.Version == version {
			return m, true
		}
	}
	return Migration{}, false
}
