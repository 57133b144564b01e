package database

import (
	"cmp"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

// Migration is one versioned pair of SQL scripts.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrations []Migration

func init() {
	loaded, err := LoadMigrations(migrationFS, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	migrations = loaded
}

// LoadMigrations reads NNNNNN_name.up.sql / .down.sql pairs from dir, sorted
// by version. Every up script needs its down script.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	ups, err := fs.Glob(fsys, path.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, fmt.Errorf("list migrations in %s: %w", dir, err)
	}

	out := make([]Migration, 0, len(ups))
	for _, upPath := range ups {
		stem := strings.TrimSuffix(path.Base(upPath), ".up.sql")
		digits, name, ok := strings.Cut(stem, "_")
		version, err := strconv.Atoi(digits)
		if !ok || err != nil {
			return nil, fmt.Errorf("migration %q: want NNNNNN_name.up.sql", path.Base(upPath))
		}

		m := Migration{Version: version, Name: name}
		for script, p := range map[*string]string{
			&m.UpScript:   upPath,
			&m.DownScript: path.Join(dir, stem+".down.sql"),
		} {
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", p, err)
			}
			*script = string(data)
		}
		out = append(out, m)
	}

	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("migration version %06d is used twice", out[i].Version)
		}
	}
	return out, nil
}

// GetMigrations returns the embedded migrations in version order.
func GetMigrations() []Migration {
	return migrations
}

// GetMigrationByVersion returns the embedded migration with that version, or nil.
func GetMigrationByVersion(version int) *Migration {
	if i := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == version }); i >= 0 {
		return &migrations[i]
	}
	return nil
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}
