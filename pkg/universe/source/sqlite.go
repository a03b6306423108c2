package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/perdasilva/depres/pkg/universe"
	"github.com/perdasilva/depres/pkg/version"
)

// InstalledDB records which candidate occupies each (name, slot) on the
// system.
type InstalledDB struct {
	db *sql.DB
}

var _ Source = &InstalledDB{}

// OpenInstalledDB opens (creating if needed) the sqlite database at path.
func OpenInstalledDB(path string) (*InstalledDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	d, err := NewInstalledDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// NewInstalledDB wraps an open database handle and ensures the schema
// exists.
func NewInstalledDB(db *sql.DB) (*InstalledDB, error) {
	d := &InstalledDB{db: db}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *InstalledDB) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS installed (
		name TEXT NOT NULL,
		slot TEXT NOT NULL,
		version TEXT NOT NULL,
		repository TEXT NOT NULL DEFAULT '',
		depend TEXT NOT NULL DEFAULT '',
		grammar TEXT NOT NULL DEFAULT '',
		flags TEXT NOT NULL DEFAULT '',
		install_time DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (name, slot)
	);
	`
	_, err := d.db.Exec(schema)
	return err
}

func (d *InstalledDB) Close() error {
	return d.db.Close()
}

// Record marks c as installed, replacing whatever occupied its slot.
func (d *InstalledDB) Record(ctx context.Context, c *universe.Candidate) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO installed (name, slot, version, repository, depend, grammar, flags) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Slot, c.Version.String(), c.Repository, c.Depend, c.Grammar, encodeFlags(c.Flags))
	if err != nil {
		return fmt.Errorf("recording %s: %w", c.ID(), err)
	}
	return nil
}

// Remove forgets the installed candidate at name and slot.
func (d *InstalledDB) Remove(ctx context.Context, name, slot string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM installed WHERE name = ? AND slot = ?`, name, slot)
	return err
}

// Installed returns the candidate at name and slot, or nil if the slot is
// empty.
func (d *InstalledDB) Installed(ctx context.Context, name, slot string) (*universe.Candidate, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT name, slot, version, repository, depend, grammar, flags FROM installed WHERE name = ? AND slot = ?`,
		name, slot)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// Candidates lists every installed candidate ordered by name and slot.
func (d *InstalledDB) Candidates(ctx context.Context) ([]*universe.Candidate, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name, slot, version, repository, depend, grammar, flags FROM installed ORDER BY name, slot`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*universe.Candidate, 0)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Overlay marks every installed candidate in u.
func (d *InstalledDB) Overlay(ctx context.Context, u *universe.Universe) error {
	installed, err := d.Candidates(ctx)
	if err != nil {
		return err
	}
	for _, c := range installed {
		u.SetInstalled(c)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCandidate(row scanner) (*universe.Candidate, error) {
	var (
		c     universe.Candidate
		v     string
		flags string
	)
	if err := row.Scan(&c.Name, &c.Slot, &v, &c.Repository, &c.Depend, &c.Grammar, &flags); err != nil {
		return nil, err
	}
	spec, err := version.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("installed %s:%s: %w", c.Name, c.Slot, err)
	}
	c.Version = spec
	c.Flags = decodeFlags(flags)
	c.Installed = true
	return &c, nil
}

// flags are stored as "a,-b" in sorted order
func encodeFlags(flags map[string]bool) string {
	parts := make([]string, 0, len(flags))
	for flag, enabled := range flags {
		if enabled {
			parts = append(parts, flag)
		} else {
			parts = append(parts, "-"+flag)
		}
	}
	sort.Slice(parts, func(i, j int) bool {
		return strings.TrimPrefix(parts[i], "-") < strings.TrimPrefix(parts[j], "-")
	})
	return strings.Join(parts, ",")
}

func decodeFlags(s string) map[string]bool {
	if s == "" {
		return nil
	}
	flags := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.HasPrefix(part, "-") {
			flags[part[1:]] = false
		} else {
			flags[part] = true
		}
	}
	return flags
}
