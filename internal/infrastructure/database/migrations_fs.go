package database

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Step filename parsing constants.
const (
	// stepFilenameParts is the number of parts in a step filename.
	// Format: NNNN_description.sql (2 parts when split by "_")
	stepFilenameParts = 2

	// stepExtension is the suffix of step files.
	stepExtension = ".sql"
)

// LoadMigrations reads migrations from fsys.
//
// Each sub-directory of root is a domain; each file in it is one step named
// NNNN_description.sql. Step numbers must run from 1 without gaps and
// determine the step order. Domains are returned sorted by name.
//
//	migrations/
//	  kv/
//	    0001_kv_store.sql
//	    0002_kv_index.sql
func LoadMigrations(fsys fs.FS, root string) ([]*Migration, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", root, err)
	}

	var migrations []*Migration
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		m, err := loadDomain(fsys, path.Join(root, entry.Name()), entry.Name())
		if err != nil {
			return nil, err
		}
		if m != nil {
			migrations = append(migrations, m)
		}
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].domain < migrations[j].domain
	})

	return migrations, nil
}

// stepFile is a parsed step filename.
type stepFile struct {
	number int
	name   string
}

// loadDomain builds the migration for one domain directory. A directory
// without step files yields nil.
func loadDomain(fsys fs.FS, dir, domain string) (*Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading domain %s: %w", domain, err)
	}

	var files []stepFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		number, ok := parseStepFilename(entry.Name())
		if !ok {
			continue
		}
		files = append(files, stepFile{number: number, name: entry.Name()})
	}

	if len(files) == 0 {
		return nil, nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].number < files[j].number
	})

	steps := make([]string, 0, len(files))
	for i, f := range files {
		if f.number != i+1 {
			return nil, &Error{
				Kind:    ErrMigration,
				Op:      "load",
				Message: fmt.Sprintf("domain %q: expected step %d, found %s", domain, i+1, f.name),
			}
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, f.name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.name, err)
		}
		steps = append(steps, string(content))
	}

	return NewMigration(domain, steps), nil
}

// parseStepFilename extracts the step number from NNNN_description.sql.
func parseStepFilename(name string) (int, bool) {
	if !strings.HasSuffix(name, stepExtension) {
		return 0, false
	}

	base := strings.TrimSuffix(name, stepExtension)
	parts := strings.SplitN(base, "_", stepFilenameParts)
	if len(parts) != stepFilenameParts || parts[1] == "" {
		return 0, false
	}

	number, err := strconv.Atoi(parts[0])
	if err != nil || number < 1 {
		return 0, false
	}
	return number, true
}
