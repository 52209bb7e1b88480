package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Options selects and configures a backend.
type Options struct {
	Driver  string
	DataDir string
	DSN     string
	SeedDir string
}

// Open builds the store for opts.Driver.
func Open(opts Options, log *zap.SugaredLogger) (Store, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverJSON:
		return NewJSONFile(opts.DataDir, log)
	case DriverPostgres, DriverSQLite:
		return OpenSQL(opts.Driver, opts.DSN, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

// LoadDataset reads projects.json, members.json and activities.json from dir.
// Members and activities files are optional.
func LoadDataset(dir string) (Dataset, error) {
	var data Dataset

	if err := readJSON(filepath.Join(dir, projectsFile), &data.Projects, true); err != nil {
		return Dataset{}, err
	}
	if err := readJSON(filepath.Join(dir, membersFile), &data.Members, false); err != nil {
		return Dataset{}, err
	}
	if err := readJSON(filepath.Join(dir, activitiesFile), &data.Activities, false); err != nil {
		return Dataset{}, err
	}
	return data, nil
}

func readJSON(path string, v interface{}, required bool) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// SeedIfEmpty loads the dataset in dir into s when s has no projects yet.
// It reports whether seeding happened.
func SeedIfEmpty(ctx context.Context, s Store, dir string, log *zap.SugaredLogger) (bool, error) {
	if dir == "" {
		return false, nil
	}

	_, total, err := s.ListProjects(ctx, ProjectFilter{Limit: 1})
	if err != nil {
		return false, fmt.Errorf("check existing projects: %w", err)
	}
	if total > 0 {
		return false, nil
	}

	data, err := LoadDataset(dir)
	if err != nil {
		return false, err
	}
	if err := s.Seed(ctx, data); err != nil {
		return false, fmt.Errorf("seed store: %w", err)
	}

	log.Infow("seeded store", "dir", dir, "projects", len(data.Projects))
	return true, nil
}
