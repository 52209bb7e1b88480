package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
	"go.uber.org/zap"
)

const (
	projectsFile   = "projects.json"
	membersFile    = "members.json"
	activitiesFile = "activities.json"
	billingFile    = "billing.json"
	usersFile      = "users.json"
	lockFile       = ".workspace.lock"

	lockRetryDelay = 25 * time.Millisecond
)

// JSONFile stores each collection in its own JSON document under dir. Every operation
// re-reads the files it needs, so edits made while the server runs are picked up.
// Writers hold an in-process mutex and an exclusive file lock and replace files by rename.
type JSONFile struct {
	dir  string
	mu   sync.Mutex
	lock *flock.Flock
	log  *zap.SugaredLogger
}

func NewJSONFile(dir string, log *zap.SugaredLogger) (*JSONFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &JSONFile{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFile)),
		log:  log,
	}, nil
}

func (s *JSONFile) Dir() string { return s.dir }

func (s *JSONFile) read(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire read lock: %w", err)
	}
	if !locked {
		return errors.New("acquire read lock: data directory is busy")
	}
	defer s.unlock()

	return fn()
}

func (s *JSONFile) write(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	if !locked {
		return errors.New("acquire write lock: data directory is busy")
	}
	defer s.unlock()

	return fn()
}

func (s *JSONFile) unlock() {
	if err := s.lock.Unlock(); err != nil {
		s.log.Warnw("failed to release data lock", "dir", s.dir, "error", err)
	}
}

// load decodes name into v. A missing file leaves v untouched.
func (s *JSONFile) load(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// save writes v to a temp file in dir and renames it over name.
func (s *JSONFile) save(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (s *JSONFile) Seed(ctx context.Context, data Dataset) error {
	return s.write(ctx, func() error {
		projects := data.Projects
		if projects == nil {
			projects = []models.Project{}
		}
		members := data.Members
		if members == nil {
			members = map[string][]models.Member{}
		}
		activities := data.Activities
		if activities == nil {
			activities = map[string][]models.Activity{}
		}

		if err := s.save(projectsFile, projects); err != nil {
			return err
		}
		if err := s.save(membersFile, members); err != nil {
			return err
		}
		return s.save(activitiesFile, activities)
	})
}

func (s *JSONFile) ListProjects(ctx context.Context, filter ProjectFilter) ([]models.Project, int, error) {
	var (
		page  []models.Project
		total int
	)
	err := s.read(ctx, func() error {
		var all []models.Project
		if err := s.load(projectsFile, &all); err != nil {
			return err
		}
		page, total = filterProjects(all, filter)
		return nil
	})
	return page, total, err
}

func (s *JSONFile) GetProject(ctx context.Context, id string) (models.Project, error) {
	var project models.Project
	err := s.read(ctx, func() error {
		var all []models.Project
		if err := s.load(projectsFile, &all); err != nil {
			return err
		}
		for _, p := range all {
			if p.ID == id {
				project = p
				return nil
			}
		}
		return fmt.Errorf("project %s: %w", id, types.ErrNotFound)
	})
	return project, err
}

func (s *JSONFile) ProjectMembers(ctx context.Context, projectID string) ([]models.Member, error) {
	members := []models.Member{}
	err := s.read(ctx, func() error {
		byProject := map[string][]models.Member{}
		if err := s.load(membersFile, &byProject); err != nil {
			return err
		}
		if list, ok := byProject[projectID]; ok {
			members = list
		}
		return nil
	})
	return members, err
}

func (s *JSONFile) ProjectActivities(ctx context.Context, projectID string) ([]models.Activity, error) {
	activities := []models.Activity{}
	err := s.read(ctx, func() error {
		byProject := map[string][]models.Activity{}
		if err := s.load(activitiesFile, &byProject); err != nil {
			return err
		}
		if list, ok := byProject[projectID]; ok {
			activities = list
		}
		return nil
	})
	return activities, err
}

func (s *JSONFile) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch, now time.Time) (models.Project, error) {
	if err := validatePatch(patch); err != nil {
		return models.Project{}, err
	}

	var updated models.Project
	err := s.write(ctx, func() error {
		var all []models.Project
		if err := s.load(projectsFile, &all); err != nil {
			return err
		}
		for i, p := range all {
			if p.ID != id {
				continue
			}
			all[i] = patch.Apply(p, now)
			updated = all[i]
			return s.save(projectsFile, all)
		}
		return fmt.Errorf("project %s: %w", id, types.ErrNotFound)
	})
	return updated, err
}

func (s *JSONFile) ListBilling(ctx context.Context) ([]models.BillingRecord, error) {
	records := []models.BillingRecord{}
	err := s.read(ctx, func() error {
		return s.load(billingFile, &records)
	})
	return records, err
}

func (s *JSONFile) SaveBilling(ctx context.Context, record models.BillingRecord) (models.BillingRecord, error) {
	err := s.write(ctx, func() error {
		var records []models.BillingRecord
		if err := s.load(billingFile, &records); err != nil {
			return err
		}
		records = append(records, record)
		return s.save(billingFile, records)
	})
	return record, err
}

func (s *JSONFile) RemovePaymentMethod(ctx context.Context, paymentID string) error {
	return s.write(ctx, func() error {
		var records []models.BillingRecord
		if err := s.load(billingFile, &records); err != nil {
			return err
		}
		if _, ok := removePayment(records, paymentID); !ok {
			return fmt.Errorf("payment method %s: %w", paymentID, types.ErrNotFound)
		}
		return s.save(billingFile, records)
	})
}

func (s *JSONFile) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user.Email = normalizeEmail(user.Email)
	err := s.write(ctx, func() error {
		var users []models.User
		if err := s.load(usersFile, &users); err != nil {
			return err
		}
		for _, u := range users {
			if u.Email == user.Email {
				return fmt.Errorf("email %s: %w", user.Email, types.ErrConflict)
			}
		}
		return s.save(usersFile, append(users, user))
	})
	return user, err
}

func (s *JSONFile) findUser(ctx context.Context, match func(models.User) bool, key string) (models.User, error) {
	var found models.User
	err := s.read(ctx, func() error {
		var users []models.User
		if err := s.load(usersFile, &users); err != nil {
			return err
		}
		for _, u := range users {
			if match(u) {
				found = u
				return nil
			}
		}
		return fmt.Errorf("user %s: %w", key, types.ErrNotFound)
	})
	return found, err
}

func (s *JSONFile) UserByID(ctx context.Context, id string) (models.User, error) {
	return s.findUser(ctx, func(u models.User) bool { return u.ID == id }, id)
}

func (s *JSONFile) UserByEmail(ctx context.Context, email string) (models.User, error) {
	email = normalizeEmail(email)
	return s.findUser(ctx, func(u models.User) bool { return u.Email == email }, email)
}

func (s *JSONFile) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	user.Email = normalizeEmail(user.Email)
	err := s.write(ctx, func() error {
		var users []models.User
		if err := s.load(usersFile, &users); err != nil {
			return err
		}
		idx := -1
		for i, u := range users {
			if u.ID == user.ID {
				idx = i
			} else if u.Email == user.Email {
				return fmt.Errorf("email %s: %w", user.Email, types.ErrConflict)
			}
		}
		if idx < 0 {
			return fmt.Errorf("user %s: %w", user.ID, types.ErrNotFound)
		}
		users[idx] = user
		return s.save(usersFile, users)
	})
	return user, err
}

func (s *JSONFile) DeleteUser(ctx context.Context, id string) error {
	return s.write(ctx, func() error {
		var users []models.User
		if err := s.load(usersFile, &users); err != nil {
			return err
		}
		for i, u := range users {
			if u.ID == id {
				return s.save(usersFile, append(users[:i:i], users[i+1:]...))
			}
		}
		return fmt.Errorf("user %s: %w", id, types.ErrNotFound)
	})
}

func (s *JSONFile) Close() error {
	return s.lock.Close()
}
