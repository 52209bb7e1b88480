// Package store persists projects, billing records and users. Three backends share the
// same filtering and pagination semantics: in-memory, flat JSON files and SQL via gorm.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
)

const (
	DriverMemory   = "memory"
	DriverJSON     = "json"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Drivers lists the accepted storage.driver values.
var Drivers = []string{DriverMemory, DriverJSON, DriverPostgres, DriverSQLite}

// ProjectFilter selects one page of projects.
type ProjectFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// Normalize applies the list endpoint defaults: page 1, limit 10 capped at 100 and
// "all" meaning no status filter.
func (f ProjectFilter) Normalize() ProjectFilter {
	if f.Page < 1 {
		f.Page = types.DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = types.DefaultPageLimit
	}
	if f.Limit > types.MaxPageLimit {
		f.Limit = types.MaxPageLimit
	}
	if f.Status == types.StatusFilterAll {
		f.Status = ""
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f ProjectFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type ProjectStore interface {
	// ListProjects returns the requested page in seed order and the total match count.
	ListProjects(ctx context.Context, filter ProjectFilter) ([]models.Project, int, error)
	GetProject(ctx context.Context, id string) (models.Project, error)
	ProjectMembers(ctx context.Context, projectID string) ([]models.Member, error)
	ProjectActivities(ctx context.Context, projectID string) ([]models.Activity, error)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch, now time.Time) (models.Project, error)
}

type BillingStore interface {
	ListBilling(ctx context.Context) ([]models.BillingRecord, error)
	SaveBilling(ctx context.Context, record models.BillingRecord) (models.BillingRecord, error)
	// RemovePaymentMethod deletes the payment method from whichever record holds it.
	RemovePaymentMethod(ctx context.Context, paymentID string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateUser(ctx context.Context, user models.User) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type Store interface {
	ProjectStore
	BillingStore
	UserStore

	// Seed replaces projects, members and activities with the dataset.
	Seed(ctx context.Context, data Dataset) error
	Close() error
}

// Dataset is the seedable project data. Members and activities are keyed by project id.
type Dataset struct {
	Projects   []models.Project             `json:"projects"`
	Members    map[string][]models.Member   `json:"members"`
	Activities map[string][]models.Activity `json:"activities"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func matchProject(p models.Project, f ProjectFilter) bool {
	if f.Status != "" && string(p.Status) != f.Status {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// filterProjects applies the filter to projects already in seed order.
func filterProjects(all []models.Project, f ProjectFilter) ([]models.Project, int) {
	f = f.Normalize()

	matched := make([]models.Project, 0, len(all))
	for _, p := range all {
		if matchProject(p, f) {
			matched = append(matched, p)
		}
	}

	total := len(matched)
	start := f.Offset()
	if start >= total {
		return []models.Project{}, total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total
}

func validatePatch(patch models.ProjectPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return fmt.Errorf("%w: status %q", types.ErrInvalidArgument, *patch.Status)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", types.ErrInvalidArgument)
	}
	return nil
}

// removePayment drops the payment method with id from the first record holding it.
func removePayment(records []models.BillingRecord, paymentID string) (int, bool) {
	for i := range records {
		methods := records[i].PaymentMethods
		for j, pm := range methods {
			if pm.ID != paymentID {
				continue
			}
			records[i].PaymentMethods = append(methods[:j:j], methods[j+1:]...)
			return i, true
		}
	}
	return -1, false
}
