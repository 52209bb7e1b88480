package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)

func testDataset() Dataset {
	statuses := []models.ProjectStatus{models.StatusActive, models.StatusPaused, models.StatusArchived}
	data := Dataset{
		Members:    map[string][]models.Member{},
		Activities: map[string][]models.Activity{},
	}
	for i := 1; i <= 15; i++ {
		name := fmt.Sprintf("Project %02d", i)
		if i == 3 {
			name = "Alpha Launch"
		}
		if i == 7 {
			name = "alphabet soup"
		}
		data.Projects = append(data.Projects, models.Project{
			ID:          fmt.Sprint(i),
			Name:        name,
			Description: "Description " + fmt.Sprint(i),
			Status:      statuses[i%3],
			Owner:       "Owner",
			CreatedAt:   baseTime,
			UpdatedAt:   baseTime,
		})
	}
	data.Members["1"] = []models.Member{
		{ID: "m1", Name: "Ada Lovelace", Email: "ada@example.com", Role: "Lead"},
		{ID: "m2", Name: "Alan Turing", Email: "alan@example.com", Role: "Engineer"},
	}
	data.Activities["1"] = []models.Activity{
		{ID: "a2", Type: "status", Description: "Changed status", User: "Ada", Timestamp: baseTime.Add(time.Hour)},
		{ID: "a1", Type: "create", Description: "Created project", User: "Ada", Timestamp: baseTime},
	}
	return data
}

type storeFactory func(t *testing.T) Store

func factories() map[string]storeFactory {
	log := zap.NewNop().Sugar()
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store {
			return NewMemory()
		},
		"json": func(t *testing.T) Store {
			s, err := NewJSONFile(t.TempDir(), log)
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQL(DriverSQLite, filepath.Join(t.TempDir(), "workspace.db"), log)
			require.NoError(t, err)
			return s
		},
	}
}

// forEachStore runs fn against every backend seeded with testDataset.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			t.Cleanup(func() { _ = s.Close() })
			require.NoError(t, s.Seed(context.Background(), testDataset()))
			fn(t, s)
		})
	}
}

func TestListProjectsPagination(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		page, total, err := s.ListProjects(ctx, ProjectFilter{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 15, total)
		require.Len(t, page, 10)
		assert.Equal(t, "1", page[0].ID, "seed order is kept")

		page, total, err = s.ListProjects(ctx, ProjectFilter{Page: 2, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 15, total)
		require.Len(t, page, 5)
		assert.Equal(t, "11", page[0].ID)
		assert.Equal(t, 2, types.NewPagination(2, 10, total).TotalPages)

		page, _, err = s.ListProjects(ctx, ProjectFilter{Page: 9, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, page)
	})
}

func TestListProjectsFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		page, total, err := s.ListProjects(ctx, ProjectFilter{Search: "ALPHA"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, page, 2)
		assert.Equal(t, "Alpha Launch", page[0].Name)
		assert.Equal(t, "alphabet soup", page[1].Name)

		_, total, err = s.ListProjects(ctx, ProjectFilter{Status: "Active"})
		require.NoError(t, err)
		assert.Equal(t, 5, total)

		_, total, err = s.ListProjects(ctx, ProjectFilter{Status: "all"})
		require.NoError(t, err)
		assert.Equal(t, 15, total)

		page, total, err = s.ListProjects(ctx, ProjectFilter{Status: "Paused", Search: "alpha"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, page, 1)
		assert.Equal(t, "7", page[0].ID)

		_, total, err = s.ListProjects(ctx, ProjectFilter{Search: "100%"})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestProjectDetailParts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		p, err := s.GetProject(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "Project 01", p.Name)

		members, err := s.ProjectMembers(ctx, "1")
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, "Ada Lovelace", members[0].Name)

		activities, err := s.ProjectActivities(ctx, "1")
		require.NoError(t, err)
		require.Len(t, activities, 2)
		assert.Equal(t, "a2", activities[0].ID)

		members, err = s.ProjectMembers(ctx, "2")
		require.NoError(t, err)
		assert.NotNil(t, members)
		assert.Empty(t, members)

		_, err = s.GetProject(ctx, "404")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestUpdateProject(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := baseTime.Add(48 * time.Hour)
		status := models.StatusArchived

		updated, err := s.UpdateProject(ctx, "1", models.ProjectPatch{Status: &status}, now)
		require.NoError(t, err)
		assert.Equal(t, models.StatusArchived, updated.Status)
		assert.True(t, updated.UpdatedAt.Equal(now))
		assert.Equal(t, "Project 01", updated.Name)

		reloaded, err := s.GetProject(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusArchived, reloaded.Status)
		assert.True(t, reloaded.UpdatedAt.Equal(now))

		bad := models.ProjectStatus("Deleted")
		_, err = s.UpdateProject(ctx, "1", models.ProjectPatch{Status: &bad}, now)
		assert.ErrorIs(t, err, types.ErrInvalidArgument)

		_, err = s.UpdateProject(ctx, "404", models.ProjectPatch{Status: &status}, now)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func billingRecord(id string, methods ...models.PaymentMethod) models.BillingRecord {
	return models.BillingRecord{
		ID: id,
		BillingData: models.BillingData{
			CompanyProfile: models.CompanyProfile{CompanyName: "Acme", Email: "a@acme.test", Phone: "(555) 123-4567"},
			BillingAddress: models.BillingAddress{Country: "Canada", City: "Toronto", Address: "1 King St", PostalCode: "12345"},
			PaymentMethods: methods,
		},
		CreatedAt: baseTime,
	}
}

func TestBillingRecords(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		records, err := s.ListBilling(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)

		_, err = s.SaveBilling(ctx, billingRecord("r1",
			models.PaymentMethod{ID: "100", CardNumber: "4242 4242 4242 4242", CardHolder: "JANE", IsDefault: true},
			models.PaymentMethod{ID: "101", CardNumber: "5555 5555 5555 4444", CardHolder: "JANE"},
		))
		require.NoError(t, err)
		_, err = s.SaveBilling(ctx, billingRecord("r2"))
		require.NoError(t, err)

		records, err = s.ListBilling(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Acme", records[0].CompanyProfile.CompanyName)
		require.Len(t, records[0].PaymentMethods, 2)

		require.NoError(t, s.RemovePaymentMethod(ctx, "100"))
		assert.ErrorIs(t, s.RemovePaymentMethod(ctx, "100"), types.ErrNotFound)

		records, err = s.ListBilling(ctx)
		require.NoError(t, err)
		require.Len(t, records[0].PaymentMethods, 1)
		assert.Equal(t, "101", records[0].PaymentMethods[0].ID)
	})
}

func TestUsers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		u, err := s.CreateUser(ctx, models.User{ID: "u1", Name: "Jane", Email: " Jane@Example.COM ", PasswordHash: "x", CreatedAt: baseTime, UpdatedAt: baseTime})
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", u.Email)

		_, err = s.CreateUser(ctx, models.User{ID: "u2", Name: "Other", Email: "jane@example.com", PasswordHash: "x", CreatedAt: baseTime, UpdatedAt: baseTime})
		assert.ErrorIs(t, err, types.ErrConflict)

		got, err := s.UserByEmail(ctx, "JANE@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)

		got.Name = "Jane Doe"
		_, err = s.UpdateUser(ctx, got)
		require.NoError(t, err)

		got, err = s.UserByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", got.Name)

		require.NoError(t, s.DeleteUser(ctx, "u1"))
		_, err = s.UserByID(ctx, "u1")
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.ErrorIs(t, s.DeleteUser(ctx, "u1"), types.ErrNotFound)
	})
}

func TestJSONFileWritesAreVisibleToNewInstances(t *testing.T) {
	dir := t.TempDir()
	log := zap.NewNop().Sugar()
	ctx := context.Background()

	first, err := NewJSONFile(dir, log)
	require.NoError(t, err)
	require.NoError(t, first.Seed(ctx, testDataset()))
	status := models.StatusPaused
	_, err = first.UpdateProject(ctx, "3", models.ProjectPatch{Status: &status}, baseTime)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewJSONFile(dir, log)
	require.NoError(t, err)
	defer second.Close()

	p, err := second.GetProject(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, p.Status)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp files are cleaned up")
	}
}

func TestSeedIfEmpty(t *testing.T) {
	seedDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(seedDir, "projects.json"),
		[]byte(`[{"id":"1","name":"Seeded","status":"Active","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(seedDir, "members.json"),
		[]byte(`{"1":[{"id":"m1","name":"Ada","email":"ada@example.com","role":"Lead"}]}`), 0o644))

	ctx := context.Background()
	log := zap.NewNop().Sugar()
	s := NewMemory()

	seeded, err := SeedIfEmpty(ctx, s, seedDir, log)
	require.NoError(t, err)
	assert.True(t, seeded)

	members, err := s.ProjectMembers(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, members, 1)

	seeded, err = SeedIfEmpty(ctx, s, seedDir, log)
	require.NoError(t, err)
	assert.False(t, seeded, "existing data is left alone")
}

func TestNormalizeFilter(t *testing.T) {
	f := ProjectFilter{Page: 0, Limit: 500, Status: "all", Search: "  x "}.Normalize()
	assert.Equal(t, ProjectFilter{Page: 1, Limit: 100, Search: "x"}, f)
	assert.Equal(t, 10, ProjectFilter{}.Normalize().Limit)
}
