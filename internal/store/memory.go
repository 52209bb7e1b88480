package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
)

// Memory keeps everything in process. It backs tests and the "memory" driver.
type Memory struct {
	mu         sync.RWMutex
	projects   []models.Project
	members    map[string][]models.Member
	activities map[string][]models.Activity
	billing    []models.BillingRecord
	users      []models.User
}

func NewMemory() *Memory {
	return &Memory{
		members:    map[string][]models.Member{},
		activities: map[string][]models.Activity{},
	}
}

func (m *Memory) Seed(_ context.Context, data Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.projects = append([]models.Project(nil), data.Projects...)
	m.members = map[string][]models.Member{}
	for id, list := range data.Members {
		m.members[id] = append([]models.Member(nil), list...)
	}
	m.activities = map[string][]models.Activity{}
	for id, list := range data.Activities {
		m.activities[id] = append([]models.Activity(nil), list...)
	}
	return nil
}

func (m *Memory) ListProjects(_ context.Context, filter ProjectFilter) ([]models.Project, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	page, total := filterProjects(m.projects, filter)
	return append([]models.Project{}, page...), total, nil
}

func (m *Memory) GetProject(_ context.Context, id string) (models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Project{}, fmt.Errorf("project %s: %w", id, types.ErrNotFound)
}

func (m *Memory) ProjectMembers(_ context.Context, projectID string) ([]models.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Member{}, m.members[projectID]...), nil
}

func (m *Memory) ProjectActivities(_ context.Context, projectID string) ([]models.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Activity{}, m.activities[projectID]...), nil
}

func (m *Memory) UpdateProject(_ context.Context, id string, patch models.ProjectPatch, now time.Time) (models.Project, error) {
	if err := validatePatch(patch); err != nil {
		return models.Project{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.projects {
		if p.ID == id {
			m.projects[i] = patch.Apply(p, now)
			return m.projects[i], nil
		}
	}
	return models.Project{}, fmt.Errorf("project %s: %w", id, types.ErrNotFound)
}

func (m *Memory) ListBilling(_ context.Context) ([]models.BillingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.BillingRecord, len(m.billing))
	for i, r := range m.billing {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

func (m *Memory) SaveBilling(_ context.Context, record models.BillingRecord) (models.BillingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.billing = append(m.billing, cloneRecord(record))
	return record, nil
}

func (m *Memory) RemovePaymentMethod(_ context.Context, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := removePayment(m.billing, paymentID); !ok {
		return fmt.Errorf("payment method %s: %w", paymentID, types.ErrNotFound)
	}
	return nil
}

func (m *Memory) CreateUser(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user.Email = normalizeEmail(user.Email)
	for _, u := range m.users {
		if u.Email == user.Email {
			return models.User{}, fmt.Errorf("email %s: %w", user.Email, types.ErrConflict)
		}
	}
	m.users = append(m.users, user)
	return user, nil
}

func (m *Memory) UserByID(_ context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %s: %w", id, types.ErrNotFound)
}

func (m *Memory) UserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = normalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %s: %w", email, types.ErrNotFound)
}

func (m *Memory) UpdateUser(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user.Email = normalizeEmail(user.Email)
	idx := -1
	for i, u := range m.users {
		if u.ID == user.ID {
			idx = i
		} else if u.Email == user.Email {
			return models.User{}, fmt.Errorf("email %s: %w", user.Email, types.ErrConflict)
		}
	}
	if idx < 0 {
		return models.User{}, fmt.Errorf("user %s: %w", user.ID, types.ErrNotFound)
	}
	m.users[idx] = user
	return user, nil
}

func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, u := range m.users {
		if u.ID == id {
			m.users = append(m.users[:i:i], m.users[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("user %s: %w", id, types.ErrNotFound)
}

func (m *Memory) Close() error { return nil }

func cloneRecord(r models.BillingRecord) models.BillingRecord {
	if r.PaymentMethods != nil {
		r.PaymentMethods = append([]models.PaymentMethod(nil), r.PaymentMethods...)
	}
	return r
}
