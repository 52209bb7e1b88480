package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/monocle-dev/workspace/db"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// billingRow is the flattened billing_records row. Payment methods live in a JSON column.
type billingRow struct {
	ID             string `gorm:"primaryKey"`
	CompanyName    string
	CompanyEmail   string
	CompanyPhone   string
	Country        string
	City           string
	Address        string
	PostalCode     string
	PaymentMethods datatypes.JSON
	CreatedAt      time.Time
}

func (billingRow) TableName() string { return "billing_records" }

func newBillingRow(r models.BillingRecord) (billingRow, error) {
	methods := r.PaymentMethods
	if methods == nil {
		methods = []models.PaymentMethod{}
	}
	raw, err := json.Marshal(methods)
	if err != nil {
		return billingRow{}, fmt.Errorf("encode payment methods: %w", err)
	}

	return billingRow{
		ID:             r.ID,
		CompanyName:    r.CompanyProfile.CompanyName,
		CompanyEmail:   r.CompanyProfile.Email,
		CompanyPhone:   r.CompanyProfile.Phone,
		Country:        r.BillingAddress.Country,
		City:           r.BillingAddress.City,
		Address:        r.BillingAddress.Address,
		PostalCode:     r.BillingAddress.PostalCode,
		PaymentMethods: datatypes.JSON(raw),
		CreatedAt:      r.CreatedAt,
	}, nil
}

func (row billingRow) record() (models.BillingRecord, error) {
	methods := []models.PaymentMethod{}
	if len(row.PaymentMethods) > 0 {
		if err := json.Unmarshal(row.PaymentMethods, &methods); err != nil {
			return models.BillingRecord{}, fmt.Errorf("decode payment methods of %s: %w", row.ID, err)
		}
	}

	return models.BillingRecord{
		ID: row.ID,
		BillingData: models.BillingData{
			CompanyProfile: models.CompanyProfile{
				CompanyName: row.CompanyName,
				Email:       row.CompanyEmail,
				Phone:       row.CompanyPhone,
			},
			BillingAddress: models.BillingAddress{
				Country:    row.Country,
				City:       row.City,
				Address:    row.Address,
				PostalCode: row.PostalCode,
			},
			PaymentMethods: methods,
		},
		CreatedAt: row.CreatedAt,
	}, nil
}

// SQL is the gorm backed store for the postgres and sqlite drivers.
type SQL struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// OpenSQL connects, migrates and wraps the database.
func OpenSQL(driver, dsn string, log *zap.SugaredLogger) (*SQL, error) {
	gdb, err := db.Open(driver, dsn, log)
	if err != nil {
		return nil, err
	}
	return NewSQL(gdb, log), nil
}

func NewSQL(gdb *gorm.DB, log *zap.SugaredLogger) *SQL {
	return &SQL{db: gdb, log: log}
}

func notFound(err error, what, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, key, types.ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", what, key, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *SQL) Seed(ctx context.Context, data Dataset) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Activity{}, &models.Member{}, &models.Project{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}

		projects := make([]models.Project, len(data.Projects))
		for i, p := range data.Projects {
			p.Position = i
			projects[i] = p
		}
		if len(projects) > 0 {
			if err := tx.Omit("Members", "Activities").CreateInBatches(projects, 100).Error; err != nil {
				return fmt.Errorf("insert projects: %w", err)
			}
		}

		for projectID, list := range data.Members {
			members := make([]models.Member, len(list))
			for i, m := range list {
				m.ProjectID = projectID
				m.Position = i
				members[i] = m
			}
			if len(members) > 0 {
				if err := tx.CreateInBatches(members, 100).Error; err != nil {
					return fmt.Errorf("insert members of %s: %w", projectID, err)
				}
			}
		}

		for projectID, list := range data.Activities {
			activities := make([]models.Activity, len(list))
			for i, a := range list {
				a.ProjectID = projectID
				activities[i] = a
			}
			if len(activities) > 0 {
				if err := tx.CreateInBatches(activities, 100).Error; err != nil {
					return fmt.Errorf("insert activities of %s: %w", projectID, err)
				}
			}
		}
		return nil
	})
}

func (s *SQL) ListProjects(ctx context.Context, filter ProjectFilter) ([]models.Project, int, error) {
	filter = filter.Normalize()

	query := s.db.WithContext(ctx).Model(&models.Project{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(filter.Search)) + "%"
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	projects := []models.Project{}
	err := query.Order("position ASC").Order("id ASC").
		Offset(filter.Offset()).
		Limit(filter.Limit).
		Find(&projects).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	return projects, int(total), nil
}

func (s *SQL) GetProject(ctx context.Context, id string) (models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&project).Error; err != nil {
		return models.Project{}, notFound(err, "project", id)
	}
	return project, nil
}

func (s *SQL) ProjectMembers(ctx context.Context, projectID string) ([]models.Member, error) {
	members := []models.Member{}
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", projectID, err)
	}
	return members, nil
}

func (s *SQL) ProjectActivities(ctx context.Context, projectID string) ([]models.Activity, error) {
	activities := []models.Activity{}
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("occurred_at DESC").
		Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("list activities of %s: %w", projectID, err)
	}
	return activities, nil
}

func (s *SQL) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch, now time.Time) (models.Project, error) {
	if err := validatePatch(patch); err != nil {
		return models.Project{}, err
	}

	var updated models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Where("id = ?", id).First(&project).Error; err != nil {
			return notFound(err, "project", id)
		}

		updated = patch.Apply(project, now)
		return tx.Model(&project).Updates(map[string]interface{}{
			"name":        updated.Name,
			"description": updated.Description,
			"status":      updated.Status,
			"updated_at":  updated.UpdatedAt,
		}).Error
	})
	return updated, err
}

func (s *SQL) ListBilling(ctx context.Context) ([]models.BillingRecord, error) {
	var rows []billingRow
	if err := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list billing: %w", err)
	}

	records := make([]models.BillingRecord, 0, len(rows))
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *SQL) SaveBilling(ctx context.Context, record models.BillingRecord) (models.BillingRecord, error) {
	row, err := newBillingRow(record)
	if err != nil {
		return models.BillingRecord{}, err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.BillingRecord{}, fmt.Errorf("save billing: %w", err)
	}
	return record, nil
}

func (s *SQL) RemovePaymentMethod(ctx context.Context, paymentID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []billingRow
		if err := tx.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
			return fmt.Errorf("list billing: %w", err)
		}

		records := make([]models.BillingRecord, len(rows))
		for i, row := range rows {
			r, err := row.record()
			if err != nil {
				return err
			}
			records[i] = r
		}

		idx, ok := removePayment(records, paymentID)
		if !ok {
			return fmt.Errorf("payment method %s: %w", paymentID, types.ErrNotFound)
		}

		row, err := newBillingRow(records[idx])
		if err != nil {
			return err
		}
		return tx.Model(&billingRow{}).
			Where("id = ?", row.ID).
			Update("payment_methods", row.PaymentMethods).Error
	})
}

func (s *SQL) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user.Email = normalizeEmail(user.Email)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("email = ?", user.Email).First(&existing).Error
		if err == nil {
			return fmt.Errorf("email %s: %w", user.Email, types.ErrConflict)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check existing user: %w", err)
		}
		return tx.Create(&user).Error
	})
	return user, err
}

func (s *SQL) UserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return models.User{}, notFound(err, "user", id)
	}
	return user, nil
}

func (s *SQL) UserByEmail(ctx context.Context, email string) (models.User, error) {
	email = normalizeEmail(email)
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return models.User{}, notFound(err, "user", email)
	}
	return user, nil
}

func (s *SQL) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	user.Email = normalizeEmail(user.Email)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("email = ? AND id <> ?", user.Email, user.ID).First(&existing).Error
		if err == nil {
			return fmt.Errorf("email %s: %w", user.Email, types.ErrConflict)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check existing email: %w", err)
		}

		res := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"name":          user.Name,
			"email":         user.Email,
			"password_hash": user.PasswordHash,
			"updated_at":    user.UpdatedAt,
		})
		if res.Error != nil {
			return fmt.Errorf("update user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %s: %w", user.ID, types.ErrNotFound)
		}
		return nil
	})
	return user, err
}

func (s *SQL) DeleteUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, types.ErrNotFound)
	}
	return nil
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
