// Package directory stores employee records and answers searches over them.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"employee-directory/internal/audit"
	"employee-directory/internal/models"

	"gorm.io/gorm"
)

type CreateInput struct {
	Name       string
	Department string

	// spreadsheet row the input was read from, 0 otherwise
	Row int
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name       *string
	Department *string
}

const entityEmployee = "employee"

// Service owns the employees table. Every change is recorded in the audit
// trail within the same transaction; the actor is taken from audit.WithActor.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns every employee ordered by id. A non-empty query keeps only rows
// whose name or department contains it, ignoring case. The query is matched
// as given, so " " finds names with a space in them.
func (s *Service) List(ctx context.Context, query string) ([]models.Employee, error) {
	tx := s.db.WithContext(ctx).Model(&models.Employee{})

	if query != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
		tx = tx.Where(
			`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(department) LIKE ? ESCAPE '\'`,
			pattern, pattern,
		)
	}

	var employees []models.Employee
	if err := tx.Order("id ASC").Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("directory: list employees: %w", err)
	}
	return employees, nil
}

func (s *Service) Create(ctx context.Context, createdBy uint, in CreateInput) (*models.Employee, error) {
	emp, err := newEmployee(createdBy, in)
	if err != nil {
		return nil, err
	}

	ctx = withCreator(ctx, createdBy)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insert(ctx, tx, emp)
	})
	if err != nil {
		return nil, err
	}
	return emp, nil
}

// Import creates every row or none of them. Rows are validated before the
// first insert.
func (s *Service) Import(ctx context.Context, createdBy uint, rows []CreateInput) ([]models.Employee, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyImport
	}
	if len(rows) > MaxImportRows {
		return nil, fmt.Errorf("%w: %d rows, limit is %d", ErrTooManyRows, len(rows), MaxImportRows)
	}

	employees := make([]*models.Employee, 0, len(rows))
	for i, in := range rows {
		emp, err := newEmployee(createdBy, in)
		if err != nil {
			return nil, &RowError{Row: in.Row, Index: i, Err: err}
		}
		employees = append(employees, emp)
	}

	ctx = withCreator(ctx, createdBy)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, emp := range employees {
			if err := insert(ctx, tx, emp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.Employee, 0, len(employees))
	for _, emp := range employees {
		out = append(out, *emp)
	}
	return out, nil
}

func newEmployee(createdBy uint, in CreateInput) (*models.Employee, error) {
	name := strings.TrimSpace(in.Name)
	dept := strings.TrimSpace(in.Department)
	if name == "" || dept == "" {
		return nil, ErrMissingFields
	}
	return &models.Employee{
		Name:       name,
		Department: dept,
		CreatedBy:  createdBy,
	}, nil
}

// withCreator attributes the change to the creator unless the caller already
// named an actor.
func withCreator(ctx context.Context, createdBy uint) context.Context {
	if _, ok := audit.ActorFrom(ctx); ok {
		return ctx
	}
	return audit.WithActor(ctx, createdBy)
}

func insert(ctx context.Context, tx *gorm.DB, emp *models.Employee) error {
	if err := tx.Create(emp).Error; err != nil {
		return fmt.Errorf("directory: create employee: %w", err)
	}
	return audit.Write(ctx, tx, audit.Entry{
		EntityType: entityEmployee,
		EntityID:   emp.ID,
		Action:     models.AuditActionCreate,
		After:      *emp,
	})
}

// Update merges the present fields into the employee. The existence check runs
// before input validation, so a missing id always reports ErrNotFound.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.Employee, error) {
	emp, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name == nil && in.Department == nil {
		return nil, ErrNothingToUpdate
	}

	before := *emp
	changes := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrMissingFields
		}
		changes["name"] = name
		emp.Name = name
	}
	if in.Department != nil {
		dept := strings.TrimSpace(*in.Department)
		if dept == "" {
			return nil, ErrMissingFields
		}
		changes["department"] = dept
		emp.Department = dept
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Employee{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return fmt.Errorf("directory: update employee %d: %w", id, res.Error)
		}
		// removed concurrently between find and update
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return audit.Write(ctx, tx, audit.Entry{
			EntityType: entityEmployee,
			EntityID:   id,
			Action:     models.AuditActionUpdate,
			Before:     before,
			After:      *emp,
		})
	})
	if err != nil {
		return nil, err
	}
	return emp, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	emp, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Employee{}, id)
		if res.Error != nil {
			return fmt.Errorf("directory: delete employee %d: %w", id, res.Error)
		}
		// removed concurrently between find and delete
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return audit.Write(ctx, tx, audit.Entry{
			EntityType: entityEmployee,
			EntityID:   id,
			Action:     models.AuditActionDelete,
			Before:     *emp,
		})
	})
}

func (s *Service) find(ctx context.Context, id uint) (*models.Employee, error) {
	var emp models.Employee
	err := s.db.WithContext(ctx).First(&emp, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory: find employee %d: %w", id, err)
	}
	return &emp, nil
}
