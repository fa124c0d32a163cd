package directory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"employee-directory/internal/audit"
	"employee-directory/internal/auth"
	"employee-directory/internal/models"

	"github.com/gofiber/fiber/v2"
)

type EmployeeResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	CreatedBy  uint   `json:"created_by"`
	CreatedAt  string `json:"created_at"`
}

type CreateEmployeeRequest struct {
	Name       string `json:"name"`
	Department string `json:"department"`
}

type UpdateEmployeeRequest struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
}

func toResponse(e models.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:         e.ID,
		Name:       e.Name,
		Department: e.Department,
		CreatedBy:  e.CreatedBy,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// -------------------------
// helpers
// -------------------------

// parseBody leaves out untouched for an empty body.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return nil
}

// employeeID reports a non-numeric or non-positive id as not found.
func employeeID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusNotFound, "Employee not found")
	}
	return uint(id), nil
}

// actorContext tags the request context with the authenticated user so the
// audit trail can attribute changes.
func actorContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if id, ok := auth.UserID(c); ok {
		ctx = audit.WithActor(ctx, id)
	}
	return ctx
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Employee not found")
	case errors.Is(err, ErrMissingFields):
		return fiber.NewError(fiber.StatusBadRequest, "Missing required fields: name, department")
	case errors.Is(err, ErrNothingToUpdate):
		return fiber.NewError(fiber.StatusBadRequest, "Nothing to update")
	default:
		return err
	}
}

// -------------------------
// handlers
// -------------------------

// GET /api/employees?q=
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Query("q")
		if q == "" {
			q = c.Query("search")
		}

		employees, err := svc.List(c.UserContext(), q)
		if err != nil {
			return err
		}

		resp := make([]EmployeeResponse, 0, len(employees))
		for _, e := range employees {
			resp = append(resp, toResponse(e))
		}
		return c.JSON(resp)
	}
}

// POST /api/employees
func CreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := auth.UserID(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing or invalid token")
		}

		var body CreateEmployeeRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		emp, err := svc.Create(actorContext(c), userID, CreateInput{
			Name:       body.Name,
			Department: body.Department,
		})
		if err != nil {
			return mapError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(*emp))
	}
}

// PUT /api/employees/:id
func UpdateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := employeeID(c)
		if err != nil {
			return err
		}

		var body UpdateEmployeeRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		emp, err := svc.Update(actorContext(c), id, UpdateInput{
			Name:       body.Name,
			Department: body.Department,
		})
		if err != nil {
			return mapError(err)
		}
		return c.JSON(toResponse(*emp))
	}
}

// DELETE /api/employees/:id
func DeleteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := employeeID(c)
		if err != nil {
			return err
		}

		if err := svc.Delete(actorContext(c), id); err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{"msg": "deleted"})
	}
}

// GET /api/employees/export?q=
func ExportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Query("q")
		if q == "" {
			q = c.Query("search")
		}

		employees, err := svc.List(c.UserContext(), q)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := WriteWorkbook(&buf, employees); err != nil {
			return err
		}

		c.Attachment(exportFilename(time.Now()))
		c.Set(fiber.HeaderContentType, XLSXContentType)
		return c.Send(buf.Bytes())
	}
}

// POST /api/employees/import (multipart, field "file")
func ImportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := auth.UserID(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing or invalid token")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Missing upload field: file")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Only .xlsx files are accepted")
		}

		file, err := fh.Open()
		if err != nil {
			return err
		}
		defer file.Close()

		rows, err := ReadWorkbook(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not read workbook")
		}

		created, err := svc.Import(actorContext(c), userID, rows)
		if err != nil {
			return mapImportError(err)
		}

		resp := make([]EmployeeResponse, 0, len(created))
		for _, e := range created {
			resp = append(resp, toResponse(e))
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"imported":  len(resp),
			"employees": resp,
		})
	}
}

func mapImportError(err error) error {
	var rowErr *RowError
	switch {
	case errors.As(err, &rowErr):
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("Row %d: missing name or department", rowErr.Row))
	case errors.Is(err, ErrEmptyImport):
		return fiber.NewError(fiber.StatusBadRequest, "Workbook has no employee rows")
	case errors.Is(err, ErrTooManyRows):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("At most %d rows can be imported at once", MaxImportRows))
	default:
		return err
	}
}
