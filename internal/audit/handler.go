package audit

import (
	"encoding/json"
	"time"

	"employee-directory/internal/models"

	"github.com/gofiber/fiber/v2"
)

type LogResponse struct {
	ID         uint               `json:"id"`
	CreatedAt  string             `json:"created_at"`
	UserID     uint               `json:"user_id"`
	EntityType string             `json:"entity_type"`
	EntityID   uint               `json:"entity_id"`
	Action     models.AuditAction `json:"action"`
	Before     json.RawMessage    `json:"before"`
	After      json.RawMessage    `json:"after"`
}

func toResponse(l models.AuditLog) LogResponse {
	return LogResponse{
		ID:         l.ID,
		CreatedAt:  l.CreatedAt.UTC().Format(time.RFC3339),
		UserID:     l.UserID,
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		Action:     l.Action,
		Before:     rawJSON(l.BeforeData),
		After:      rawJSON(l.AfterData),
	}
}

func rawJSON(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}

// queryID reads an optional positive integer query parameter.
func queryID(c *fiber.Ctx, key string) (int, error) {
	if c.Query(key) == "" {
		return 0, nil
	}
	n := c.QueryInt(key, -1)
	if n <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+key)
	}
	return n, nil
}

// GET /api/audit-logs?entity_type=employee&entity_id=1&user_id=2&limit=50
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entityID, err := queryID(c, "entity_id")
		if err != nil {
			return err
		}
		userID, err := queryID(c, "user_id")
		if err != nil {
			return err
		}
		limit, err := queryID(c, "limit")
		if err != nil {
			return err
		}

		logs, err := svc.List(c.UserContext(), Filter{
			EntityType: c.Query("entity_type"),
			EntityID:   uint(entityID),
			UserID:     uint(userID),
			Limit:      limit,
		})
		if err != nil {
			return err
		}

		resp := make([]LogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, toResponse(l))
		}
		return c.JSON(resp)
	}
}
