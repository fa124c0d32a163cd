package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"employee-directory/internal/database/dbtest"
	"employee-directory/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type snapshot struct {
	Name string `json:"name"`
}

func TestActorRoundTrip(t *testing.T) {
	_, ok := ActorFrom(context.Background())
	assert.False(t, ok)

	id, ok := ActorFrom(WithActor(context.Background(), 7))
	assert.True(t, ok)
	assert.Equal(t, uint(7), id)
}

func TestWrite(t *testing.T) {
	db := dbtest.New(t)
	ctx := WithActor(context.Background(), 3)

	require.NoError(t, Write(ctx, db, Entry{
		EntityType: "employee",
		EntityID:   10,
		Action:     models.AuditActionUpdate,
		Before:     snapshot{Name: "Bob"},
		After:      snapshot{Name: "Robert"},
	}))

	var got models.AuditLog
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, uint(3), got.UserID)
	assert.Equal(t, "employee", got.EntityType)
	assert.Equal(t, uint(10), got.EntityID)
	assert.Equal(t, models.AuditActionUpdate, got.Action)
	assert.JSONEq(t, `{"name":"Bob"}`, got.BeforeData)
	assert.JSONEq(t, `{"name":"Robert"}`, got.AfterData)
}

func TestWrite_NilSnapshotIsNull(t *testing.T) {
	db := dbtest.New(t)

	require.NoError(t, Write(context.Background(), db, Entry{
		EntityType: "employee",
		EntityID:   1,
		Action:     models.AuditActionCreate,
		After:      snapshot{Name: "Bob"},
	}))

	var got models.AuditLog
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, "null", got.BeforeData)
	assert.Zero(t, got.UserID)
}

func TestWrite_RollsBackWithTransaction(t *testing.T) {
	db := dbtest.New(t)
	boom := errors.New("boom")

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := Write(context.Background(), tx, Entry{EntityType: "employee", EntityID: 1, Action: models.AuditActionDelete}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	entries := []struct {
		user   uint
		entity uint
		action models.AuditAction
	}{
		{1, 10, models.AuditActionCreate},
		{1, 10, models.AuditActionUpdate},
		{2, 11, models.AuditActionCreate},
		{2, 10, models.AuditActionDelete},
	}
	for _, e := range entries {
		ctx := WithActor(context.Background(), e.user)
		require.NoError(t, Write(ctx, db, Entry{EntityType: "employee", EntityID: e.entity, Action: e.action}))
	}
}

func TestService_List(t *testing.T) {
	db := dbtest.New(t)
	seed(t, db)
	svc := NewService(db)
	ctx := context.Background()

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, models.AuditActionDelete, all[0].Action)

	byEntity, err := svc.List(ctx, Filter{EntityType: "employee", EntityID: 10})
	require.NoError(t, err)
	assert.Len(t, byEntity, 3)

	byUser, err := svc.List(ctx, Filter{UserID: 2})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	limited, err := svc.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, all[0].ID, limited[0].ID)
}

func TestListHandler(t *testing.T) {
	db := dbtest.New(t)
	seed(t, db)

	app := fiber.New()
	app.Get("/audit-logs", ListHandler(NewService(db)))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit-logs?entity_id=11", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []LogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, uint(2), out[0].UserID)
	assert.Equal(t, models.AuditActionCreate, out[0].Action)
	assert.JSONEq(t, "null", string(out[0].Before))

	for _, q := range []string{"entity_id=abc", "user_id=-1", "limit=0"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit-logs?"+q, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}
