package vacations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	polsvc "horas-backend/internal/application/policies"
	vacsvc "horas-backend/internal/application/vacations"
	"horas-backend/internal/domain"
	"horas-backend/internal/middleware"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// sessionUser builds the Locals shape the session middleware produces.
func sessionUser(id uuid.UUID, role string) map[string]interface{} {
	return map[string]interface{}{
		"user_id":  id.String(),
		"fullname": "Usuario de Prueba",
		"email":    "prueba@empresa.com",
		"role":     role,
	}
}

// setupApp builds the vacations routes behind a middleware that injects the
// given session user (nil = anonymous).
func setupApp(t *testing.T, user map[string]interface{}) (*fiber.App, *vacsvc.Service) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.VacationRequest{}, &domain.VacationBalance{},
		&domain.VacationPolicy{}, &domain.VacationEvent{},
	))

	pols := &polsvc.Service{DB: db}
	svc := &vacsvc.Service{DB: db, Policies: pols}
	h := &Handlers{Service: svc, Policies: pols}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals("user", user)
		}
		return c.Next()
	})

	app.Get("/api/v1/vacations/policies/public", h.GetPoliciesPublic)
	grp := app.Group("/api/v1/vacations", middleware.RequireAuth())
	grp.Post("/", h.CreateRequest)
	grp.Get("/my", h.ListMine)
	grp.Get("/", middleware.RequireAdmin(), h.ListAll)
	grp.Get("/stats", middleware.RequireAdmin(), h.Stats)
	grp.Get("/policies", middleware.RequireAdmin(), h.GetPolicies)
	grp.Put("/policies", middleware.RequireAdmin(), h.SetPolicies)
	grp.Get("/balance/my", h.GetMyBalance)
	grp.Get("/balance/:userId", middleware.RequireAdmin(), h.GetUserBalance)
	grp.Put("/balance/:userId", middleware.RequireAdmin(), h.UpsertBalance)
	grp.Get("/detail/:id", h.GetDetail)
	grp.Post("/:id/cancel", h.Cancel)
	grp.Put("/:id/decision", middleware.RequireAdmin(), h.Decide)
	grp.Get("/:id", h.GetDetail)
	return app, svc
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp, parsed
}

func futureRange() (string, string) {
	monday := time.Now().AddDate(0, 0, 14)
	for monday.Weekday() != time.Monday {
		monday = monday.AddDate(0, 0, 1)
	}
	return monday.Format("2006-01-02"), monday.AddDate(0, 0, 4).Format("2006-01-02")
}

func TestCreateRequest_Created(t *testing.T) {
	app, _ := setupApp(t, sessionUser(uuid.New(), domain.RoleConsultant))
	startStr, endStr := futureRange()

	resp, body := doJSON(t, app, "POST", "/api/v1/vacations/", map[string]string{
		"start_date": startStr, "end_date": endStr,
	})
	assert.Equal(t, 201, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, domain.StatusPending, data["status"])
	assert.Equal(t, float64(5), data["total_days"])
	assert.Equal(t, startStr, data["start_date"])
}

func TestCreateRequest_Unauthenticated(t *testing.T) {
	app, _ := setupApp(t, nil)
	startStr, endStr := futureRange()

	resp, body := doJSON(t, app, "POST", "/api/v1/vacations/", map[string]string{
		"start_date": startStr, "end_date": endStr,
	})
	assert.Equal(t, 401, resp.StatusCode)
	assert.Equal(t, "No autenticado", body["message"])
}

func TestCreateRequest_PolicyViolationIs400(t *testing.T) {
	app, _ := setupApp(t, sessionUser(uuid.New(), domain.RoleConsultant))
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	resp, body := doJSON(t, app, "POST", "/api/v1/vacations/", map[string]string{
		"start_date": tomorrow, "end_date": tomorrow,
	})
	assert.Equal(t, 400, resp.StatusCode)
	assert.NotEmpty(t, body["message"])
}

func TestListMine_ReturnsOwnOnly(t *testing.T) {
	me := uuid.New()
	app, svc := setupApp(t, sessionUser(me, domain.RoleConsultant))
	startStr, endStr := futureRange()
	seedRequest(t, svc, me, startStr, endStr)
	seedRequest(t, svc, uuid.New(), startStr, endStr)

	resp, body := doJSON(t, app, "GET", "/api/v1/vacations/my", nil)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Len(t, body["data"].([]interface{}), 1)
}

func TestListAll_ConsultantForbidden(t *testing.T) {
	app, _ := setupApp(t, sessionUser(uuid.New(), domain.RoleConsultant))
	resp, body := doJSON(t, app, "GET", "/api/v1/vacations/", nil)
	assert.Equal(t, 403, resp.StatusCode)
	assert.Equal(t, "Acceso restringido a administradores", body["message"])
}

func TestListAll_AdminWithStatusFilter(t *testing.T) {
	admin := uuid.New()
	app, svc := setupApp(t, sessionUser(admin, domain.RoleAdmin))
	startStr, endStr := futureRange()
	req := seedRequest(t, svc, uuid.New(), startStr, endStr)
	seedRequest(t, svc, uuid.New(), startStr, endStr)
	_, err := svc.Decide(context.Background(), req.ID, admin, domain.StatusApproved, nil)
	require.NoError(t, err)

	resp, body := doJSON(t, app, "GET", "/api/v1/vacations/?status=aprobada", nil)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Len(t, body["data"].([]interface{}), 1)
}

func TestCancel_Flow(t *testing.T) {
	me := uuid.New()
	app, svc := setupApp(t, sessionUser(me, domain.RoleConsultant))
	startStr, endStr := futureRange()
	req := seedRequest(t, svc, me, startStr, endStr)

	resp, body := doJSON(t, app, "POST", fmt.Sprintf("/api/v1/vacations/%s/cancel", req.ID), nil)
	assert.Equal(t, 200, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, domain.StatusCancelled, data["status"])

	// Already cancelled
	resp, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/v1/vacations/%s/cancel", req.ID), nil)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestDecide_ApproveFlow(t *testing.T) {
	admin := uuid.New()
	app, svc := setupApp(t, sessionUser(admin, domain.RoleAdmin))
	startStr, endStr := futureRange()
	owner := uuid.New()
	req := seedRequest(t, svc, owner, startStr, endStr)

	resp, body := doJSON(t, app, "PUT", fmt.Sprintf("/api/v1/vacations/%s/decision", req.ID), map[string]interface{}{
		"status": domain.StatusApproved, "admin_comment": "aprobado",
	})
	assert.Equal(t, 200, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, domain.StatusApproved, data["status"])
	assert.Equal(t, admin.String(), data["approver_id"])

	// Second decision is a 400
	resp, _ = doJSON(t, app, "PUT", fmt.Sprintf("/api/v1/vacations/%s/decision", req.ID), map[string]interface{}{
		"status": domain.StatusRejected,
	})
	assert.Equal(t, 400, resp.StatusCode)
}

func TestDecide_MissingStatus(t *testing.T) {
	app, _ := setupApp(t, sessionUser(uuid.New(), domain.RoleAdmin))
	resp, _ := doJSON(t, app, "PUT", fmt.Sprintf("/api/v1/vacations/%s/decision", uuid.New()), map[string]string{})
	assert.Equal(t, 400, resp.StatusCode)
}

func TestGetDetail_NotFoundAndAlias(t *testing.T) {
	me := uuid.New()
	app, svc := setupApp(t, sessionUser(me, domain.RoleConsultant))
	startStr, endStr := futureRange()
	req := seedRequest(t, svc, me, startStr, endStr)

	resp, _ := doJSON(t, app, "GET", "/api/v1/vacations/detail/"+uuid.NewString(), nil)
	assert.Equal(t, 404, resp.StatusCode)

	// Both the /detail/:id route and the /:id alias serve the same resource
	resp, body := doJSON(t, app, "GET", "/api/v1/vacations/detail/"+req.ID.String(), nil)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, req.ID.String(), body["data"].(map[string]interface{})["id"])

	resp, body = doJSON(t, app, "GET", "/api/v1/vacations/"+req.ID.String(), nil)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, req.ID.String(), body["data"].(map[string]interface{})["id"])
}

func TestGetDetail_OtherUserForbidden(t *testing.T) {
	app, svc := setupApp(t, sessionUser(uuid.New(), domain.RoleConsultant))
	startStr, endStr := futureRange()
	req := seedRequest(t, svc, uuid.New(), startStr, endStr)

	resp, _ := doJSON(t, app, "GET", "/api/v1/vacations/detail/"+req.ID.String(), nil)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestBalanceRoutes(t *testing.T) {
	admin := uuid.New()
	app, _ := setupApp(t, sessionUser(admin, domain.RoleAdmin))
	target := uuid.New()
	year := time.Now().Year()

	resp, body := doJSON(t, app, "PUT", "/api/v1/vacations/balance/"+target.String(), map[string]interface{}{
		"year": year, "days_allocated": 22, "days_carried": 3,
	})
	assert.Equal(t, 200, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(22), data["days_allocated"])
	assert.Equal(t, float64(25), data["available_days"])

	resp, body = doJSON(t, app, "GET", fmt.Sprintf("/api/v1/vacations/balance/%s?year=%d", target, year), nil)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, float64(22), body["data"].(map[string]interface{})["days_allocated"])

	// Admin's own balance defaults to zeros
	resp, body = doJSON(t, app, "GET", "/api/v1/vacations/balance/my", nil)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, float64(0), body["data"].(map[string]interface{})["days_allocated"])
}

func TestUpsertBalance_InvalidBody(t *testing.T) {
	app, _ := setupApp(t, sessionUser(uuid.New(), domain.RoleAdmin))
	resp, _ := doJSON(t, app, "PUT", "/api/v1/vacations/balance/"+uuid.NewString(), map[string]interface{}{
		"year": 0, "days_allocated": 10,
	})
	assert.Equal(t, 400, resp.StatusCode)
}

func TestStats_Route(t *testing.T) {
	app, svc := setupApp(t, sessionUser(uuid.New(), domain.RoleAdmin))
	startStr, endStr := futureRange()
	seedRequest(t, svc, uuid.New(), startStr, endStr)

	resp, body := doJSON(t, app, "GET", "/api/v1/vacations/stats", nil)
	assert.Equal(t, 200, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data[domain.StatusPending])
	assert.Equal(t, float64(1), data["total"])
}

func TestPolicies_AdminRoundTrip(t *testing.T) {
	app, _ := setupApp(t, sessionUser(uuid.New(), domain.RoleAdmin))

	resp, _ := doJSON(t, app, "PUT", "/api/v1/vacations/policies", map[string]string{
		"min_advance_days": "10",
	})
	assert.Equal(t, 200, resp.StatusCode)

	resp, body := doJSON(t, app, "GET", "/api/v1/vacations/policies", nil)
	assert.Equal(t, 200, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	entry := data["min_advance_days"].(map[string]interface{})
	assert.Equal(t, "10", entry["value"])
}

func TestPolicies_UnknownKeyRejected(t *testing.T) {
	app, _ := setupApp(t, sessionUser(uuid.New(), domain.RoleAdmin))
	resp, _ := doJSON(t, app, "PUT", "/api/v1/vacations/policies", map[string]string{"no_existe": "1"})
	assert.Equal(t, 400, resp.StatusCode)
}

func TestPoliciesPublic_NoAuthNeeded(t *testing.T) {
	app, _ := setupApp(t, nil)
	resp, body := doJSON(t, app, "GET", "/api/v1/vacations/policies/public", nil)
	assert.Equal(t, 200, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "7", data["min_advance_days"])
	assert.Len(t, data, 3)
}

func seedRequest(t *testing.T, svc *vacsvc.Service, userID uuid.UUID, startStr, endStr string) *domain.VacationRequest {
	t.Helper()
	req, err := svc.CreateRequest(context.Background(), userID, vacsvc.CreateRequestInput{StartDate: startStr, EndDate: endStr})
	require.NoError(t, err)
	return req
}
