package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	authsvc "horas-backend/internal/auth"
	"horas-backend/internal/domain"
	"horas-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserFinder struct {
	user     *domain.User
	password string
}

func (f *fakeUserFinder) FindByEmailAndPassword(email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, authsvc.ErrEmailPasswordRequired
	}
	if f.user == nil || email != f.user.Email || password != f.password {
		return nil, authsvc.ErrInvalidCredentials
	}
	if !f.user.Active {
		return nil, authsvc.ErrUserInactive
	}
	return f.user, nil
}

func setupAuthApp(t *testing.T, finder authsvc.UserFinder) (*fiber.App, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := middleware.SessionConfig{Secret: "test-secret"}

	app := fiber.New()
	app.Use(middleware.SessionWithClient(cfg, rdb))

	h := &Handlers{UserFinder: finder, Rdb: rdb, Config: cfg}
	grp := app.Group("/api/v1/auth")
	grp.Post("/login", h.Login)
	grp.Get("/me", h.Me)
	grp.Delete("/logout", h.Logout)
	return app, rdb
}

func testUser() *domain.User {
	return &domain.User{
		UserID:   uuid.New(),
		Fullname: "Ana Pérez",
		Email:    "ana@empresa.com",
		Role:     domain.RoleConsultant,
		Active:   true,
	}
}

func login(t *testing.T, app *fiber.App, email, password string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestLogin_Success(t *testing.T) {
	u := testUser()
	app, rdb := setupAuthApp(t, &fakeUserFinder{user: u, password: "clave1234"})

	resp := login(t, app, u.Email, "clave1234")
	assert.Equal(t, 200, resp.StatusCode)

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	// Session stored in Redis under the cookie value
	b, err := rdb.Get(context.Background(), middleware.SessionRedisPrefix+cookie.Value).Bytes()
	require.NoError(t, err)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &data))
	sessUser := data["user"].(map[string]interface{})
	assert.Equal(t, u.UserID.String(), sessUser["user_id"])
	assert.Equal(t, u.Role, sessUser["role"])

	// Session id tracked for the user
	members, err := rdb.SMembers(context.Background(), userSessionsPrefix+u.UserID.String()).Result()
	require.NoError(t, err)
	assert.Contains(t, members, cookie.Value)
}

func TestLogin_WrongPassword(t *testing.T) {
	u := testUser()
	app, _ := setupAuthApp(t, &fakeUserFinder{user: u, password: "clave1234"})

	resp := login(t, app, u.Email, "incorrecta")
	assert.Equal(t, 401, resp.StatusCode)
	assert.Nil(t, sessionCookie(resp))
}

func TestLogin_InactiveUser(t *testing.T) {
	u := testUser()
	u.Active = false
	app, _ := setupAuthApp(t, &fakeUserFinder{user: u, password: "clave1234"})

	resp := login(t, app, u.Email, "clave1234")
	assert.Equal(t, 401, resp.StatusCode)
}

func TestLogin_MissingFields(t *testing.T) {
	app, _ := setupAuthApp(t, &fakeUserFinder{})
	resp := login(t, app, "", "")
	assert.Equal(t, 400, resp.StatusCode)
}

func TestMe_WithSession(t *testing.T) {
	u := testUser()
	app, _ := setupAuthApp(t, &fakeUserFinder{user: u, password: "clave1234"})

	cookie := sessionCookie(login(t, app, u.Email, "clave1234"))
	require.NotNil(t, cookie)

	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	me := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, u.Email, me["email"])
	assert.Equal(t, u.UserID.String(), me["user_id"])
}

func TestMe_WithoutSession(t *testing.T) {
	app, _ := setupAuthApp(t, &fakeUserFinder{})
	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestLogout_DropsSession(t *testing.T) {
	u := testUser()
	app, rdb := setupAuthApp(t, &fakeUserFinder{user: u, password: "clave1234"})

	cookie := sessionCookie(login(t, app, u.Email, "clave1234"))
	require.NotNil(t, cookie)

	req := httptest.NewRequest("DELETE", "/api/v1/auth/logout", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	// Session removed from the user's tracked set
	members, err := rdb.SMembers(context.Background(), userSessionsPrefix+u.UserID.String()).Result()
	require.NoError(t, err)
	assert.NotContains(t, members, cookie.Value)

	// A follow-up /me with the old cookie is rejected
	req = httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}
