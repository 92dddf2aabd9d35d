package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"taskboard/config"
	"taskboard/middleware"
	"taskboard/models"
	"taskboard/services"
	"taskboard/utils"
)

type tokenMailer struct {
	mu   sync.Mutex
	last map[string]string
}

func (m *tokenMailer) SendConfirmation(to, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[to] = token
	return nil
}

func (m *tokenMailer) token(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last[to]
}

type testServer struct {
	app    *fiber.App
	db     *gorm.DB
	mailer *tokenMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.RateLimitAuth = 1000
	config.AppConfig.Redis.Enabled = false

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db))

	log := logrus.New()
	log.SetOutput(io.Discard)

	mailer := &tokenMailer{last: map[string]string{}}
	svc := services.New(db, mailer, log, services.Options{})

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(log.WithField("component", "http"))})
	app.Use(requestid.New())
	SetupRoutes(app, db, svc, log)

	return &testServer{app: app, db: db, mailer: mailer}
}

// do sends a JSON request and decodes the JSON response into out when out is non-nil.
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), "%s %s", method, path)
	}
	return resp.StatusCode
}

// user inserts a confirmed account and returns it with a bearer token.
func (s *testServer) user(t *testing.T, username string, role models.Role) (*models.User, string) {
	t.Helper()
	u := models.User{
		Username:       username,
		Email:          username + "@example.com",
		PasswordHash:   "x",
		Role:           role,
		EmailConfirmed: true,
	}
	require.NoError(t, s.db.Create(&u).Error)
	token, err := utils.GenerateJWTToken(&u)
	require.NoError(t, err)
	return &u, token
}

func TestHealthAndFallback(t *testing.T) {
	s := newTestServer(t)

	var health map[string]string
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, "/health", "", nil, &health))
	assert.Equal(t, "ok", health["status"])

	var errBody middleware.ErrorResponse
	assert.Equal(t, http.StatusNotFound, s.do(t, fiber.MethodGet, "/nope", "", nil, &errBody))
	assert.Contains(t, errBody.Error, "/nope")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/teams", "/projects", "/tasks", "/tags", "/events", "/users/1", "/auth/me"} {
		var errBody middleware.ErrorResponse
		assert.Equal(t, http.StatusUnauthorized, s.do(t, fiber.MethodGet, path, "", nil, &errBody), path)
		assert.NotEmpty(t, errBody.Error)
	}

	assert.Equal(t, http.StatusUnauthorized, s.do(t, fiber.MethodGet, "/teams", "not-a-jwt", nil, nil))
}

func TestRegisterConfirmLoginFlow(t *testing.T) {
	s := newTestServer(t)

	var registered struct {
		UserID uint   `json:"user_id"`
		Token  string `json:"token"`
	}
	status := s.do(t, fiber.MethodPost, "/auth/register", "", fiber.Map{
		"username": "alice",
		"email":    "Alice@Example.com",
		"password": "s3cret-pass",
		"role":     "manager",
	}, &registered)
	require.Equal(t, http.StatusCreated, status)
	assert.NotZero(t, registered.UserID)
	assert.NotEmpty(t, registered.Token)

	var conflict middleware.ErrorResponse
	status = s.do(t, fiber.MethodPost, "/auth/register", "", fiber.Map{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "s3cret-pass",
	}, &conflict)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, conflict.Conflicts, "username")
	assert.Contains(t, conflict.Conflicts, "email")

	var early middleware.ErrorResponse
	assert.Equal(t, http.StatusForbidden, s.do(t, fiber.MethodGet, "/auth/me", registered.Token, nil, &early))
	assert.Equal(t, utils.CodeEmailNotConfirmed, early.Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, fiber.MethodGet, "/teams", registered.Token, nil, nil))

	login := fiber.Map{"email": "alice@example.com", "password": "s3cret-pass"}

	var refused middleware.ErrorResponse
	assert.Equal(t, http.StatusForbidden, s.do(t, fiber.MethodPost, "/auth/login", "", login, &refused))
	assert.Equal(t, utils.CodeEmailNotConfirmed, refused.Code)

	var wrong middleware.ErrorResponse
	status = s.do(t, fiber.MethodPost, "/auth/login", "", fiber.Map{"email": "alice@example.com", "password": "wrong-pass"}, &wrong)
	assert.Equal(t, http.StatusUnauthorized, status)

	assert.Equal(t, http.StatusNotFound, s.do(t, fiber.MethodGet, "/auth/confirm-email?token=unknown", "", nil, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(t, fiber.MethodGet, "/auth/confirm-email", "", nil, nil))

	token := s.mailer.token("alice@example.com")
	require.NotEmpty(t, token)
	var confirmed map[string]interface{}
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, "/auth/confirm-email?token="+token, "", nil, &confirmed))
	assert.EqualValues(t, registered.UserID, confirmed["user_id"])

	var loggedIn struct {
		UserID uint   `json:"user_id"`
		Token  string `json:"token"`
	}
	require.Equal(t, http.StatusOK, s.do(t, fiber.MethodPost, "/auth/login", "", login, &loggedIn))
	assert.Equal(t, registered.UserID, loggedIn.UserID)

	var me models.User
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, "/auth/me", registered.Token, nil, &me))
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, "/auth/me", loggedIn.Token, nil, &me))
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, models.RoleManager, me.Role)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	var errBody middleware.ErrorResponse
	status := s.do(t, fiber.MethodPost, "/auth/register", "", fiber.Map{
		"username": "al",
		"email":    "not-an-email",
		"password": "short",
	}, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)

	fields := map[string]bool{}
	for _, d := range errBody.Details {
		fields[d.Field] = true
	}
	assert.True(t, fields["username"])
	assert.True(t, fields["email"])
	assert.True(t, fields["password"])
}

func TestVisibilityAcrossRoles(t *testing.T) {
	s := newTestServer(t)

	_, managerToken := s.user(t, "manager", models.RoleManager)
	member, memberToken := s.user(t, "member", models.RoleEmployee)
	_, outsiderToken := s.user(t, "outsider", models.RoleEmployee)
	_, adminToken := s.user(t, "admin", models.RoleAdmin)

	var team models.Team
	require.Equal(t, http.StatusCreated, s.do(t, fiber.MethodPost, "/teams", managerToken, fiber.Map{"name": "Core"}, &team))
	require.Equal(t, http.StatusCreated,
		s.do(t, fiber.MethodPost, fmt.Sprintf("/teams/%d/members/%d", team.ID, member.ID), managerToken, nil, nil))

	var project models.Project
	require.Equal(t, http.StatusCreated,
		s.do(t, fiber.MethodPost, "/projects", managerToken, fiber.Map{"name": "Apollo", "team_id": team.ID}, &project))

	var memberProjects []models.Project
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, "/projects", memberToken, nil, &memberProjects))
	require.Len(t, memberProjects, 1)
	assert.Equal(t, project.ID, memberProjects[0].ID)

	var outsiderProjects []models.Project
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, "/projects", outsiderToken, nil, &outsiderProjects))
	assert.Empty(t, outsiderProjects)
	assert.Equal(t, http.StatusNotFound,
		s.do(t, fiber.MethodGet, fmt.Sprintf("/projects/%d", project.ID), outsiderToken, nil, nil))

	var adminProjects []models.Project
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, "/projects", adminToken, nil, &adminProjects))
	assert.Len(t, adminProjects, 1)

	// Employees cannot mutate projects.
	assert.Equal(t, http.StatusForbidden,
		s.do(t, fiber.MethodPost, "/projects", memberToken, fiber.Map{"name": "Side", "team_id": team.ID}, nil))
	assert.Equal(t, http.StatusForbidden,
		s.do(t, fiber.MethodDelete, fmt.Sprintf("/projects/%d", project.ID), memberToken, nil, nil))

	var task models.Task
	require.Equal(t, http.StatusCreated, s.do(t, fiber.MethodPost, "/tasks", memberToken, fiber.Map{
		"title":      "Write docs",
		"project_id": project.ID,
		"priority":   "high",
		"tags":       "docs, Docs ,urgent",
	}, &task))
	assert.Equal(t, models.TaskOpen, task.Status)
	assert.Len(t, task.Tags, 2)

	var outsiderTasks []models.Task
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, "/tasks", outsiderToken, nil, &outsiderTasks))
	assert.Empty(t, outsiderTasks)

	// Assignee routes are reserved for staff.
	assert.Equal(t, http.StatusForbidden,
		s.do(t, fiber.MethodGet, fmt.Sprintf("/tasks/%d/assignee", task.ID), memberToken, nil, nil))

	var assigned models.Task
	require.Equal(t, http.StatusOK, s.do(t, fiber.MethodPost, fmt.Sprintf("/tasks/%d/assignee", task.ID), managerToken,
		fiber.Map{"user_id": member.ID}, &assigned))
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, member.ID, *assigned.AssigneeID)

	var assignee struct {
		Assignee *models.User `json:"assignee"`
	}
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, fmt.Sprintf("/tasks/%d/assignee", task.ID), managerToken, nil, &assignee))
	require.NotNil(t, assignee.Assignee)
	assert.Equal(t, "member", assignee.Assignee.Username)

	// Deleting a project with tasks is refused.
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, fiber.MethodDelete, fmt.Sprintf("/projects/%d", project.ID), managerToken, nil, nil))
}

func TestTaskTagsEndpoints(t *testing.T) {
	s := newTestServer(t)

	_, managerToken := s.user(t, "manager", models.RoleManager)

	var team models.Team
	require.Equal(t, http.StatusCreated, s.do(t, fiber.MethodPost, "/teams", managerToken, fiber.Map{"name": "Core"}, &team))
	var project models.Project
	require.Equal(t, http.StatusCreated,
		s.do(t, fiber.MethodPost, "/projects", managerToken, fiber.Map{"name": "Apollo", "team_id": team.ID}, &project))
	var task models.Task
	require.Equal(t, http.StatusCreated,
		s.do(t, fiber.MethodPost, "/tasks", managerToken, fiber.Map{"title": "Ship", "project_id": project.ID}, &task))

	var tag models.Tag
	require.Equal(t, http.StatusCreated,
		s.do(t, fiber.MethodPost, "/tags", managerToken, fiber.Map{"name": "backend", "color": "#336699"}, &tag))
	assert.Equal(t, http.StatusConflict,
		s.do(t, fiber.MethodPost, "/tags", managerToken, fiber.Map{"name": "Backend", "color": "#336699"}, nil))

	tagsPath := fmt.Sprintf("/tasks/%d/tags", task.ID)

	var first struct {
		Added   int         `json:"added"`
		Message string      `json:"message"`
		Task    models.Task `json:"task"`
	}
	require.Equal(t, http.StatusOK, s.do(t, fiber.MethodPost, tagsPath, managerToken, fiber.Map{"tag_ids": []uint{tag.ID}}, &first))
	assert.Equal(t, 1, first.Added)
	require.Len(t, first.Task.Tags, 1)
	assert.Equal(t, "backend", first.Task.Tags[0].Name)

	var again struct {
		Added   int    `json:"added"`
		Message string `json:"message"`
	}
	require.Equal(t, http.StatusOK, s.do(t, fiber.MethodPost, tagsPath, managerToken, fiber.Map{"tag_ids": []uint{tag.ID}}, &again))
	assert.Equal(t, 0, again.Added)
	assert.Contains(t, again.Message, "Nothing to do")

	removePath := fmt.Sprintf("/tasks/%d/tags/%d", task.ID, tag.ID)
	assert.Equal(t, http.StatusNoContent, s.do(t, fiber.MethodDelete, removePath, managerToken, nil, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(t, fiber.MethodDelete, removePath, managerToken, nil, nil))
}

func TestTaskStatusTransitionsOverHTTP(t *testing.T) {
	s := newTestServer(t)

	_, managerToken := s.user(t, "manager", models.RoleManager)

	var team models.Team
	require.Equal(t, http.StatusCreated, s.do(t, fiber.MethodPost, "/teams", managerToken, fiber.Map{"name": "Core"}, &team))
	var project models.Project
	require.Equal(t, http.StatusCreated,
		s.do(t, fiber.MethodPost, "/projects", managerToken, fiber.Map{"name": "Apollo", "team_id": team.ID}, &project))
	var task models.Task
	require.Equal(t, http.StatusCreated,
		s.do(t, fiber.MethodPost, "/tasks", managerToken, fiber.Map{"title": "Ship", "project_id": project.ID}, &task))

	taskPath := fmt.Sprintf("/tasks/%d", task.ID)

	var errBody middleware.ErrorResponse
	assert.Equal(t, http.StatusConflict, s.do(t, fiber.MethodPut, taskPath, managerToken, fiber.Map{"status": "in_test"}, &errBody))
	assert.Contains(t, errBody.Error, "in_test")

	var updated models.Task
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodPut, taskPath, managerToken, fiber.Map{"status": "in_development"}, &updated))
	assert.Equal(t, models.TaskInDevelopment, updated.Status)

	assert.Equal(t, http.StatusBadRequest, s.do(t, fiber.MethodPut, taskPath, managerToken, fiber.Map{}, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(t, fiber.MethodPut, "/tasks/abc", managerToken, fiber.Map{"title": "x"}, nil))
}

func TestEventsAreScopedToOwner(t *testing.T) {
	s := newTestServer(t)

	_, aliceToken := s.user(t, "alice", models.RoleEmployee)
	_, bobToken := s.user(t, "bob", models.RoleEmployee)

	var event models.Event
	require.Equal(t, http.StatusCreated, s.do(t, fiber.MethodPost, "/events", aliceToken, fiber.Map{
		"title":      "Standup",
		"event_date": "2024-05-01",
		"event_time": "09:30",
	}, &event))

	var bobEvents []models.Event
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, "/events", bobToken, nil, &bobEvents))
	assert.Empty(t, bobEvents)

	var aliceEvents []models.Event
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, "/events?from=2024-05-01&to=2024-05-31", aliceToken, nil, &aliceEvents))
	assert.Len(t, aliceEvents, 1)

	eventPath := fmt.Sprintf("/events/%d", event.ID)
	assert.Equal(t, http.StatusForbidden, s.do(t, fiber.MethodDelete, eventPath, bobToken, nil, nil))
	assert.Equal(t, http.StatusNoContent, s.do(t, fiber.MethodDelete, eventPath, aliceToken, nil, nil))
}

func TestUserRoutes(t *testing.T) {
	s := newTestServer(t)

	alice, aliceToken := s.user(t, "alice", models.RoleEmployee)
	bob, bobToken := s.user(t, "bob", models.RoleEmployee)

	var got models.User
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, fmt.Sprintf("/users/%d", bob.ID), aliceToken, nil, &got))
	assert.Equal(t, "bob", got.Username)

	profilePath := fmt.Sprintf("/users/%d/profile", alice.ID)
	assert.Equal(t, http.StatusForbidden, s.do(t, fiber.MethodPut, profilePath, bobToken, fiber.Map{"username": "mallory"}, nil))

	var conflict middleware.ErrorResponse
	assert.Equal(t, http.StatusConflict, s.do(t, fiber.MethodPut, profilePath, aliceToken, fiber.Map{"username": "bob"}, &conflict))
	assert.Contains(t, conflict.Conflicts, "username")

	var avatar models.User
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodPost, fmt.Sprintf("/users/%d/avatar", alice.ID), aliceToken,
		fiber.Map{"avatar_url": "https://cdn.example.com/a.png"}, &avatar))
	require.NotNil(t, avatar.AvatarURL)

	assert.Equal(t, http.StatusForbidden, s.do(t, fiber.MethodGet, "/users", aliceToken, nil, nil))

	var teams []models.Team
	assert.Equal(t, http.StatusOK, s.do(t, fiber.MethodGet, fmt.Sprintf("/users/%d/teams", alice.ID), aliceToken, nil, &teams))
	assert.Empty(t, teams)
}
