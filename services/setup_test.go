package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"taskboard/config"
	"taskboard/models"
)

var ctx = context.Background()

type captureMailer struct {
	mu     sync.Mutex
	tokens map[string][]string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{tokens: map[string][]string{}}
}

func (m *captureMailer) SendConfirmation(to, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[to] = append(m.tokens[to], token)
	return nil
}

func (m *captureMailer) last(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := m.tokens[to]
	if len(sent) == 0 {
		return ""
	}
	return sent[len(sent)-1]
}

type fixture struct {
	db     *gorm.DB
	svc    *Services
	mailer *captureMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	config.AppConfig.JWTSecret = "test-secret"

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

	mailer := newCaptureMailer()
	return &fixture{
		db:     db,
		svc:    New(db, mailer, log, Options{}),
		mailer: mailer,
	}
}

func (f *fixture) user(t *testing.T, username string, role models.Role) models.Principal {
	t.Helper()
	u := models.User{
		Username:       username,
		Email:          username + "@example.com",
		PasswordHash:   "x",
		Role:           role,
		EmailConfirmed: true,
	}
	require.NoError(t, f.db.Create(&u).Error)
	return u.Principal()
}

func (f *fixture) team(t *testing.T, owner models.Principal, name string, members ...models.Principal) *models.Team {
	t.Helper()
	team, err := f.svc.Teams.Create(ctx, owner, CreateTeamInput{Name: name})
	require.NoError(t, err)
	for _, m := range members {
		_, err := f.svc.Teams.AddMember(ctx, owner, team.ID, m.ID)
		require.NoError(t, err)
	}
	return team
}

func (f *fixture) project(t *testing.T, owner models.Principal, teamID uint, name string) *models.Project {
	t.Helper()
	project, err := f.svc.Projects.Create(ctx, owner, CreateProjectInput{Name: name, TeamID: teamID})
	require.NoError(t, err)
	return project
}

func (f *fixture) task(t *testing.T, p models.Principal, projectID uint, title string) *models.Task {
	t.Helper()
	task, err := f.svc.Tasks.Create(ctx, p, CreateTaskInput{Title: title, ProjectID: projectID})
	require.NoError(t, err)
	return task
}
