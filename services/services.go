package services

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskboard/utils"
)

// Options tunes the services built by New.
type Options struct {
	ConfirmTokenTTL time.Duration
}

// Services bundles every service the HTTP layer needs.
type Services struct {
	Access   *Access
	Auth     *AuthService
	Users    *UserService
	Teams    *TeamService
	Projects *ProjectService
	Tasks    *TaskService
	Tags     *TagService
	Events   *EventService
}

func New(db *gorm.DB, mailer utils.Mailer, log *logrus.Logger, opts Options) *Services {
	access := NewAccess(db)
	confirmations := newConfirmations(db, mailer, opts.ConfirmTokenTTL, log.WithField("component", "confirmations"))

	return &Services{
		Access:   access,
		Auth:     NewAuthService(db, confirmations, log.WithField("component", "auth")),
		Users:    NewUserService(db, confirmations, log.WithField("component", "users")),
		Teams:    NewTeamService(db, access, log.WithField("component", "teams")),
		Projects: NewProjectService(db, access, log.WithField("component", "projects")),
		Tasks:    NewTaskService(db, access, log.WithField("component", "tasks")),
		Tags:     NewTagService(db, log.WithField("component", "tags")),
		Events:   NewEventService(db, log.WithField("component", "events")),
	}
}

func errNothingToUpdate() error {
	return utils.InvalidRequest("no updatable fields provided")
}

// isUniqueViolation recognises unique-constraint failures from Postgres and SQLite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

type optionalField struct {
	name  string
	value *string
}

func field(name string, value *string) optionalField {
	return optionalField{name: name, value: value}
}

// notBlank rejects present-but-empty values of fields that cannot be cleared.
// Details follow the argument order.
func notBlank(fields ...optionalField) error {
	var details []utils.FieldError
	for _, f := range fields {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			details = append(details, utils.FieldError{Field: f.name, Message: f.name + " cannot be empty"})
		}
	}
	if len(details) > 0 {
		return utils.Invalid(details...)
	}
	return nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
