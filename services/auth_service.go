package services

import (
	"context"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"taskboard/models"
	"taskboard/utils"
)

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=manager employee"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	UserID uint         `json:"user_id"`
	Token  string       `json:"token"`
	User   *models.User `json:"user"`
}

type AuthService struct {
	db            *gorm.DB
	confirmations *confirmations
	log           *logrus.Entry
}

func NewAuthService(db *gorm.DB, confirmations *confirmations, log *logrus.Entry) *AuthService {
	return &AuthService{db: db, confirmations: confirmations, log: log}
}

// Register creates an unconfirmed account and mails its confirmation token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := checkmail.ValidateFormat(in.Email); err != nil {
		return nil, utils.Invalid(utils.FieldError{Field: "email", Message: "email must be a valid email"})
	}
	if err := checkIdentityFree(s.db.WithContext(ctx), &in.Username, &in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.WithError(err).Error("failed to hash password")
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         models.RoleEmployee,
	}
	if in.Role != "" {
		user.Role = models.Role(in.Role)
	}

	var conf *models.EmailConfirmation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		conf, err = s.confirmations.issue(tx, user.ID)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, utils.FieldConflicts(map[string]string{"username": "username or email already taken"})
		}
		return nil, err
	}
	s.confirmations.send(&user, conf.Token)

	token, err := utils.GenerateJWTToken(&user)
	if err != nil {
		return nil, err
	}

	utils.LogEvent(s.log, "user_registered", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return &AuthResult{UserID: user.ID, Token: token, User: &user}, nil
}

// Login checks credentials. Unconfirmed accounts are refused and get a fresh confirmation email.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", in.Email).First(&user).Error; err != nil {
		if notFound(err) {
			return nil, utils.Unauthenticated("invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		s.log.WithField("user_id", user.ID).Warn("failed login attempt")
		return nil, utils.Unauthenticated("invalid email or password")
	}

	if !user.EmailConfirmed {
		if err := s.confirmations.reissue(ctx, &user); err != nil {
			return nil, err
		}
		return nil, utils.Forbidden("email not confirmed, a new confirmation email has been sent").
			WithCode(utils.CodeEmailNotConfirmed)
	}

	token, err := utils.GenerateJWTToken(&user)
	if err != nil {
		return nil, err
	}

	utils.LogEvent(s.log, "user_login", map[string]interface{}{"user_id": user.ID})
	return &AuthResult{UserID: user.ID, Token: token, User: &user}, nil
}

// ConfirmEmail consumes a confirmation token and marks the owner's email as confirmed.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, utils.InvalidRequest("token is required")
	}

	var conf models.EmailConfirmation
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&conf).Error; err != nil {
		return nil, notFoundOr(err, "confirmation token not found")
	}
	if conf.Expired(s.confirmations.now()) {
		return nil, utils.InvalidRequest("confirmation token has expired")
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, conf.UserID).Error; err != nil {
			return notFoundOr(err, "user not found")
		}
		if err := tx.Model(&user).Update("email_confirmed", true).Error; err != nil {
			return err
		}
		return tx.Delete(&conf).Error
	})
	if err != nil {
		return nil, err
	}

	utils.LogEvent(s.log, "email_confirmed", map[string]interface{}{"user_id": user.ID})
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkIdentityFree reports every taken field at once as a conflict keyed by field name.
func checkIdentityFree(db *gorm.DB, username, email *string, exceptID uint) error {
	conflicts := map[string]string{}

	check := func(column, value, msg string) error {
		var n int64
		q := db.Model(&models.User{}).Where("LOWER("+column+") = LOWER(?)", value)
		if exceptID != 0 {
			q = q.Where("id <> ?", exceptID)
		}
		if err := q.Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			conflicts[column] = msg
		}
		return nil
	}

	if username != nil {
		if err := check("username", *username, "username already taken"); err != nil {
			return err
		}
	}
	if email != nil {
		if err := check("email", *email, "email already registered"); err != nil {
			return err
		}
	}
	if len(conflicts) > 0 {
		return utils.FieldConflicts(conflicts)
	}
	return nil
}
