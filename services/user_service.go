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

type UpdateProfileInput struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	// Role can only be changed by admins.
	Role *string `json:"role" validate:"omitempty,oneof=admin manager employee"`
}

type AvatarInput struct {
	AvatarURL string `json:"avatar_url" validate:"required,url,max=500"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type UserService struct {
	db            *gorm.DB
	confirmations *confirmations
	log           *logrus.Entry
}

func NewUserService(db *gorm.DB, confirmations *confirmations, log *logrus.Entry) *UserService {
	return &UserService{db: db, confirmations: confirmations, log: log}
}

// Get returns any user's public profile.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.load(ctx, id)
}

// List is available to admins and managers, optionally filtered by role.
func (s *UserService) List(ctx context.Context, p models.Principal, role string) ([]models.User, error) {
	if !p.IsStaff() {
		return nil, utils.Forbidden("only managers and admins can list users")
	}
	if role != "" && !models.Role(role).Valid() {
		return nil, utils.Invalid(utils.FieldError{Field: "role", Message: "role must be one of: admin, manager, employee"})
	}

	users := []models.User{}
	q := s.db.WithContext(ctx).Order("username")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile changes username, email or role. Changing the email resets its confirmation.
func (s *UserService) UpdateProfile(ctx context.Context, p models.Principal, id uint, in UpdateProfileInput) (*models.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ID != user.ID && !p.IsAdmin() {
		return nil, utils.Forbidden("you can only edit your own profile")
	}
	if in.Role != nil && !p.IsAdmin() {
		return nil, utils.Forbidden("only admins can change roles")
	}

	in.Username = trimPtr(in.Username)
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	if err := notBlank(field("username", in.Username), field("email", in.Email), field("role", in.Role)); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	var newUsername, newEmail *string
	if in.Username != nil && *in.Username != user.Username {
		newUsername = in.Username
		updates["username"] = *in.Username
	}
	if in.Email != nil && *in.Email != user.Email {
		if err := checkmail.ValidateFormat(*in.Email); err != nil {
			return nil, utils.Invalid(utils.FieldError{Field: "email", Message: "email must be a valid email"})
		}
		newEmail = in.Email
		updates["email"] = *in.Email
		updates["email_confirmed"] = false
	}
	if in.Role != nil && models.Role(*in.Role) != user.Role {
		updates["role"] = *in.Role
	}
	if len(updates) == 0 {
		if in.Username == nil && in.Email == nil && in.Role == nil {
			return nil, errNothingToUpdate()
		}
		return user, nil
	}

	if err := checkIdentityFree(s.db.WithContext(ctx), newUsername, newEmail, user.ID); err != nil {
		return nil, err
	}

	leavesTeams := user.Role == models.RoleEmployee && in.Role != nil && models.Role(*in.Role) != models.RoleEmployee

	var token string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(updates).Error; err != nil {
			return err
		}
		// Only employees belong to teams.
		if leavesTeams {
			if err := tx.Where("user_id = ?", user.ID).Delete(&models.TeamMember{}).Error; err != nil {
				return err
			}
		}
		if newEmail == nil {
			return nil
		}
		conf, err := s.confirmations.issue(tx, user.ID)
		if err != nil {
			return err
		}
		token = conf.Token
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, utils.FieldConflicts(map[string]string{"username": "username or email already taken"})
		}
		return nil, err
	}

	user, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if token != "" {
		s.confirmations.send(user, token)
	}
	s.log.WithFields(logrus.Fields{"user_id": id, "updated_by": p.ID}).Info("profile updated")
	return user, nil
}

func (s *UserService) SetAvatar(ctx context.Context, p models.Principal, id uint, in AvatarInput) (*models.User, error) {
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	return s.updateAvatar(ctx, p, id, &in.AvatarURL)
}

func (s *UserService) ClearAvatar(ctx context.Context, p models.Principal, id uint) (*models.User, error) {
	return s.updateAvatar(ctx, p, id, nil)
}

func (s *UserService) updateAvatar(ctx context.Context, p models.Principal, id uint, avatarURL *string) (*models.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ID != user.ID && !p.IsAdmin() {
		return nil, utils.Forbidden("you can only change your own avatar")
	}
	if err := s.db.WithContext(ctx).Model(user).Update("avatar_url", avatarURL).Error; err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// ChangePassword is only available to the account owner and requires the current password.
func (s *UserService) ChangePassword(ctx context.Context, p models.Principal, id uint, in ChangePasswordInput) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if p.ID != user.ID {
		return utils.Forbidden("you can only change your own password")
	}
	if err := utils.ValidateStruct(in); err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return utils.Unauthenticated("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", string(hash)).Error; err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("password changed")
	return nil
}

// Teams lists the teams a user belongs to or owns. Employees can only list their own.
func (s *UserService) Teams(ctx context.Context, p models.Principal, id uint) ([]models.Team, error) {
	if p.ID != id && !p.IsStaff() {
		return nil, utils.Forbidden("you can only list your own teams")
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	teams := []models.Team{}
	member := s.db.WithContext(ctx).Model(&models.TeamMember{}).Select("team_id").Where("user_id = ?", id)
	err := s.db.WithContext(ctx).
		Where("id IN (?) OR created_by = ?", member, id).
		Order("name").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (s *UserService) load(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return &user, nil
}
