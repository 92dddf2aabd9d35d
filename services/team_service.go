package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskboard/models"
	"taskboard/utils"
)

type CreateTeamInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type UpdateTeamInput struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type TeamService struct {
	db     *gorm.DB
	access *Access
	log    *logrus.Entry
}

func NewTeamService(db *gorm.DB, access *Access, log *logrus.Entry) *TeamService {
	return &TeamService{db: db, access: access, log: log}
}

func (s *TeamService) List(ctx context.Context, p models.Principal) ([]models.Team, error) {
	teams := []models.Team{}
	q, ok, err := s.access.VisibleTeams(ctx, p)
	if err != nil || !ok {
		return teams, err
	}
	if err := q.Order("name").Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

func (s *TeamService) Get(ctx context.Context, p models.Principal, id uint) (*models.Team, error) {
	return s.access.VisibleTeam(ctx, p, id)
}

func (s *TeamService) Create(ctx context.Context, p models.Principal, in CreateTeamInput) (*models.Team, error) {
	if !p.IsStaff() {
		return nil, utils.Forbidden("only managers and admins can create teams")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, in.Name, 0); err != nil {
		return nil, err
	}

	team := models.Team{Name: in.Name, Description: in.Description, CreatedBy: p.ID}
	if err := s.db.WithContext(ctx).Create(&team).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.Conflict("team name %q is already taken", in.Name)
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"team_id": team.ID, "created_by": p.ID}).Info("team created")
	return &team, nil
}

func (s *TeamService) Update(ctx context.Context, p models.Principal, id uint, in UpdateTeamInput) (*models.Team, error) {
	team, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanManageTeam(p, team) {
		return nil, utils.Forbidden("you do not own this team")
	}

	in.Name = trimPtr(in.Name)
	if err := notBlank(field("name", in.Name)); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil && *in.Name != team.Name {
		if err := s.ensureNameFree(ctx, *in.Name, team.ID); err != nil {
			return nil, err
		}
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if len(updates) == 0 && in.Name == nil {
		return nil, errNothingToUpdate()
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(team).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, utils.Conflict("team name %q is already taken", *in.Name)
			}
			return nil, err
		}
	}
	return s.load(ctx, id)
}

// Delete removes a team and its memberships. Teams that still have projects cannot be deleted.
func (s *TeamService) Delete(ctx context.Context, p models.Principal, id uint) error {
	team, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !CanManageTeam(p, team) {
		return utils.Forbidden("you do not own this team")
	}

	var projects int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).Where("team_id = ?", id).Count(&projects).Error; err != nil {
		return err
	}
	if projects > 0 {
		return utils.DependencyConflict("team still has %d project(s)", projects)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(team).Error
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"team_id": id, "deleted_by": p.ID}).Info("team deleted")
	return nil
}

// Members lists the members of a team visible to p, oldest membership first.
func (s *TeamService) Members(ctx context.Context, p models.Principal, teamID uint) ([]models.MemberView, error) {
	if _, err := s.access.VisibleTeam(ctx, p, teamID); err != nil {
		return nil, err
	}

	var rows []models.TeamMember
	if err := s.db.WithContext(ctx).Where("team_id = ?", teamID).Order("joined_at, user_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	members := make([]models.MemberView, 0, len(rows))
	if len(rows) == 0 {
		return members, nil
	}

	ids := make([]uint, len(rows))
	for i, row := range rows {
		ids[i] = row.UserID
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	for _, row := range rows {
		u, ok := byID[row.UserID]
		if !ok {
			continue
		}
		members = append(members, memberView(u, row.JoinedAt))
	}
	return members, nil
}

// AddMember adds an employee to a team.
func (s *TeamService) AddMember(ctx context.Context, p models.Principal, teamID, userID uint) (*models.MemberView, error) {
	team, err := s.load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !CanManageTeam(p, team) {
		return nil, utils.Forbidden("you do not own this team")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	if user.Role != models.RoleEmployee {
		return nil, utils.Forbidden("only employees can be team members")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, utils.Conflict("user is already a member of this team")
	}

	member := models.TeamMember{TeamID: teamID, UserID: userID, JoinedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.Conflict("user is already a member of this team")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"team_id": teamID, "user_id": userID, "added_by": p.ID}).Info("team member added")
	view := memberView(user, member.JoinedAt)
	return &view, nil
}

func (s *TeamService) RemoveMember(ctx context.Context, p models.Principal, teamID, userID uint) error {
	team, err := s.load(ctx, teamID)
	if err != nil {
		return err
	}
	if !CanManageTeam(p, team) {
		return utils.Forbidden("you do not own this team")
	}

	res := s.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&models.TeamMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.NotFound("user is not a member of this team")
	}

	s.log.WithFields(logrus.Fields{"team_id": teamID, "user_id": userID, "removed_by": p.ID}).Info("team member removed")
	return nil
}

func (s *TeamService) load(ctx context.Context, id uint) (*models.Team, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, id).Error; err != nil {
		return nil, notFoundOr(err, "team not found")
	}
	return &team, nil
}

func (s *TeamService) ensureNameFree(ctx context.Context, name string, exceptID uint) error {
	var n int64
	q := s.db.WithContext(ctx).Model(&models.Team{}).Where("LOWER(name) = LOWER(?)", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return utils.Conflict("team name %q is already taken", name)
	}
	return nil
}

func memberView(u models.User, joinedAt time.Time) models.MemberView {
	return models.MemberView{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
		JoinedAt:  joinedAt,
	}
}
