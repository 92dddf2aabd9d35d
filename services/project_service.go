package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskboard/models"
	"taskboard/utils"
)

type CreateProjectInput struct {
	Name        string  `json:"name" validate:"required,min=2,max=150"`
	Description string  `json:"description" validate:"max=2000"`
	TeamID      uint    `json:"team_id" validate:"required"`
	Status      string  `json:"status" validate:"omitempty,oneof=active archived"`
	Deadline    *string `json:"deadline" validate:"omitempty,isodate"`
}

type UpdateProjectInput struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=150"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	TeamID      *uint   `json:"team_id" validate:"omitempty,gt=0"`
	Status      *string `json:"status" validate:"omitempty,oneof=active archived"`
	Deadline    *string `json:"deadline" validate:"omitempty,isodate"`
}

// ProjectFilter narrows a project listing. CreatedBy is always intersected with what the
// caller can see.
type ProjectFilter struct {
	CreatedBy *uint
	TeamID    *uint
	Status    string
}

type ProjectService struct {
	db     *gorm.DB
	access *Access
	log    *logrus.Entry
}

func NewProjectService(db *gorm.DB, access *Access, log *logrus.Entry) *ProjectService {
	return &ProjectService{db: db, access: access, log: log}
}

func (s *ProjectService) List(ctx context.Context, p models.Principal, f ProjectFilter) ([]models.Project, error) {
	projects := []models.Project{}
	if f.Status != "" && !models.ProjectStatus(f.Status).Valid() {
		return nil, utils.Invalid(utils.FieldError{Field: "status", Message: "status must be one of: active, archived"})
	}

	q, ok, err := s.access.VisibleProjects(ctx, p, f.CreatedBy)
	if err != nil || !ok {
		return projects, err
	}
	if f.TeamID != nil {
		q = q.Where("team_id = ?", *f.TeamID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if err := q.Order("id").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *ProjectService) Get(ctx context.Context, p models.Principal, id uint) (*models.Project, error) {
	return s.access.VisibleProject(ctx, p, id)
}

func (s *ProjectService) Create(ctx context.Context, p models.Principal, in CreateProjectInput) (*models.Project, error) {
	if !p.IsStaff() {
		return nil, utils.Forbidden("only managers and admins can create projects")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	deadline, err := utils.ParseOptionalDate(in.Deadline)
	if err != nil {
		return nil, utils.Invalid(utils.FieldError{Field: "deadline", Message: "deadline must be an ISO 8601 date"})
	}
	if err := s.checkTeam(ctx, p, in.TeamID); err != nil {
		return nil, err
	}

	project := models.Project{
		Name:        in.Name,
		Description: in.Description,
		TeamID:      in.TeamID,
		Status:      models.ProjectActive,
		Deadline:    deadline,
		CreatorID:   p.ID,
	}
	if in.Status != "" {
		project.Status = models.ProjectStatus(in.Status)
	}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"project_id": project.ID, "team_id": project.TeamID, "creator_id": p.ID}).Info("project created")
	return &project, nil
}

func (s *ProjectService) Update(ctx context.Context, p models.Principal, id uint, in UpdateProjectInput) (*models.Project, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanMutateProject(p, project) {
		return nil, utils.Forbidden("you do not own this project")
	}

	in.Name = trimPtr(in.Name)
	if err := notBlank(field("name", in.Name), field("status", in.Status)); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if in.Deadline != nil {
		deadline, err := utils.ParseOptionalDate(in.Deadline)
		if err != nil {
			return nil, utils.Invalid(utils.FieldError{Field: "deadline", Message: "deadline must be an ISO 8601 date"})
		}
		updates["deadline"] = deadline
	}
	if in.TeamID != nil && *in.TeamID != project.TeamID {
		if err := s.checkTeam(ctx, p, *in.TeamID); err != nil {
			return nil, err
		}
		updates["team_id"] = *in.TeamID
	}
	if len(updates) == 0 && in.TeamID == nil {
		return nil, errNothingToUpdate()
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.load(ctx, id)
}

// Delete removes a project. Projects that still have tasks cannot be deleted.
func (s *ProjectService) Delete(ctx context.Context, p models.Principal, id uint) error {
	project, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !CanMutateProject(p, project) {
		return utils.Forbidden("you do not own this project")
	}

	var tasks int64
	if err := s.db.WithContext(ctx).Model(&models.Task{}).Where("project_id = ?", id).Count(&tasks).Error; err != nil {
		return err
	}
	if tasks > 0 {
		return utils.DependencyConflict("project still has %d task(s)", tasks)
	}

	if err := s.db.WithContext(ctx).Delete(project).Error; err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"project_id": id, "deleted_by": p.ID}).Info("project deleted")
	return nil
}

// checkTeam resolves the team a project is attached to. Managers may only use teams they own.
func (s *ProjectService) checkTeam(ctx context.Context, p models.Principal, teamID uint) error {
	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, teamID).Error; err != nil {
		return notFoundOr(err, "team not found")
	}
	if !CanManageTeam(p, &team) {
		return utils.Forbidden("you can only create projects for teams you own")
	}
	return nil
}

func (s *ProjectService) load(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, notFoundOr(err, "project not found")
	}
	return &project, nil
}
