// Package services holds the access rules and the CRUD operations behind the HTTP API.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"taskboard/models"
	"taskboard/utils"
)

// Access resolves which teams, projects and tasks a principal may see or change.
// It only reads; an empty result is never an error.
type Access struct {
	db *gorm.DB
}

func NewAccess(db *gorm.DB) *Access {
	return &Access{db: db}
}

// MemberTeamIDs returns the ids of the teams userID belongs to.
func (a *Access) MemberTeamIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := a.db.WithContext(ctx).
		Model(&models.TeamMember{}).
		Where("user_id = ?", userID).
		Order("team_id").
		Pluck("team_id", &ids).Error
	return ids, err
}

// VisibleProjects returns a fresh query over the projects p may see, narrowed to createdBy
// when given. ok is false when the visible set is known to be empty, in which case no query
// should be run.
func (a *Access) VisibleProjects(ctx context.Context, p models.Principal, createdBy *uint) (q *gorm.DB, ok bool, err error) {
	q = a.db.WithContext(ctx).Model(&models.Project{})

	switch p.Role {
	case models.RoleAdmin:
	case models.RoleManager:
		if createdBy != nil && *createdBy != p.ID {
			return nil, false, nil
		}
		q = q.Where("creator_id = ?", p.ID)
	case models.RoleEmployee:
		teamIDs, err := a.MemberTeamIDs(ctx, p.ID)
		if err != nil {
			return nil, false, err
		}
		if len(teamIDs) == 0 {
			return nil, false, nil
		}
		q = q.Where("team_id IN ?", teamIDs)
	default:
		return nil, false, nil
	}

	if createdBy != nil {
		q = q.Where("creator_id = ?", *createdBy)
	}
	return q, true, nil
}

// VisibleTasks returns a fresh query over the tasks whose project p may see.
func (a *Access) VisibleTasks(ctx context.Context, p models.Principal) (*gorm.DB, bool, error) {
	if p.Role == models.RoleAdmin {
		return a.db.WithContext(ctx).Model(&models.Task{}), true, nil
	}

	projects, ok, err := a.VisibleProjects(ctx, p, nil)
	if err != nil || !ok {
		return nil, ok, err
	}
	q := a.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("project_id IN (?)", projects.Select("id"))
	return q, true, nil
}

// VisibleTeams returns a fresh query over the teams p may see: every team for admins, the
// teams they created for managers and the teams they belong to for employees.
func (a *Access) VisibleTeams(ctx context.Context, p models.Principal) (*gorm.DB, bool, error) {
	q := a.db.WithContext(ctx).Model(&models.Team{})

	switch p.Role {
	case models.RoleAdmin:
		return q, true, nil
	case models.RoleManager:
		return q.Where("created_by = ?", p.ID), true, nil
	case models.RoleEmployee:
		teamIDs, err := a.MemberTeamIDs(ctx, p.ID)
		if err != nil {
			return nil, false, err
		}
		if len(teamIDs) == 0 {
			return nil, false, nil
		}
		return q.Where("id IN ?", teamIDs), true, nil
	default:
		return nil, false, nil
	}
}

// CanSeeProject reports whether project id is visible to p.
func (a *Access) CanSeeProject(ctx context.Context, p models.Principal, id uint) (bool, error) {
	q, ok, err := a.VisibleProjects(ctx, p, nil)
	if err != nil || !ok {
		return false, err
	}
	var n int64
	if err := q.Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// VisibleProject loads project id, reporting NotFound when it is missing or hidden from p.
func (a *Access) VisibleProject(ctx context.Context, p models.Principal, id uint) (*models.Project, error) {
	q, ok, err := a.VisibleProjects(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, utils.NotFound("project not found")
	}

	var project models.Project
	if err := q.Where("id = ?", id).First(&project).Error; err != nil {
		return nil, notFoundOr(err, "project not found")
	}
	return &project, nil
}

// VisibleTask loads task id, reporting NotFound when it is missing or hidden from p.
func (a *Access) VisibleTask(ctx context.Context, p models.Principal, id uint) (*models.Task, error) {
	q, ok, err := a.VisibleTasks(ctx, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, utils.NotFound("task not found")
	}

	var task models.Task
	if err := q.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, notFoundOr(err, "task not found")
	}
	return &task, nil
}

// VisibleTeam loads team id, reporting NotFound when it is missing or hidden from p.
func (a *Access) VisibleTeam(ctx context.Context, p models.Principal, id uint) (*models.Team, error) {
	q, ok, err := a.VisibleTeams(ctx, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, utils.NotFound("team not found")
	}

	var team models.Team
	if err := q.Where("id = ?", id).First(&team).Error; err != nil {
		return nil, notFoundOr(err, "team not found")
	}
	return &team, nil
}

// CanManageTeam: admins, and the manager who created the team.
func CanManageTeam(p models.Principal, team *models.Team) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager:
		return team.CreatedBy == p.ID
	case models.RoleEmployee:
		return false
	default:
		return false
	}
}

// CanMutateProject: admins, and the manager who created the project.
func CanMutateProject(p models.Principal, project *models.Project) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager:
		return project.CreatorID == p.ID
	case models.RoleEmployee:
		return false
	default:
		return false
	}
}

// CanMutateTask: admins, the task's creator, and the manager who created the task's project.
// Callers load the task through VisibleTask first, so a task p cannot read is never mutable.
func (a *Access) CanMutateTask(ctx context.Context, p models.Principal, task *models.Task) (bool, error) {
	switch p.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleEmployee:
		return task.CreatorID == p.ID, nil
	case models.RoleManager:
		if task.CreatorID == p.ID {
			return true, nil
		}
		var project models.Project
		if err := a.db.WithContext(ctx).First(&project, task.ProjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		return project.CreatorID == p.ID, nil
	default:
		return false, nil
	}
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func notFoundOr(err error, msg string) error {
	if notFound(err) {
		return utils.NotFound(msg)
	}
	return err
}
