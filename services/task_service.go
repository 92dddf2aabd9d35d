package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskboard/models"
	"taskboard/utils"
)

type CreateTaskInput struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	ProjectID   uint    `json:"project_id" validate:"required"`
	Status      string  `json:"status" validate:"omitempty,oneof=open in_development in_test closed"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *string `json:"due_date" validate:"omitempty,isodate"`
	AssigneeID  *uint   `json:"assignee_id" validate:"omitempty,gt=0"`
	// Tags is a comma separated list of tag names; unknown names are created.
	Tags   string `json:"tags" validate:"max=500"`
	TagIDs []uint `json:"tag_ids"`
}

type UpdateTaskInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Status      *string `json:"status" validate:"omitempty,oneof=open in_development in_test closed"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *string `json:"due_date" validate:"omitempty,isodate"`
	// Tags replaces the task's tag set when present.
	Tags *string `json:"tags" validate:"omitempty,max=500"`
}

type TaskFilter struct {
	ProjectID  *uint
	AssigneeID *uint
	Status     string
	Priority   string
}

// AddTagsResult reports which tags were attached. Added is empty when every requested tag was
// already on the task.
type AddTagsResult struct {
	Added []uint       `json:"added"`
	Task  *models.Task `json:"task"`
}

type TaskService struct {
	db     *gorm.DB
	access *Access
	log    *logrus.Entry
}

func NewTaskService(db *gorm.DB, access *Access, log *logrus.Entry) *TaskService {
	return &TaskService{db: db, access: access, log: log}
}

func (s *TaskService) List(ctx context.Context, p models.Principal, f TaskFilter) ([]models.Task, error) {
	tasks := []models.Task{}
	var details []utils.FieldError
	if f.Status != "" && !models.TaskStatus(f.Status).Valid() {
		details = append(details, utils.FieldError{Field: "status", Message: "status must be one of: open, in_development, in_test, closed"})
	}
	if f.Priority != "" && !models.TaskPriority(f.Priority).Valid() {
		details = append(details, utils.FieldError{Field: "priority", Message: "priority must be one of: low, medium, high"})
	}
	if len(details) > 0 {
		return nil, utils.Invalid(details...)
	}

	q, ok, err := s.access.VisibleTasks(ctx, p)
	if err != nil || !ok {
		return tasks, err
	}
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *f.AssigneeID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if err := q.Order("id").Find(&tasks).Error; err != nil {
		return nil, err
	}
	if err := loadTags(s.db.WithContext(ctx), tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, p models.Principal, id uint) (*models.Task, error) {
	task, err := s.access.VisibleTask(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.withTags(ctx, task)
}

func (s *TaskService) Create(ctx context.Context, p models.Principal, in CreateTaskInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	dueDate, err := utils.ParseOptionalDate(in.DueDate)
	if err != nil {
		return nil, utils.Invalid(utils.FieldError{Field: "due_date", Message: "due_date must be an ISO 8601 date"})
	}
	names, err := parseTagNames(in.Tags)
	if err != nil {
		return nil, err
	}

	if _, err := s.access.VisibleProject(ctx, p, in.ProjectID); err != nil {
		return nil, err
	}
	if in.AssigneeID != nil {
		if !p.IsStaff() {
			return nil, utils.Forbidden("only managers and admins can assign tasks")
		}
		if err := s.ensureUser(ctx, *in.AssigneeID); err != nil {
			return nil, err
		}
	}

	task := models.Task{
		Title:       in.Title,
		Description: in.Description,
		ProjectID:   in.ProjectID,
		Status:      models.TaskOpen,
		Priority:    models.PriorityMedium,
		DueDate:     dueDate,
		CreatorID:   p.ID,
		AssigneeID:  in.AssigneeID,
	}
	if in.Status != "" {
		task.Status = models.TaskStatus(in.Status)
	}
	if in.Priority != "" {
		task.Priority = models.TaskPriority(in.Priority)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		tagIDs, err := resolveTagNames(tx, names)
		if err != nil {
			return err
		}
		if extra := utils.UniqueIDs(in.TagIDs); len(extra) > 0 {
			if err := ensureTagsExist(tx, extra); err != nil {
				return err
			}
			tagIDs = append(tagIDs, extra...)
		}
		return attachTags(tx, task.ID, utils.UniqueIDs(tagIDs))
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"task_id": task.ID, "project_id": task.ProjectID, "creator_id": p.ID}).Info("task created")
	return s.withTags(ctx, &task)
}

// Update applies a partial update. Status changes must follow the task state machine. The
// assignee of a task may change its status and nothing else.
func (s *TaskService) Update(ctx context.Context, p models.Principal, id uint, in UpdateTaskInput) (*models.Task, error) {
	task, err := s.access.VisibleTask(ctx, p, id)
	if err != nil {
		return nil, err
	}

	canMutate, err := s.access.CanMutateTask(ctx, p, task)
	if err != nil {
		return nil, err
	}
	if !canMutate {
		isAssignee := task.AssigneeID != nil && *task.AssigneeID == p.ID
		statusOnly := in.Status != nil && in.Title == nil && in.Description == nil &&
			in.Priority == nil && in.DueDate == nil && in.Tags == nil
		if !isAssignee || !statusOnly {
			return nil, utils.Forbidden("you cannot modify this task")
		}
	}

	in.Title = trimPtr(in.Title)
	if err := notBlank(field("title", in.Title), field("status", in.Status), field("priority", in.Priority)); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	var names []string
	if in.Tags != nil {
		if names, err = parseTagNames(*in.Tags); err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Priority != nil {
		updates["priority"] = *in.Priority
	}
	if in.DueDate != nil {
		due, err := utils.ParseOptionalDate(in.DueDate)
		if err != nil {
			return nil, utils.Invalid(utils.FieldError{Field: "due_date", Message: "due_date must be an ISO 8601 date"})
		}
		updates["due_date"] = due
	}
	if in.Status != nil {
		next := models.TaskStatus(*in.Status)
		if !task.Status.CanTransitionTo(next) {
			return nil, utils.Conflict("cannot move task from %s to %s", task.Status, next)
		}
		if next != task.Status {
			updates["status"] = next
		}
	}
	if len(updates) == 0 && in.Status == nil && in.Tags == nil {
		return nil, errNothingToUpdate()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(task).Updates(updates).Error; err != nil {
				return err
			}
		}
		if in.Tags == nil {
			return nil
		}
		tagIDs, err := resolveTagNames(tx, names)
		if err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskTag{}).Error; err != nil {
			return err
		}
		return attachTags(tx, task.ID, utils.UniqueIDs(tagIDs))
	})
	if err != nil {
		return nil, err
	}

	task, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withTags(ctx, task)
}

func (s *TaskService) Delete(ctx context.Context, p models.Principal, id uint) error {
	task, err := s.access.VisibleTask(ctx, p, id)
	if err != nil {
		return err
	}
	ok, err := s.access.CanMutateTask(ctx, p, task)
	if err != nil {
		return err
	}
	if !ok {
		return utils.Forbidden("you cannot delete this task")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(task).Error
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"task_id": id, "deleted_by": p.ID}).Info("task deleted")
	return nil
}

// GetAssignee returns the task's assignee, or nil when it has none.
func (s *TaskService) GetAssignee(ctx context.Context, p models.Principal, taskID uint) (*models.User, error) {
	task, err := s.assigneeTask(ctx, p, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID == nil {
		return nil, nil
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, *task.AssigneeID).Error; err != nil {
		return nil, notFoundOr(err, "assignee not found")
	}
	return &user, nil
}

func (s *TaskService) SetAssignee(ctx context.Context, p models.Principal, taskID, userID uint) (*models.Task, error) {
	task, err := s.assigneeTask(ctx, p, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(task).Update("assignee_id", userID).Error; err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"task_id": taskID, "assignee_id": userID, "assigned_by": p.ID}).Info("task assigned")
	task, err = s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.withTags(ctx, task)
}

func (s *TaskService) ClearAssignee(ctx context.Context, p models.Principal, taskID uint) (*models.Task, error) {
	task, err := s.assigneeTask(ctx, p, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(task).Update("assignee_id", nil).Error; err != nil {
		return nil, err
	}

	task, err = s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.withTags(ctx, task)
}

// AddTags attaches a batch of existing tags, skipping the ones already attached.
func (s *TaskService) AddTags(ctx context.Context, p models.Principal, taskID uint, tagIDs []uint) (*AddTagsResult, error) {
	task, err := s.mutableTask(ctx, p, taskID)
	if err != nil {
		return nil, err
	}
	ids := utils.UniqueIDs(tagIDs)
	if len(ids) == 0 {
		return nil, utils.Invalid(utils.FieldError{Field: "tag_ids", Message: "tag_ids must contain at least one tag id"})
	}

	added := []uint{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureTagsExist(tx, ids); err != nil {
			return err
		}
		var attached []uint
		if err := tx.Model(&models.TaskTag{}).Where("task_id = ? AND tag_id IN ?", taskID, ids).Pluck("tag_id", &attached).Error; err != nil {
			return err
		}
		skip := make(map[uint]struct{}, len(attached))
		for _, id := range attached {
			skip[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := skip[id]; !ok {
				added = append(added, id)
			}
		}
		return attachTags(tx, taskID, added)
	})
	if err != nil {
		return nil, err
	}

	if len(added) > 0 {
		s.log.WithFields(logrus.Fields{"task_id": taskID, "tag_ids": added}).Info("tags attached")
	}
	task, err = s.withTags(ctx, task)
	if err != nil {
		return nil, err
	}
	return &AddTagsResult{Added: added, Task: task}, nil
}

func (s *TaskService) RemoveTag(ctx context.Context, p models.Principal, taskID, tagID uint) error {
	if _, err := s.mutableTask(ctx, p, taskID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("task_id = ? AND tag_id = ?", taskID, tagID).Delete(&models.TaskTag{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.InvalidRequest("tag %d is not attached to task %d", tagID, taskID)
	}
	return nil
}

func (s *TaskService) assigneeTask(ctx context.Context, p models.Principal, taskID uint) (*models.Task, error) {
	if !p.IsStaff() {
		return nil, utils.Forbidden("only managers and admins can manage assignees")
	}
	return s.access.VisibleTask(ctx, p, taskID)
}

// mutableTask loads a task p can see and may modify. Hidden tasks are reported as missing.
func (s *TaskService) mutableTask(ctx context.Context, p models.Principal, taskID uint) (*models.Task, error) {
	task, err := s.access.VisibleTask(ctx, p, taskID)
	if err != nil {
		return nil, err
	}
	ok, err := s.access.CanMutateTask(ctx, p, task)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, utils.Forbidden("you cannot modify this task")
	}
	return task, nil
}

func (s *TaskService) ensureUser(ctx context.Context, id uint) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return utils.NotFound("user %d not found", id)
	}
	return nil
}

func (s *TaskService) load(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, notFoundOr(err, "task not found")
	}
	return &task, nil
}

func (s *TaskService) withTags(ctx context.Context, task *models.Task) (*models.Task, error) {
	tasks := []models.Task{*task}
	if err := loadTags(s.db.WithContext(ctx), tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}
