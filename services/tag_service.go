package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskboard/models"
	"taskboard/utils"
)

type CreateTagInput struct {
	Name  string `json:"name" validate:"required,min=1,max=50"`
	Color string `json:"color" validate:"required,hexcolor,max=7"`
}

type UpdateTagInput struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=50"`
	Color *string `json:"color" validate:"omitempty,hexcolor,max=7"`
}

type TagService struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewTagService(db *gorm.DB, log *logrus.Entry) *TagService {
	return &TagService{db: db, log: log}
}

func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// Create adds a tag. Any authenticated user may create tags.
func (s *TagService) Create(ctx context.Context, p models.Principal, in CreateTagInput) (*models.Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, in.Name, 0); err != nil {
		return nil, err
	}

	tag := models.Tag{Name: in.Name, Color: in.Color}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.Conflict("tag %q already exists", in.Name)
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"tag_id": tag.ID, "created_by": p.ID}).Info("tag created")
	return &tag, nil
}

func (s *TagService) Update(ctx context.Context, p models.Principal, id uint, in UpdateTagInput) (*models.Tag, error) {
	tag, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsStaff() {
		return nil, utils.Forbidden("only managers and admins can edit tags")
	}

	in.Name = trimPtr(in.Name)
	if err := notBlank(field("name", in.Name), field("color", in.Color)); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil && *in.Name != tag.Name {
		if err := s.ensureNameFree(ctx, *in.Name, tag.ID); err != nil {
			return nil, err
		}
		updates["name"] = *in.Name
	}
	if in.Color != nil {
		updates["color"] = *in.Color
	}
	if len(updates) == 0 && in.Name == nil {
		return nil, errNothingToUpdate()
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(tag).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, utils.Conflict("tag %q already exists", *in.Name)
			}
			return nil, err
		}
	}
	return s.load(ctx, id)
}

// Delete removes the tag and detaches it from every task.
func (s *TagService) Delete(ctx context.Context, p models.Principal, id uint) error {
	tag, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsStaff() {
		return utils.Forbidden("only managers and admins can delete tags")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&models.TaskTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(tag).Error
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"tag_id": id, "deleted_by": p.ID}).Info("tag deleted")
	return nil
}

func (s *TagService) load(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, notFoundOr(err, "tag not found")
	}
	return &tag, nil
}

func (s *TagService) ensureNameFree(ctx context.Context, name string, exceptID uint) error {
	var n int64
	q := s.db.WithContext(ctx).Model(&models.Tag{}).Where("LOWER(name) = LOWER(?)", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return utils.Conflict("tag %q already exists", name)
	}
	return nil
}
