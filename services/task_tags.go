package services

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
	"taskboard/models"
	"taskboard/utils"
)

// loadTags fills Tags on every task through the task_tags join table.
func loadTags(db *gorm.DB, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	taskIDs := make([]uint, len(tasks))
	for i := range tasks {
		taskIDs[i] = tasks[i].ID
		tasks[i].Tags = []models.Tag{}
	}

	var links []models.TaskTag
	if err := db.Where("task_id IN ?", taskIDs).Find(&links).Error; err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}

	tagIDs := make([]uint, 0, len(links))
	for _, l := range links {
		tagIDs = append(tagIDs, l.TagID)
	}
	var tags []models.Tag
	if err := db.Where("id IN ?", utils.UniqueIDs(tagIDs)).Find(&tags).Error; err != nil {
		return err
	}
	byID := make(map[uint]models.Tag, len(tags))
	for _, t := range tags {
		byID[t.ID] = t
	}

	index := make(map[uint]int, len(tasks))
	for i := range tasks {
		index[tasks[i].ID] = i
	}
	for _, l := range links {
		tag, ok := byID[l.TagID]
		if !ok {
			continue
		}
		i := index[l.TaskID]
		tasks[i].Tags = append(tasks[i].Tags, tag)
	}
	for i := range tasks {
		sort.Slice(tasks[i].Tags, func(a, b int) bool { return tasks[i].Tags[a].ID < tasks[i].Tags[b].ID })
	}
	return nil
}

// maxTagName mirrors the name rule on CreateTagInput and the tags.name column.
const maxTagName = 50

// parseTagNames normalizes a comma separated tag list and checks every name against the tag
// name length limit.
func parseTagNames(csv string) ([]string, error) {
	names := utils.NormalizeTags(csv)
	for _, name := range names {
		if utf8.RuneCountInString(name) > maxTagName {
			return nil, utils.Invalid(utils.FieldError{
				Field:   "tags",
				Message: fmt.Sprintf("each tag must be at most %d characters", maxTagName),
			})
		}
	}
	return names, nil
}

// resolveTagNames finds tags by case-insensitive name, creating the missing ones with the
// default color.
func resolveTagNames(tx *gorm.DB, names []string) ([]uint, error) {
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		var tag models.Tag
		err := tx.Where("LOWER(name) = ?", strings.ToLower(name)).First(&tag).Error
		switch {
		case err == nil:
		case notFound(err):
			tag = models.Tag{Name: name, Color: models.DefaultTagColor}
			if err := tx.Create(&tag).Error; err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

func ensureTagsExist(tx *gorm.DB, ids []uint) error {
	var found []uint
	if err := tx.Model(&models.Tag{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}
	have := make(map[uint]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			return utils.NotFound("tag %d not found", id)
		}
	}
	return nil
}

func attachTags(tx *gorm.DB, taskID uint, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]models.TaskTag, len(tagIDs))
	for i, id := range tagIDs {
		links[i] = models.TaskTag{TaskID: taskID, TagID: id}
	}
	return tx.Create(&links).Error
}
