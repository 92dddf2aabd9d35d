package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskboard/models"
	"taskboard/utils"
)

type CreateEventInput struct {
	Title       string `json:"title" validate:"required,min=1,max=150"`
	Description string `json:"description" validate:"max=2000"`
	EventDate   string `json:"event_date" validate:"required,datetime=2006-01-02"`
	EventTime   string `json:"event_time" validate:"omitempty,datetime=15:04"`
	Color       string `json:"color" validate:"omitempty,hexcolor,max=7"`
}

type UpdateEventInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=150"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	EventDate   *string `json:"event_date" validate:"omitempty,datetime=2006-01-02"`
	EventTime   *string `json:"event_time" validate:"omitempty,datetime=15:04"`
	Color       *string `json:"color" validate:"omitempty,hexcolor,max=7"`
}

// EventRange bounds an event listing by inclusive YYYY-MM-DD dates. Empty means unbounded.
type EventRange struct {
	From string `validate:"omitempty,datetime=2006-01-02" json:"from"`
	To   string `validate:"omitempty,datetime=2006-01-02" json:"to"`
}

// EventService manages calendar events. Events are private to their owner.
type EventService struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewEventService(db *gorm.DB, log *logrus.Entry) *EventService {
	return &EventService{db: db, log: log}
}

func (s *EventService) List(ctx context.Context, p models.Principal, r EventRange) ([]models.Event, error) {
	if err := utils.ValidateStruct(r); err != nil {
		return nil, err
	}

	events := []models.Event{}
	q := s.db.WithContext(ctx).Where("user_id = ?", p.ID)
	// Dates are stored as YYYY-MM-DD so lexical comparison is chronological.
	if r.From != "" {
		q = q.Where("event_date >= ?", r.From)
	}
	if r.To != "" {
		q = q.Where("event_date <= ?", r.To)
	}
	if err := q.Order("event_date, event_time, id").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (s *EventService) Create(ctx context.Context, p models.Principal, in CreateEventInput) (*models.Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	event := models.Event{
		UserID:      p.ID,
		Title:       in.Title,
		Description: in.Description,
		EventDate:   in.EventDate,
		EventTime:   in.EventTime,
		Color:       in.Color,
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"event_id": event.ID, "user_id": p.ID}).Debug("event created")
	return &event, nil
}

func (s *EventService) Update(ctx context.Context, p models.Principal, id uint, in UpdateEventInput) (*models.Event, error) {
	event, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	in.Title = trimPtr(in.Title)
	if err := notBlank(field("title", in.Title), field("event_date", in.EventDate)); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.EventDate != nil {
		updates["event_date"] = *in.EventDate
	}
	if in.EventTime != nil {
		updates["event_time"] = *in.EventTime
	}
	if in.Color != nil {
		updates["color"] = *in.Color
	}
	if len(updates) == 0 {
		return nil, errNothingToUpdate()
	}

	if err := s.db.WithContext(ctx).Model(event).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.owned(ctx, p, id)
}

func (s *EventService) Delete(ctx context.Context, p models.Principal, id uint) error {
	event, err := s.owned(ctx, p, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(event).Error
}

func (s *EventService) owned(ctx context.Context, p models.Principal, id uint) (*models.Event, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, notFoundOr(err, "event not found")
	}
	if event.UserID != p.ID {
		return nil, utils.Forbidden("this event belongs to another user")
	}
	return &event, nil
}
