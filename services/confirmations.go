package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskboard/models"
	"taskboard/utils"
)

const defaultConfirmTokenTTL = 24 * time.Hour

// confirmations issues email confirmation tokens and mails them out.
type confirmations struct {
	db     *gorm.DB
	mailer utils.Mailer
	ttl    time.Duration
	now    func() time.Time
	log    *logrus.Entry
}

func newConfirmations(db *gorm.DB, mailer utils.Mailer, ttl time.Duration, log *logrus.Entry) *confirmations {
	if ttl <= 0 {
		ttl = defaultConfirmTokenTTL
	}
	return &confirmations{db: db, mailer: mailer, ttl: ttl, now: time.Now, log: log}
}

// issue replaces any pending token of the user with a fresh one. It runs on tx so callers can
// create the user and its token atomically.
func (c *confirmations) issue(tx *gorm.DB, userID uint) (*models.EmailConfirmation, error) {
	if err := tx.Where("user_id = ?", userID).Delete(&models.EmailConfirmation{}).Error; err != nil {
		return nil, err
	}
	conf := models.EmailConfirmation{
		UserID:    userID,
		Token:     utils.GenerateConfirmationToken(),
		ExpiresAt: c.now().Add(c.ttl).UTC(),
	}
	if err := tx.Create(&conf).Error; err != nil {
		return nil, err
	}
	return &conf, nil
}

// send mails the token. Delivery failures are logged and never fail the request; the user can
// get a new token by logging in again.
func (c *confirmations) send(user *models.User, token string) {
	if err := c.mailer.SendConfirmation(user.Email, user.Username, token); err != nil {
		c.log.WithError(err).WithField("user_id", user.ID).Error("failed to send confirmation email")
	}
}

// reissue creates a new token for user and mails it.
func (c *confirmations) reissue(ctx context.Context, user *models.User) error {
	conf, err := c.issue(c.db.WithContext(ctx), user.ID)
	if err != nil {
		return err
	}
	c.send(user, conf.Token)
	return nil
}
