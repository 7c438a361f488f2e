package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mkhedmin/mkhedmin-api/internal/models"
)

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users { return &Users{db: db} }

func (s *Users) Create(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error)
}

func (s *Users) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Users) Save(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations, "created_at").Save(u).Error)
}

func (s *Users) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return translate(s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).Error)
}

// SoftDelete removes the user's profile and its leads, then deactivates the account
// and scrambles its email, all in one transaction.
func (s *Users) SoftDelete(ctx context.Context, u *models.User, now time.Time) error {
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f models.Freelancer
		err := tx.Select("id").Where("user_id = ?", u.ID).First(&f).Error
		switch {
		case err == nil:
			if err := tx.Where("freelancer_id = ?", f.ID).Delete(&models.Lead{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Freelancer{}, "id = ?", f.ID).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		u.Deactivate(now)
		return tx.Model(&models.User{}).Where("id = ?", u.ID).Updates(map[string]any{
			"is_active": false,
			"email":     u.Email,
		}).Error
	}))
}
