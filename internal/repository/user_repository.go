package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskboard/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByTelegramChat(ctx context.Context, chatID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_chat_id = ?", chatID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListWithTelegram returns users that linked a chat for digests.
func (r *UserRepository) ListWithTelegram(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("telegram_chat_id IS NOT NULL").Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SetTelegramChat links (or with nil, unlinks) a chat. A chat is bound to at most
// one user, so any previous holder of chatID is unlinked first.
func (r *UserRepository) SetTelegramChat(ctx context.Context, userID uint, chatID *int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if chatID != nil {
			if err := tx.Model(&model.User{}).Where("telegram_chat_id = ? AND id <> ?", *chatID, userID).
				Update("telegram_chat_id", nil).Error; err != nil {
				return fmt.Errorf("release chat: %w", err)
			}
		}
		res := tx.Model(&model.User{}).Where("id = ?", userID).Update("telegram_chat_id", chatID)
		if res.Error != nil {
			return fmt.Errorf("set chat: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
