package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/model"
	"gorm.io/gorm"
)

// UserRepository handles database operations for User
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return r.db.Create(user).Error
}

// FindByID finds a user by UUID
func (r *UserRepository) FindByID(id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByName finds a user by display name (the login key)
func (r *UserRepository) FindByName(name string) (*model.User, error) {
	var user model.User
	err := r.db.Where("name = ?", name).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListOtherIDs returns the IDs of every user except the given one
func (r *UserRepository) ListOtherIDs(excludeID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&model.User{}).
		Where("id <> ?", excludeID).
		Pluck("id", &ids).Error
	return ids, err
}

// ListWithoutDirectConversation returns users who do not yet share a
// one-on-one conversation with the given user, checking membership in
// either order so A/B and B/A count as the same pair.
func (r *UserRepository) ListWithoutDirectConversation(userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Raw(`
		SELECT u.id FROM users u
		WHERE u.id <> ?
		AND NOT EXISTS (
			SELECT 1
			FROM conversation_members m1
			JOIN conversation_members m2 ON m1.conversation_id = m2.conversation_id
			JOIN conversations c ON m1.conversation_id = c.id
			WHERE NOT c.is_group
			  AND ((m1.user_id = ? AND m2.user_id = u.id) OR (m1.user_id = u.id AND m2.user_id = ?))
		)`, userID, userID, userID).Scan(&ids).Error
	return ids, err
}

// UpdateProfilePic sets a user's profile picture path
func (r *UserRepository) UpdateProfilePic(id uuid.UUID, path string) error {
	return r.db.Model(&model.User{}).
		Where("id = ?", id).
		Update("profile_pic", path).Error
}

// SetPresence updates a user's presence status and last-seen timestamp
func (r *UserRepository) SetPresence(id uuid.UUID, status model.PresenceStatus) error {
	return r.db.Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    status,
			"last_seen": time.Now(),
		}).Error
}
