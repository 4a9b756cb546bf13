package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository handles database operations for UserDevice
type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert adds or refreshes a device token
func (r *DeviceRepository) Upsert(userID uuid.UUID, token string, deviceType string) error {
	device := model.UserDevice{
		ID:           uuid.New(),
		UserID:       userID,
		FCMToken:     token,
		DeviceType:   deviceType,
		LastActiveAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "fcm_token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_active_at": time.Now(),
			"device_type":    deviceType,
		}),
	}).Create(&device).Error
}

// ListByUser gets all devices for a user
func (r *DeviceRepository) ListByUser(userID uuid.UUID) ([]model.UserDevice, error) {
	var devices []model.UserDevice
	err := r.db.Where("user_id = ?", userID).Find(&devices).Error
	return devices, err
}
