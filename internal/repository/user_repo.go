package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/quocanhngo/chatcore/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository reads the user directory and manages push devices.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. Only the seeder writes to the directory.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(user).Error, "userRepo.Create")
}

// FindByID finds a user by UUID
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, errors.Wrap(err, "userRepo.FindByID")
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, errors.Wrap(err, "userRepo.FindByEmail")
	}
	return &user, nil
}

// FindByIDs loads the given users keyed by id. Unknown ids are absent.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.User, error) {
	users := []model.User{}
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, errors.Wrap(err, "userRepo.FindByIDs")
		}
	}

	byID := make(map[uuid.UUID]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

// AddDevice adds or updates a device token
func (r *UserRepository) AddDevice(ctx context.Context, userID uuid.UUID, token string, deviceType string) error {
	now := time.Now()
	device := model.UserDevice{
		UserID:       userID,
		FCMToken:     token,
		DeviceType:   deviceType,
		LastActiveAt: now,
	}
	// Upsert: on conflict do update
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "fcm_token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_active_at": now,
			"device_type":    deviceType,
		}),
	}).Create(&device).Error
	return errors.Wrap(err, "userRepo.AddDevice")
}

// GetUserDevices gets all devices for a user
func (r *UserRepository) GetUserDevices(ctx context.Context, userID uuid.UUID) ([]model.UserDevice, error) {
	var devices []model.UserDevice
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&devices).Error
	return devices, errors.Wrap(err, "userRepo.GetUserDevices")
}
