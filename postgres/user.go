package postgres

import (
	"context"
	"errors"
	"time"

	"cinerate/pkg/paging"
	"cinerate/user"

	"gorm.io/gorm"
)

// UserModel represents the database model for users
type UserModel struct {
	ID           string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username     string    `gorm:"not null"`
	Email        string    `gorm:"not null;uniqueIndex:users_email_key"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null;default:user"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// UserRepository implements user.Repository interface
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	model := toModelUser(u)
	model.ID = ""
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return user.User{}, mapUserWriteError(err)
	}
	return toDomainUser(model), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return r.first(ctx, "lower(username) = lower(?)", username)
}

func (r *UserRepository) List(ctx context.Context, p paging.Params) ([]user.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&UserModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []UserModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id").
		Offset(p.Offset()).
		Limit(p.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	users := make([]user.User, len(models))
	for i, model := range models {
		users[i] = toDomainUser(model)
	}
	return users, total, nil
}

// Update writes username and email.
func (r *UserRepository) Update(ctx context.Context, u user.User) (user.User, error) {
	result := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
		"username":   u.Username,
		"email":      u.Email,
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return user.User{}, mapUserWriteError(result.Error)
	}
	if result.RowsAffected == 0 {
		return user.User{}, user.ErrNotFound
	}
	return r.GetByID(ctx, u.ID)
}

// UpdatePasswordHash updates user's password hash.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	result := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Delete removes the user. Ratings and list entries go with it through FK cascades.
// Delete removes the user; ratings and list entries go with it through the
// foreign key cascade. The rated movie ids are read in the same transaction.
func (r *UserRepository) Delete(ctx context.Context, id string) ([]int64, error) {
	var rated []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&RatingModel{}).
			Where("user_id = ?", id).
			Order("movie_id").
			Pluck("movie_id", &rated).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&UserModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return user.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rated, nil
}

func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (user.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return toDomainUser(model), nil
}

func toDomainUser(model UserModel) user.User {
	return user.User{
		ID:           model.ID,
		Username:     model.Username,
		Email:        model.Email,
		PasswordHash: model.PasswordHash,
		Role:         user.Role(model.Role),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toModelUser(u user.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
	}
}

func mapUserWriteError(err error) error {
	switch {
	case isUniqueViolation(err, "users_email_key"):
		return user.ErrEmailTaken
	case isUniqueViolation(err, "users_username_key"):
		return user.ErrUsernameTaken
	default:
		return err
	}
}
