package services

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pulse-board/backend/internal/models"
)

// ProfileInput mirrors what the identity provider pushes on login:
// id, display name, email and avatar. Area and role are set once at first
// sync and managed locally afterwards.
type ProfileInput struct {
	ID       uuid.UUID `json:"id" binding:"required"`
	Username string    `json:"username" binding:"required,min=3,max=50"`
	Email    string    `json:"email" binding:"required,email"`
	Name     string    `json:"name" binding:"required,min=1,max=100"`
	ImageURL string    `json:"image_url"`
	Area     string    `json:"area" binding:"required,max=50"`
	Password string    `json:"password,omitempty" binding:"omitempty,min=8"`
}

type UserService interface {
	SyncProfile(db *gorm.DB, input ProfileInput) (*models.User, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	ListByArea(db *gorm.DB, area string) ([]models.User, error)
}

type UserServiceImpl struct{}

func NewUserService() *UserServiceImpl {
	return &UserServiceImpl{}
}

// SyncProfile upserts the identity-provider profile. Name, email and image
// follow the provider; area and role stick to their first-synced values.
func (s *UserServiceImpl) SyncProfile(db *gorm.DB, input ProfileInput) (*models.User, error) {
	var user models.User
	err := db.First(&user, "id = ?", input.ID).Error
	if err == nil {
		user.Username = input.Username
		user.Email = input.Email
		user.Name = input.Name
		user.ImageURL = input.ImageURL
		user.UpdatedAt = time.Now()
		if err := db.Save(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		ID:       input.ID,
		Username: input.Username,
		Email:    input.Email,
		Name:     input.Name,
		ImageURL: input.ImageURL,
		Area:     input.Area,
		Role:     models.RoleMember,
		IsActive: true,
	}
	if input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserServiceImpl) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserServiceImpl) ListByArea(db *gorm.DB, area string) ([]models.User, error) {
	var users []models.User
	err := db.Where("area = ? AND is_active = ?", area, true).
		Order("name ASC").
		Find(&users).Error
	return users, err
}
