package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"employee-directory/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken      = errors.New("auth: username already exists")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// Store keeps users and their bcrypt password hashes.
type Store struct {
	db   *gorm.DB
	cost int
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, cost: bcrypt.DefaultCost}
}

func (s *Store) Register(ctx context.Context, username, password string) (*models.User, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user := models.User{Username: username, PasswordHash: string(hash)}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	return &user, nil
}

// Verify returns the user when the password matches. Unknown usernames and
// wrong passwords yield the same error and cost the same bcrypt comparison.
func (s *Store) Verify(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

func (s *Store) dummyHash() []byte {
	dummyOnce.Do(func() {
		dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	return dummy
}
