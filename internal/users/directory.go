// Package users looks up accounts by id for the transport layer.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"project-management-api/internal/cache"
	"project-management-api/internal/database"
	"project-management-api/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no user has the requested id.
	ErrNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned by Create for a username already in use.
	ErrUsernameTaken = errors.New("username already taken")
)

// Directory resolves users by id, caching hits. Usernames are immutable in
// this service, so cached entries only go stale when a user is deleted.
type Directory struct {
	db    *gorm.DB
	cache cache.Cache[string, models.User]
}

func NewDirectory(db *gorm.DB, ttl time.Duration) *Directory {
	return &Directory{
		db:    db,
		cache: cache.New[string, models.User](cache.Options{TTL: ttl, MaxEntries: 10000}),
	}
}

// Get returns the user with the given id.
func (d *Directory) Get(ctx context.Context, id string) (models.User, error) {
	if u, ok := d.cache.Get(id); ok {
		return u, nil
	}
	var u models.User
	if err := d.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	d.cache.Set(id, u)
	return u, nil
}

// Create stores a new user with an already hashed password.
func (d *Directory) Create(ctx context.Context, username, passwordHash string) (models.User, error) {
	u := models.User{Username: username, Password: passwordHash}
	if err := d.db.WithContext(ctx).Create(&u).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	d.cache.Set(u.ID, u)
	return u, nil
}

// Exists reports whether a user with the id exists.
func (d *Directory) Exists(ctx context.Context, id string) (bool, error) {
	_, err := d.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// FindByUsername looks a user up by name, bypassing the cache.
func (d *Directory) FindByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	if err := d.db.WithContext(ctx).Where("username = ?", username).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	d.cache.Set(u.ID, u)
	return u, nil
}

// List returns every user ordered by username.
func (d *Directory) List(ctx context.Context) ([]models.User, error) {
	var all []models.User
	if err := d.db.WithContext(ctx).Order("username").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return all, nil
}

// RunJanitor drops expired cache entries every interval until ctx is done.
func (d *Directory) RunJanitor(ctx context.Context, every time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.cache.PurgeExpired(); n > 0 {
				log.Debug("user cache purged", zap.Int("removed", n), zap.Int("remaining", d.cache.Len()))
			}
		}
	}
}
