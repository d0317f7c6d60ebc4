package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platefeed/backend/internal/models"
)

// UserService handles user lookup and the follow graph.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	var total int64
	q := s.db.WithContext(ctx).Model(&models.User{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := q.Order("created_at ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateProfile changes the mutable profile fields of a user.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName string) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"first_name": firstName,
		"last_name":  lastName,
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Follow creates a follower→author edge. The unique pair index is the only
// guard against concurrent duplicate inserts; self-follow is checked here
// because it cannot be expressed as a uniqueness constraint.
func (s *UserService) Follow(ctx context.Context, followerID, authorID uuid.UUID) error {
	if followerID == authorID {
		return &ValidationError{Field: "author", Message: "you cannot subscribe to yourself"}
	}
	if _, err := s.Get(ctx, authorID); err != nil {
		return err
	}

	follow := models.Follow{FollowerID: followerID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Create(&follow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &ConflictError{Message: "you are already following this user"}
		}
		return err
	}
	return nil
}

func (s *UserService) Unfollow(ctx context.Context, followerID, authorID uuid.UUID) error {
	if _, err := s.Get(ctx, authorID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND author_id = ?", followerID, authorID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserService) IsFollowing(ctx context.Context, followerID, authorID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND author_id = ?", followerID, authorID).
		Count(&count).Error
	return count > 0, err
}

// FollowingSet reports which of the given authors the follower subscribes
// to, in one query.
func (s *UserService) FollowingSet(ctx context.Context, followerID uuid.UUID, authorIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	set := make(map[uuid.UUID]bool, len(authorIDs))
	if len(authorIDs) == 0 {
		return set, nil
	}
	var follows []models.Follow
	err := s.db.WithContext(ctx).
		Where("follower_id = ? AND author_id IN ?", followerID, authorIDs).
		Find(&follows).Error
	if err != nil {
		return nil, err
	}
	for _, f := range follows {
		set[f.AuthorID] = true
	}
	return set, nil
}

// Subscriptions lists the authors the user follows, most recent first.
func (s *UserService) Subscriptions(ctx context.Context, followerID uuid.UUID, offset, limit int) ([]models.User, int64, error) {
	base := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows ON follows.author_id = users.id").
		Where("follows.follower_id = ?", followerID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var authors []models.User
	err := base.Order("follows.created_at DESC").Offset(offset).Limit(limit).Find(&authors).Error
	if err != nil {
		return nil, 0, err
	}
	return authors, total, nil
}
