package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/dart-duel/internal/errors"
	"github.com/wfunc/dart-duel/internal/models"
	"gorm.io/gorm"
)

// ChallengeRepository 挑战仓储接口
type ChallengeRepository interface {
	BaseRepository
	Create(ctx context.Context, challenge *models.Challenge) error
	FindByID(ctx context.Context, id uint) (*models.Challenge, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	FindPendingInvolving(ctx context.Context, userIDs []uint, excludeID uint) ([]*models.Challenge, error)
}

// challengeRepo 挑战仓储实现
type challengeRepo struct {
	*BaseRepo
}

// NewChallengeRepository 创建挑战仓储
func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建挑战
func (r *challengeRepo) Create(ctx context.Context, challenge *models.Challenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

// FindByID 根据ID查找挑战（带双方用户信息）
func (r *challengeRepo) FindByID(ctx context.Context, id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.WithContext(ctx).
		Preload("From").
		Preload("To").
		First(&challenge, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrChallengeNotFound)
		}
		return nil, err
	}
	return &challenge, nil
}

// UpdateStatus 把待处理的挑战置为终态
// 只更新pending行，并发应答时落败方的RowsAffected为0。
func (r *challengeRepo) UpdateStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Challenge{}).
		Where("id = ? AND status = ?", id, models.ChallengeStatusPending).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrChallengeAnswered)
	}
	return nil
}

// FindPendingInvolving 查找涉及指定用户的待处理挑战（带双方用户信息）
// excludeID 用于排除刚被接受的那条挑战本身。
func (r *challengeRepo) FindPendingInvolving(ctx context.Context, userIDs []uint, excludeID uint) ([]*models.Challenge, error) {
	var challenges []*models.Challenge
	err := r.db.WithContext(ctx).
		Preload("From").
		Preload("To").
		Where("status = ?", models.ChallengeStatusPending).
		Where("id <> ?", excludeID).
		Where("from_id IN ? OR to_id IN ?", userIDs, userIDs).
		Order("id").
		Find(&challenges).Error
	return challenges, err
}

// WithTx 使用事务
func (r *challengeRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &challengeRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
