package repository

import (
	"context"

	apperrors "github.com/wfunc/dart-duel/internal/errors"
	"github.com/wfunc/dart-duel/internal/models"
	"gorm.io/gorm"
)

// AttemptRepository 投掷记录仓储接口
// 投掷记录只插入，从不更新或删除。
type AttemptRepository interface {
	BaseRepository
	Create(ctx context.Context, attempt *models.ThrowAttempt) error
	CountByMatchAndPlayer(ctx context.Context, matchID, playerID uint) (int64, error)
	ListByMatch(ctx context.Context, matchID uint) ([]*models.ThrowAttempt, error)
}

// attemptRepo 投掷记录仓储实现
type attemptRepo struct {
	*BaseRepo
}

// NewAttemptRepository 创建投掷记录仓储
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 插入投掷记录
// 唯一索引 (match_id, player_id, attempt_number) 把并发竞争
// 转换为干净的冲突错误。
func (r *attemptRepo) Create(ctx context.Context, attempt *models.ThrowAttempt) error {
	err := r.db.WithContext(ctx).Create(attempt).Error
	if err != nil && isUniqueViolation(err) {
		return apperrors.New(apperrors.ErrStorageConflict, "投掷序号冲突").WithCause(err)
	}
	return err
}

// CountByMatchAndPlayer 统计玩家在对局中的投掷次数
func (r *attemptRepo) CountByMatchAndPlayer(ctx context.Context, matchID, playerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ThrowAttempt{}).
		Where("match_id = ? AND player_id = ?", matchID, playerID).
		Count(&count).Error
	return count, err
}

// ListByMatch 列出对局的全部投掷记录
func (r *attemptRepo) ListByMatch(ctx context.Context, matchID uint) ([]*models.ThrowAttempt, error) {
	var attempts []*models.ThrowAttempt
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("player_id, attempt_number").
		Find(&attempts).Error
	return attempts, err
}

// WithTx 使用事务
func (r *attemptRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &attemptRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
