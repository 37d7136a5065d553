package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/dart-duel/internal/errors"
	"github.com/wfunc/dart-duel/internal/models"
	"gorm.io/gorm"
)

// MaxAttempts 每名玩家每局的投掷次数上限
const MaxAttempts = 3

// MatchRepository 对局仓储接口
type MatchRepository interface {
	BaseRepository
	Create(ctx context.Context, match *models.Match) error
	FindByChallengeID(ctx context.Context, challengeID uint) (*models.Match, error)
	FindActiveByPlayer(ctx context.Context, playerID uint) (*models.Match, error)
	FindOpenByPlayer(ctx context.Context, playerID uint) (*models.Match, error)
	SetForfeited(ctx context.Context, challengeID uint, playerID uint) error
	FindByPlayer(ctx context.Context, playerID uint, pagination *Pagination) ([]*models.Match, error)
	GetPlayerStats(ctx context.Context, playerID uint) (*models.PlayerStats, error)
}

// matchRepo 对局仓储实现
type matchRepo struct {
	*BaseRepo
}

// NewMatchRepository 创建对局仓储
func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建对局
func (r *matchRepo) Create(ctx context.Context, match *models.Match) error {
	err := r.db.WithContext(ctx).Create(match).Error
	if err != nil && isUniqueViolation(err) {
		return apperrors.New(apperrors.ErrStorageConflict, "对局已存在").WithCause(err)
	}
	return err
}

// FindByChallengeID 根据挑战ID查找对局（带双方用户信息）
func (r *matchRepo) FindByChallengeID(ctx context.Context, challengeID uint) (*models.Match, error) {
	var match models.Match
	err := r.db.WithContext(ctx).
		Preload("Challenge.From").
		Preload("Challenge.To").
		First(&match, "challenge_id = ?", challengeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "对局不存在")
		}
		return nil, err
	}
	return &match, nil
}

// FindActiveByPlayer 解析玩家的进行中对局
// 进行中 = 对局未被弃权，且该玩家的投掷次数不足上限。
// 这是"进行中"的唯一事实来源，不依赖任何缓存标志。
func (r *matchRepo) FindActiveByPlayer(ctx context.Context, playerID uint) (*models.Match, error) {
	var matches []*models.Match
	err := r.db.WithContext(ctx).
		Preload("Challenge.From").
		Preload("Challenge.To").
		Joins("JOIN challenges ON challenges.id = matches.challenge_id").
		Where("matches.forfeited_by_id IS NULL").
		Where("challenges.from_id = ? OR challenges.to_id = ?", playerID, playerID).
		Order("matches.challenge_id").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	for _, match := range matches {
		var count int64
		err := r.db.WithContext(ctx).
			Model(&models.ThrowAttempt{}).
			Where("match_id = ? AND player_id = ?", match.ChallengeID, playerID).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count < MaxAttempts {
			return match, nil
		}
	}

	return nil, apperrors.New(apperrors.ErrNoActiveMatch)
}

// FindOpenByPlayer 查找玩家最早的未弃权对局，不看投掷次数
// 用于区分"没有对局"与"次数已用完但对手还在投"。
func (r *matchRepo) FindOpenByPlayer(ctx context.Context, playerID uint) (*models.Match, error) {
	var match models.Match
	err := r.db.WithContext(ctx).
		Preload("Challenge.From").
		Preload("Challenge.To").
		Joins("JOIN challenges ON challenges.id = matches.challenge_id").
		Where("matches.forfeited_by_id IS NULL").
		Where("challenges.from_id = ? OR challenges.to_id = ?", playerID, playerID).
		Order("matches.challenge_id").
		First(&match).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNoActiveMatch)
		}
		return nil, err
	}
	return &match, nil
}

// SetForfeited 记录弃权方
// 只在尚未弃权时写入，首次调用具有决定权，重复调用幂等。
func (r *matchRepo) SetForfeited(ctx context.Context, challengeID uint, playerID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Match{}).
		Where("challenge_id = ? AND forfeited_by_id IS NULL", challengeID).
		Update("forfeited_by_id", playerID).Error
}

// FindByPlayer 查找玩家参与的所有对局（分页，最新在前）
func (r *matchRepo) FindByPlayer(ctx context.Context, playerID uint, pagination *Pagination) ([]*models.Match, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Match{}).
		Joins("JOIN challenges ON challenges.id = matches.challenge_id").
		Where("challenges.from_id = ? OR challenges.to_id = ?", playerID, playerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	pagination.Total = total

	var matches []*models.Match
	err := query.
		Preload("Challenge.From").
		Preload("Challenge.To").
		Preload("ForfeitedBy").
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("matches.created_at DESC").
		Find(&matches).Error
	return matches, err
}

// GetPlayerStats 计算玩家统计
// 完成的对局 = 一方弃权，或双方都用完投掷次数。
// 弃权判负；双方掷满时总分高者胜，平分不计胜负。
func (r *matchRepo) GetPlayerStats(ctx context.Context, playerID uint) (*models.PlayerStats, error) {
	var matches []*models.Match
	err := r.db.WithContext(ctx).
		Preload("Challenge").
		Joins("JOIN challenges ON challenges.id = matches.challenge_id").
		Where("challenges.from_id = ? OR challenges.to_id = ?", playerID, playerID).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	stats := &models.PlayerStats{}

	for _, match := range matches {
		opponentID := match.Challenge.Other(playerID)

		if match.ForfeitedByID != nil {
			stats.Matches++
			if *match.ForfeitedByID == playerID {
				stats.Losses++
			} else {
				stats.Wins++
			}
			continue
		}

		playerCount, playerScore, err := r.attemptSummary(ctx, match.ChallengeID, playerID)
		if err != nil {
			return nil, err
		}
		opponentCount, opponentScore, err := r.attemptSummary(ctx, match.ChallengeID, opponentID)
		if err != nil {
			return nil, err
		}

		if playerCount < MaxAttempts || opponentCount < MaxAttempts {
			// 对局尚未结束
			continue
		}

		stats.Matches++
		switch {
		case playerScore > opponentScore:
			stats.Wins++
		case playerScore < opponentScore:
			stats.Losses++
		}
	}

	// 总得分统计所有已记录的投掷
	var totalScore int64
	err = r.db.WithContext(ctx).
		Model(&models.ThrowAttempt{}).
		Where("player_id = ?", playerID).
		Select("COALESCE(SUM(score), 0)").
		Scan(&totalScore).Error
	if err != nil {
		return nil, err
	}
	stats.TotalScore = int(totalScore)

	if stats.Matches > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Matches)
	}

	return stats, nil
}

// attemptSummary 统计某对局中某玩家的投掷次数与总分
func (r *matchRepo) attemptSummary(ctx context.Context, matchID, playerID uint) (int64, int64, error) {
	type summary struct {
		Count int64
		Total int64
	}
	var s summary
	err := r.db.WithContext(ctx).
		Model(&models.ThrowAttempt{}).
		Where("match_id = ? AND player_id = ?", matchID, playerID).
		Select("COUNT(*) AS count, COALESCE(SUM(score), 0) AS total").
		Scan(&s).Error
	return s.Count, s.Total, err
}

// WithTx 使用事务
func (r *matchRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &matchRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
