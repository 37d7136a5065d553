package game

import (
	"context"

	apperrors "github.com/wfunc/dart-duel/internal/errors"
	"github.com/wfunc/dart-duel/internal/logger"
	"github.com/wfunc/dart-duel/internal/models"
	"github.com/wfunc/dart-duel/internal/protocol"
	"github.com/wfunc/dart-duel/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine 对局引擎
// 处理投掷、转盘转发与弃权。进行中对局始终从数据库解析，
// 不在内存中缓存对局状态。
type Engine struct {
	db          *gorm.DB
	matchRepo   repository.MatchRepository
	attemptRepo repository.AttemptRepository
	registry    *Registry
	maxScore    int
	logger      *zap.Logger
}

// NewEngine 创建对局引擎
func NewEngine(
	db *gorm.DB,
	matchRepo repository.MatchRepository,
	attemptRepo repository.AttemptRepository,
	registry *Registry,
	maxScore int,
	logger *zap.Logger,
) *Engine {
	if maxScore <= 0 {
		maxScore = 180
	}
	return &Engine{
		db:          db,
		matchRepo:   matchRepo,
		attemptRepo: attemptRepo,
		registry:    registry,
		maxScore:    maxScore,
		logger:      logger,
	}
}

// Throw 记录一次投掷并转发给对手
// 投掷行先落库再转发，对手不可达时投掷仍然有效。
func (e *Engine) Throw(ctx context.Context, user *Session, req *protocol.ThrowRequest) (*models.ThrowAttempt, error) {
	if req.Score < 0 || req.Score > e.maxScore {
		return nil, apperrors.New(apperrors.ErrInvalidParam).
			Msgf("Score must be between 0 and %d.", e.maxScore)
	}

	match, err := e.matchRepo.FindActiveByPlayer(ctx, user.UserID)
	if err != nil {
		// 有未弃权的对局但次数已用完时，返回次数上限错误而不是"没有对局"
		if apperrors.Is(err, apperrors.ErrNoActiveMatch) {
			if _, openErr := e.matchRepo.FindOpenByPlayer(ctx, user.UserID); openErr == nil {
				return nil, apperrors.New(apperrors.ErrAttemptLimit)
			}
		}
		return nil, err
	}

	var attempt *models.ThrowAttempt
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attemptTx := e.attemptRepo.WithTx(tx).(repository.AttemptRepository)

		count, err := attemptTx.CountByMatchAndPlayer(ctx, match.ChallengeID, user.UserID)
		if err != nil {
			return err
		}
		if count >= repository.MaxAttempts {
			return apperrors.New(apperrors.ErrAttemptLimit)
		}

		attempt = &models.ThrowAttempt{
			MatchID:       match.ChallengeID,
			PlayerID:      user.UserID,
			AttemptNumber: int(count) + 1,
			Score:         req.Score,
			DX:            req.DX,
			DY:            req.DY,
			RotationAngle: req.RotationAngle,
		}
		return attemptTx.Create(ctx, attempt)
	})
	if err != nil {
		return nil, err
	}

	logger.LogMatchEvent("throw", match.ChallengeID, user.Username,
		zap.Int("attempt", attempt.AttemptNumber),
		zap.Int("score", attempt.Score))

	opponent := match.Challenge.OtherUser(user.UserID)
	evt := protocol.NewEvent(protocol.EventOtherThrew, &protocol.OtherThrewEvent{
		Score:         req.Score,
		DX:            req.DX,
		DY:            req.DY,
		RotationAngle: req.RotationAngle,
	})
	if err := e.registry.Send(opponent.Username, evt); err != nil {
		// 投掷已落库，只有转发失败
		return attempt, apperrors.New(apperrors.ErrPeerUnreachable).WithCause(err)
	}

	return attempt, nil
}

// Spin 转发转盘动作给对手
// 纯转发，不落库。对手不可达时返回错误。
func (e *Engine) Spin(ctx context.Context, user *Session, req *protocol.SpinRequest) error {
	match, err := e.matchRepo.FindActiveByPlayer(ctx, user.UserID)
	if err != nil {
		return err
	}

	opponent := match.Challenge.OtherUser(user.UserID)
	evt := protocol.NewEvent(protocol.EventOpponentSpin, &protocol.OpponentSpinEvent{
		RotationAmount: req.RotationAmount,
		Duration:       req.Duration,
	})
	if err := e.registry.Send(opponent.Username, evt); err != nil {
		return apperrors.New(apperrors.ErrPeerUnreachable).WithCause(err)
	}

	logger.LogMatchEvent("spin", match.ChallengeID, user.Username)
	return nil
}

// Forfeit 弃权当前对局
// 弃权写入后尽力通知对手，通知失败只记录日志。
func (e *Engine) Forfeit(ctx context.Context, user *Session) (*models.Match, error) {
	match, err := e.matchRepo.FindActiveByPlayer(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	if err := e.matchRepo.SetForfeited(ctx, match.ChallengeID, user.UserID); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "记录弃权失败")
	}

	logger.LogMatchEvent("forfeit", match.ChallengeID, user.Username)

	opponent := match.Challenge.OtherUser(user.UserID)
	evt := protocol.NewEvent(protocol.EventPlayerForfeited, &protocol.PlayerForfeitedEvent{
		MatchID:  match.ChallengeID,
		Username: user.Username,
	})
	if err := e.registry.Send(opponent.Username, evt); err != nil {
		e.logger.Warn("playerForfeited推送失败",
			zap.Uint("match_id", match.ChallengeID),
			zap.String("opponent", opponent.Username),
			zap.Error(err))
	}

	return match, nil
}

// HandleDisconnect 处理玩家断线
// 断线视为弃权进行中的对局，然后从注册表移除。
func (e *Engine) HandleDisconnect(ctx context.Context, user *Session) {
	if _, err := e.Forfeit(ctx, user); err != nil {
		if !apperrors.Is(err, apperrors.ErrNoActiveMatch) {
			e.logger.Error("断线弃权处理失败",
				zap.String("player", user.Username),
				zap.Error(err))
		}
	}

	e.registry.Unregister(user.Username)
}
