package game

import (
	"context"

	apperrors "github.com/wfunc/dart-duel/internal/errors"
	"github.com/wfunc/dart-duel/internal/models"
	"github.com/wfunc/dart-duel/internal/protocol"
	"github.com/wfunc/dart-duel/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// notification 事务提交后需要推送的事件
type notification struct {
	username string
	evt      *protocol.Event
}

// Coordinator 挑战协调器
// 负责发起挑战、应答挑战以及接受时的级联拒绝。
type Coordinator struct {
	db            *gorm.DB
	challengeRepo repository.ChallengeRepository
	matchRepo     repository.MatchRepository
	registry      *Registry
	logger        *zap.Logger
}

// NewCoordinator 创建挑战协调器
func NewCoordinator(
	db *gorm.DB,
	challengeRepo repository.ChallengeRepository,
	matchRepo repository.MatchRepository,
	registry *Registry,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		db:            db,
		challengeRepo: challengeRepo,
		matchRepo:     matchRepo,
		registry:      registry,
		logger:        logger,
	}
}

// SendChallenge 向在线玩家发起挑战
// 不能挑战自己，对方必须在线。挑战行落库后向对方推送 newChallenger。
func (c *Coordinator) SendChallenge(ctx context.Context, from *Session, to string) (*models.Challenge, error) {
	if to == from.Username {
		return nil, apperrors.New(apperrors.ErrSelfChallenge)
	}

	peer, online := c.registry.Lookup(to)
	if !online {
		return nil, apperrors.New(apperrors.ErrPeerOffline).
			Msgf("%q is not online right now.", to)
	}

	challenge := &models.Challenge{
		FromID: from.UserID,
		ToID:   peer.UserID,
		Status: models.ChallengeStatusPending,
	}
	if err := c.challengeRepo.Create(ctx, challenge); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "创建挑战失败")
	}

	evt := protocol.NewEvent(protocol.EventNewChallenger, &protocol.NewChallengerEvent{
		From:        from.Username,
		ChallengeID: challenge.ID,
	})
	if err := peer.Sender.SendEvent(evt); err != nil {
		// 挑战行已落库，对方重连后仍可应答
		c.logger.Warn("newChallenger推送失败",
			zap.Uint("challenge_id", challenge.ID),
			zap.String("to", to),
			zap.Error(err))
	}

	c.logger.Info("挑战已发起",
		zap.Uint("challenge_id", challenge.ID),
		zap.String("from", from.Username),
		zap.String("to", to))
	return challenge, nil
}

// AnswerChallenge 应答挑战
// 只有接收方可以应答，pending 恰好迁移一次到终态。
// 接受时创建对局并级联拒绝双方名下其他待处理挑战，
// 所有事件在事务提交后统一推送。
func (c *Coordinator) AnswerChallenge(ctx context.Context, user *Session, challengeID uint, newStatus string) (*models.Challenge, error) {
	if newStatus != models.ChallengeStatusAccepted && newStatus != models.ChallengeStatusDeclined {
		return nil, apperrors.New(apperrors.ErrInvalidParam).
			Msgf("newStatus must be %q or %q.", models.ChallengeStatusAccepted, models.ChallengeStatusDeclined)
	}

	var challenge *models.Challenge
	var notes []notification

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chTx := c.challengeRepo.WithTx(tx).(repository.ChallengeRepository)
		matchTx := c.matchRepo.WithTx(tx).(repository.MatchRepository)

		var err error
		challenge, err = chTx.FindByID(ctx, challengeID)
		if err != nil {
			return err
		}
		if !challenge.IsPending() {
			return apperrors.New(apperrors.ErrChallengeAnswered)
		}
		if challenge.ToID != user.UserID {
			return apperrors.New(apperrors.ErrNotChallengeRecipient)
		}

		if err := chTx.UpdateStatus(ctx, challengeID, newStatus); err != nil {
			return err
		}
		challenge.Status = newStatus

		if newStatus == models.ChallengeStatusDeclined {
			notes = append(notes, notification{
				username: challenge.From.Username,
				evt: protocol.NewEvent(protocol.EventChallengeRejected,
					&protocol.ChallengeClosedEvent{ID: challenge.ID}),
			})
			return nil
		}

		// 接受：创建对局，matchId复用challengeId
		if err := matchTx.Create(ctx, &models.Match{ChallengeID: challenge.ID}); err != nil {
			return err
		}

		startEvt := &protocol.StartGameEvent{ID: challenge.ID}
		notes = append(notes,
			notification{challenge.From.Username, protocol.NewEvent(protocol.EventStartGame, startEvt)},
			notification{challenge.To.Username, protocol.NewEvent(protocol.EventStartGame, startEvt)},
		)

		// 级联拒绝双方名下其他待处理挑战
		cascade, err := c.cascadeDecline(ctx, chTx, challenge)
		if err != nil {
			return err
		}
		notes = append(notes, cascade...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.dispatch(notes)

	c.logger.Info("挑战已应答",
		zap.Uint("challenge_id", challengeID),
		zap.String("by", user.Username),
		zap.String("status", newStatus))
	return challenge, nil
}

// cascadeDecline 级联拒绝
// 两名参战者名下其余待处理挑战全部置为 declined。
// 对每条被级联的挑战：参战者是发起方时对方收到 challengeCanceled，
// 参战者是接收方时对方收到 challengeRejected。
func (c *Coordinator) cascadeDecline(ctx context.Context, chTx repository.ChallengeRepository, accepted *models.Challenge) ([]notification, error) {
	participants := []uint{accepted.FromID, accepted.ToID}

	pending, err := chTx.FindPendingInvolving(ctx, participants, accepted.ID)
	if err != nil {
		return nil, err
	}

	var notes []notification
	for _, ch := range pending {
		if err := chTx.UpdateStatus(ctx, ch.ID, models.ChallengeStatusDeclined); err != nil {
			return nil, err
		}

		for _, pivot := range participants {
			switch {
			case ch.FromID == pivot:
				notes = append(notes, notification{
					username: ch.To.Username,
					evt: protocol.NewEvent(protocol.EventChallengeCanceled,
						&protocol.ChallengeClosedEvent{ID: ch.ID}),
				})
			case ch.ToID == pivot:
				notes = append(notes, notification{
					username: ch.From.Username,
					evt: protocol.NewEvent(protocol.EventChallengeRejected,
						&protocol.ChallengeClosedEvent{ID: ch.ID}),
				})
			}
		}
	}
	return notes, nil
}

// ListOnline 列出在线玩家及其战绩
func (c *Coordinator) ListOnline(ctx context.Context) ([]*models.PlayerStats, error) {
	sessions := c.registry.Snapshot()

	players := make([]*models.PlayerStats, 0, len(sessions))
	for _, s := range sessions {
		stats, err := c.matchRepo.GetPlayerStats(ctx, s.UserID)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "统计玩家战绩失败")
		}
		stats.Username = s.Username
		players = append(players, stats)
	}
	return players, nil
}

// dispatch 推送事务提交后积累的事件，离线玩家错过事件不视为错误
func (c *Coordinator) dispatch(notes []notification) {
	for _, n := range notes {
		if err := c.registry.Send(n.username, n.evt); err != nil {
			c.logger.Warn("事件推送失败",
				zap.String("username", n.username),
				zap.String("event", n.evt.Event),
				zap.Error(err))
		}
	}
}
