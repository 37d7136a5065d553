package service

import (
	"context"
	"time"

	"github.com/wfunc/dart-duel/internal/models"
	"github.com/wfunc/dart-duel/internal/repository"
	"go.uber.org/zap"
)

// 对局结果
const (
	MatchResultInProgress = "in_progress"
	MatchResultWon        = "won"
	MatchResultLost       = "lost"
	MatchResultDraw       = "draw"
)

// MatchSummary 玩家视角的对局摘要
type MatchSummary struct {
	MatchID          uint      `json:"matchId"`
	Opponent         string    `json:"opponent"`
	PlayerScore      int       `json:"playerScore"`
	OpponentScore    int       `json:"opponentScore"`
	PlayerAttempts   int       `json:"playerAttempts"`
	OpponentAttempts int       `json:"opponentAttempts"`
	ForfeitedBy      string    `json:"forfeitedBy,omitempty"`
	Result           string    `json:"result"`
	CreatedAt        time.Time `json:"createdAt"`
}

// PlayerService 玩家查询服务接口
type PlayerService interface {
	Stats(ctx context.Context, userID uint) (*models.PlayerStats, error)
	MatchHistory(ctx context.Context, userID uint, page, pageSize int) ([]*MatchSummary, int64, error)
}

// playerService 玩家查询服务实现
type playerService struct {
	matchRepo   repository.MatchRepository
	attemptRepo repository.AttemptRepository
	log         *zap.Logger
}

// NewPlayerService 创建玩家查询服务
func NewPlayerService(matchRepo repository.MatchRepository, attemptRepo repository.AttemptRepository, log *zap.Logger) PlayerService {
	return &playerService{
		matchRepo:   matchRepo,
		attemptRepo: attemptRepo,
		log:         log,
	}
}

// Stats 玩家战绩
func (s *playerService) Stats(ctx context.Context, userID uint) (*models.PlayerStats, error) {
	return s.matchRepo.GetPlayerStats(ctx, userID)
}

// MatchHistory 玩家对局历史（最新在前）
func (s *playerService) MatchHistory(ctx context.Context, userID uint, page, pageSize int) ([]*MatchSummary, int64, error) {
	pagination := repository.NewPagination(page, pageSize)
	matches, err := s.matchRepo.FindByPlayer(ctx, userID, pagination)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]*MatchSummary, 0, len(matches))
	for _, match := range matches {
		summary, err := s.summarize(ctx, match, userID)
		if err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, pagination.Total, nil
}

// summarize 汇总单场对局
func (s *playerService) summarize(ctx context.Context, match *models.Match, userID uint) (*MatchSummary, error) {
	attempts, err := s.attemptRepo.ListByMatch(ctx, match.ChallengeID)
	if err != nil {
		return nil, err
	}

	summary := &MatchSummary{
		MatchID:   match.ChallengeID,
		Opponent:  match.Challenge.OtherUser(userID).Username,
		CreatedAt: match.CreatedAt,
	}

	for _, attempt := range attempts {
		if attempt.PlayerID == userID {
			summary.PlayerAttempts++
			summary.PlayerScore += attempt.Score
		} else {
			summary.OpponentAttempts++
			summary.OpponentScore += attempt.Score
		}
	}

	switch {
	case match.ForfeitedByID != nil:
		if match.ForfeitedBy != nil {
			summary.ForfeitedBy = match.ForfeitedBy.Username
		}
		if *match.ForfeitedByID == userID {
			summary.Result = MatchResultLost
		} else {
			summary.Result = MatchResultWon
		}
	case summary.PlayerAttempts >= repository.MaxAttempts && summary.OpponentAttempts >= repository.MaxAttempts:
		switch {
		case summary.PlayerScore > summary.OpponentScore:
			summary.Result = MatchResultWon
		case summary.PlayerScore < summary.OpponentScore:
			summary.Result = MatchResultLost
		default:
			summary.Result = MatchResultDraw
		}
	default:
		summary.Result = MatchResultInProgress
	}

	return summary, nil
}
