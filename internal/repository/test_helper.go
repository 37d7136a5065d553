package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/dart-duel/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 创建内存测试数据库
// 每个测试用例独立一个库，互不干扰。
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.Match{},
		&models.ThrowAttempt{},
	)
	require.NoError(t, err)

	return db
}

// SeedUsers 创建测试用户
func SeedUsers(t *testing.T, db *gorm.DB, usernames ...string) map[string]*models.User {
	t.Helper()

	users := make(map[string]*models.User, len(usernames))
	for _, username := range usernames {
		user := &models.User{
			Username:     username,
			PasswordHash: "test-hash",
		}
		require.NoError(t, db.Create(user).Error)
		users[username] = user
	}
	return users
}

// SeedChallenge 创建测试挑战
func SeedChallenge(t *testing.T, db *gorm.DB, from, to *models.User, status string) *models.Challenge {
	t.Helper()

	challenge := &models.Challenge{
		FromID: from.ID,
		ToID:   to.ID,
		Status: status,
	}
	require.NoError(t, db.Create(challenge).Error)
	return challenge
}

// SeedMatch 创建测试对局（挑战标记为已接受）
func SeedMatch(t *testing.T, db *gorm.DB, from, to *models.User) *models.Match {
	t.Helper()

	challenge := SeedChallenge(t, db, from, to, models.ChallengeStatusAccepted)
	match := &models.Match{ChallengeID: challenge.ID}
	require.NoError(t, db.Create(match).Error)
	return match
}

// SeedAttempts 为玩家写入连续的投掷记录
func SeedAttempts(t *testing.T, db *gorm.DB, matchID, playerID uint, scores ...int) {
	t.Helper()

	for i, score := range scores {
		attempt := &models.ThrowAttempt{
			MatchID:       matchID,
			PlayerID:      playerID,
			AttemptNumber: i + 1,
			Score:         score,
		}
		require.NoError(t, db.Create(attempt).Error)
	}
}
