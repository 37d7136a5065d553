package models

import (
	"time"
)

// 挑战状态
const (
	ChallengeStatusPending  = "pending"
	ChallengeStatusAccepted = "accepted"
	ChallengeStatusDeclined = "declined"
)

// Challenge 挑战邀请表
// 状态从 pending 恰好迁移一次到 accepted 或 declined，终态不可变。
type Challenge struct {
	BaseModel
	FromID uint   `gorm:"not null;index" json:"from_id"`
	ToID   uint   `gorm:"not null;index" json:"to_id"`
	Status string `gorm:"size:20;not null;default:'pending';index" json:"status"`

	// 关联
	From User `gorm:"foreignKey:FromID" json:"from,omitempty"`
	To   User `gorm:"foreignKey:ToID" json:"to,omitempty"`
}

// TableName 指定Challenge表名
func (Challenge) TableName() string {
	return "challenges"
}

// IsPending 检查挑战是否待处理
func (c *Challenge) IsPending() bool {
	return c.Status == ChallengeStatusPending
}

// Involves 检查用户是否为挑战参与方
func (c *Challenge) Involves(userID uint) bool {
	return c.FromID == userID || c.ToID == userID
}

// Other 返回挑战中的另一方
func (c *Challenge) Other(userID uint) uint {
	if c.FromID == userID {
		return c.ToID
	}
	return c.FromID
}

// OtherUser 返回挑战中另一方的用户（需要预加载From/To）
func (c *Challenge) OtherUser(userID uint) *User {
	if c.FromID == userID {
		return &c.To
	}
	return &c.From
}

// Match 对局表
// 挑战被接受时创建，主键复用挑战ID（matchId == challengeId）。
type Match struct {
	ChallengeID   uint      `gorm:"primarykey" json:"challenge_id"`
	ForfeitedByID *uint     `json:"forfeited_by_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// 关联
	Challenge   Challenge `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`
	ForfeitedBy *User     `gorm:"foreignKey:ForfeitedByID" json:"forfeited_by,omitempty"`
}

// TableName 指定Match表名
func (Match) TableName() string {
	return "matches"
}

// IsForfeited 检查对局是否已被弃权
func (m *Match) IsForfeited() bool {
	return m.ForfeitedByID != nil
}

// ThrowAttempt 投掷记录表
// (match_id, player_id, attempt_number) 唯一索引保证并发投掷
// 竞争时落败方得到干净的约束冲突而不是重复行。
type ThrowAttempt struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	MatchID       uint      `gorm:"not null;uniqueIndex:idx_match_player_attempt" json:"match_id"`
	PlayerID      uint      `gorm:"not null;uniqueIndex:idx_match_player_attempt" json:"player_id"`
	AttemptNumber int       `gorm:"not null;uniqueIndex:idx_match_player_attempt" json:"attempt_number"`
	Score         int       `gorm:"not null" json:"score"`
	DX            *float64  `json:"dx,omitempty"`
	DY            *float64  `json:"dy,omitempty"`
	RotationAngle *float64  `json:"rotation_angle,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName 指定ThrowAttempt表名
func (ThrowAttempt) TableName() string {
	return "throw_attempts"
}
