package models

import (
	"time"
)

// User 用户基础信息表
type User struct {
	BaseModel
	Username     string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	LastOnlineAt *time.Time `json:"last_online_at,omitempty"`
}

// TableName 指定User表名
func (User) TableName() string {
	return "users"
}

// TouchLastOnline 更新最后在线时间
func (u *User) TouchLastOnline() {
	now := time.Now()
	u.LastOnlineAt = &now
}

// PlayerStats 玩家统计（从对局历史派生，不落库）
type PlayerStats struct {
	Username   string  `json:"username"`
	Matches    int     `json:"matches"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	TotalScore int     `json:"totalScore"`
	WinRate    float64 `json:"winRate"`
}
