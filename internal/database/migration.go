package database

import (
	"fmt"

	"github.com/wfunc/dart-duel/internal/logger"
	"github.com/wfunc/dart-duel/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 迁移顺序：先无依赖的表，再有外键的表
	migrationModels := []interface{}{
		// 用户相关
		&models.User{},

		// 对局相关
		&models.Challenge{},
		&models.Match{},
		&models.ThrowAttempt{},
	}

	logger.Info("开始数据库迁移...")

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("数据库迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err))
			return fmt.Errorf("迁移 %T 失败: %w", model, err)
		}
	}

	logger.Info("数据库迁移完成")
	return nil
}
