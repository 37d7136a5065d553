package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/dart-duel/internal/api"
	"github.com/wfunc/dart-duel/internal/config"
	"github.com/wfunc/dart-duel/internal/database"
	apperrors "github.com/wfunc/dart-duel/internal/errors"
	"github.com/wfunc/dart-duel/internal/game"
	"github.com/wfunc/dart-duel/internal/logger"
	"github.com/wfunc/dart-duel/internal/repository"
	"github.com/wfunc/dart-duel/internal/service"
	"github.com/wfunc/dart-duel/internal/utils"
	ws "github.com/wfunc/dart-duel/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("dart-duel %s (build: %s, commit: %s)\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.GetLogger()
	log.Info("正在启动飞镖对战服务器...",
		zap.String("version", Version),
		zap.String("mode", cfg.Server.Mode))

	if err := run(cfg, log); err != nil {
		log.Fatal("服务器运行失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}

// run 装配并运行服务器
func run(cfg *config.Config, log *zap.Logger) error {
	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "初始化数据库连接失败")
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		log.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	db := database.GetDB()

	// 仓储层
	userRepo := repository.NewUserRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)

	// 服务层
	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.ExpireHours)*time.Hour,
		time.Duration(cfg.Security.JWT.RefreshHours)*time.Hour,
	)
	authService := service.NewAuthService(userRepo, jwtManager, cfg.Game.MinCredentialSize, logger.GetModuleLogger("auth"))
	playerService := service.NewPlayerService(matchRepo, attemptRepo, logger.GetModuleLogger("player"))

	// 游戏层
	gameLog := logger.GetModuleLogger("game")
	registry := game.NewRegistry(gameLog)
	coordinator := game.NewCoordinator(db, challengeRepo, matchRepo, registry, gameLog)
	engine := game.NewEngine(db, matchRepo, attemptRepo, registry, cfg.Game.MaxScore, gameLog)

	// 传输层
	wsRouter := ws.NewRouter(authService, registry, coordinator, engine, logger.GetModuleLogger("websocket"))

	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	apiRouter := api.NewRouter(authService, playerService, coordinator, wsRouter, cfg.WebSocket, logger.GetModuleLogger("api"))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      apiRouter.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP服务已启动", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		log.Info("配置已更新", zap.String("log_level", newCfg.Log.Level))
	})

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return apperrors.Wrap(err, apperrors.ErrUnknown, "HTTP服务异常退出")
	case sig := <-sigCh:
		log.Info("收到退出信号", zap.String("signal", sig.String()))
	}

	// 优雅关闭
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrUnknown, "HTTP服务关闭失败")
	}
	return nil
}
