package service

import (
	"context"
	"fmt"

	apperrors "github.com/wfunc/dart-duel/internal/errors"
	"github.com/wfunc/dart-duel/internal/models"
	"github.com/wfunc/dart-duel/internal/repository"
	"github.com/wfunc/dart-duel/internal/utils"
	"go.uber.org/zap"
)

// AuthService 认证服务接口
type AuthService interface {
	Register(ctx context.Context, username, password string) (*AuthResponse, error)
	Login(ctx context.Context, username, password string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)
}

// AuthResponse 认证响应
type AuthResponse struct {
	UserID       uint   `json:"userId"`
	Username     string `json:"username"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// authService 认证服务实现
type authService struct {
	userRepo      repository.UserRepository
	jwtManager    *utils.JWTManager
	minCredential int
	log           *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo repository.UserRepository, jwtManager *utils.JWTManager, minCredentialSize int, log *zap.Logger) AuthService {
	return &authService{
		userRepo:      userRepo,
		jwtManager:    jwtManager,
		minCredential: minCredentialSize,
		log:           log,
	}
}

// Register 用户注册
func (s *authService) Register(ctx context.Context, username, password string) (*AuthResponse, error) {
	if err := s.validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "密码哈希失败")
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("用户注册成功", zap.Uint("user_id", user.ID), zap.String("username", username))
	return s.issueTokens(user)
}

// Login 用户登录
func (s *authService) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	if err := s.validateCredentials(username, password); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		// 用户不存在与密码错误返回相同的消息
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrCredentialMismatch)
		}
		return nil, err
	}

	ok, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "密码校验失败")
	}
	if !ok {
		return nil, apperrors.New(apperrors.ErrCredentialMismatch)
	}

	if err := s.userRepo.UpdateLastOnline(ctx, user.ID); err != nil {
		s.log.Warn("更新最后在线时间失败", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	s.log.Info("用户登录成功", zap.Uint("user_id", user.ID), zap.String("username", username))
	return s.issueTokens(user)
}

// ValidateToken 验证访问令牌
func (s *authService) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTokenInvalid)
	}
	if claims.TokenType != "access" {
		return nil, apperrors.New(apperrors.ErrTokenInvalid, "令牌类型错误")
	}
	return claims, nil
}

// validateCredentials 校验用户名与密码长度
func (s *authService) validateCredentials(username, password string) error {
	min := s.minCredential
	if min <= 0 {
		min = 8
	}
	if len(username) < min {
		return apperrors.New(apperrors.ErrInvalidParam).
			Msgf("Username must be at least %d characters long.", min)
	}
	if len(password) < min {
		return apperrors.New(apperrors.ErrInvalidParam).
			Msgf("Password must be at least %d characters long.", min)
	}
	return nil
}

func (s *authService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("生成访问令牌失败: %w", err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("生成刷新令牌失败: %w", err)
	}
	return &AuthResponse{
		UserID:       user.ID,
		Username:     user.Username,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
