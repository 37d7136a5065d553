package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// JWTTestSuite JWT工具测试套件
type JWTTestSuite struct {
	suite.Suite
	manager *JWTManager
}

// SetupTest 每个测试前的初始化
func (suite *JWTTestSuite) SetupTest() {
	suite.manager = NewJWTManager("test-secret-key", 15*time.Minute, 7*24*time.Hour)
}

// 测试生成访问令牌
func (suite *JWTTestSuite) TestGenerateAccessToken() {
	token, err := suite.manager.GenerateAccessToken(1, "alexander")
	suite.NoError(err)
	suite.NotEmpty(token)

	// 验证令牌内容
	claims, err := suite.manager.ValidateToken(token)
	suite.NoError(err)
	suite.Equal(uint(1), claims.UserID)
	suite.Equal("alexander", claims.Username)
	suite.Equal("access", claims.TokenType)
	suite.Equal("dart-duel", claims.Issuer)
}

// 测试生成刷新令牌
func (suite *JWTTestSuite) TestGenerateRefreshToken() {
	token, err := suite.manager.GenerateRefreshToken(2, "bernadette")
	suite.NoError(err)
	suite.NotEmpty(token)

	claims, err := suite.manager.ValidateToken(token)
	suite.NoError(err)
	suite.Equal(uint(2), claims.UserID)
	suite.Equal("refresh", claims.TokenType)
}

// 测试验证非法令牌
func (suite *JWTTestSuite) TestValidateInvalidToken() {
	_, err := suite.manager.ValidateToken("not.a.token")
	suite.Error(err)

	// 使用不同密钥签名的令牌
	other := NewJWTManager("another-secret", 15*time.Minute, time.Hour)
	token, _ := other.GenerateAccessToken(1, "alexander")
	_, err = suite.manager.ValidateToken(token)
	suite.Error(err)
}

// 测试过期令牌
func (suite *JWTTestSuite) TestValidateExpiredToken() {
	expired := NewJWTManager("test-secret-key", -time.Minute, -time.Minute)
	token, err := expired.GenerateAccessToken(1, "alexander")
	suite.NoError(err)

	_, err = suite.manager.ValidateToken(token)
	suite.Error(err)
}

// 测试获取令牌过期时间
func (suite *JWTTestSuite) TestGetTokenExpiry() {
	suite.Equal(15*time.Minute, suite.manager.GetTokenExpiry("access"))
	suite.Equal(7*24*time.Hour, suite.manager.GetTokenExpiry("refresh"))
}

// TestJWTTestSuite 运行测试套件
func TestJWTTestSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}
