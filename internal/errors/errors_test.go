package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	// 测试基本错误创建
	err := New(ErrInvalidParam)
	suite.NotNil(err)
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("Validation error.", err.Message)
	suite.Empty(err.Details)

	// 测试带详情的错误
	err = New(ErrChallengeNotFound, "challenge id 42")
	suite.NotNil(err)
	suite.Equal(ErrChallengeNotFound, err.Code)
	suite.Equal("Challenge not found", err.Message)
	suite.Equal("challenge id 42", err.Details)

	// 测试多个详情
	err = New(ErrDatabaseConnect, "连接失败", "主机: localhost", "端口: 3306")
	suite.Equal("连接失败; 主机: localhost; 端口: 3306", err.Details)
}

// 测试领域错误的用户可见消息
func (suite *ErrorsTestSuite) TestDomainMessages() {
	suite.Equal("Player has already used all 3 attempts", New(ErrAttemptLimit).Message)
	suite.Equal("The challenge was answered.", New(ErrChallengeAnswered).Message)
	suite.Equal("You are not the receiver of the challenge.", New(ErrNotChallengeRecipient).Message)
	suite.Equal("You can't send a challenge to yourself.", New(ErrSelfChallenge).Message)
	suite.Equal("Username or password does not match.", New(ErrCredentialMismatch).Message)
	suite.Equal("Username already exists", New(ErrUsernameTaken).Message)
}

// 测试覆盖消息
func (suite *ErrorsTestSuite) TestMsgf() {
	err := New(ErrPeerOffline).Msgf("%q is not online right now.", "player_two")
	suite.Equal(`"player_two" is not online right now.`, err.Message)
	suite.Equal(ErrPeerOffline, err.Code)
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	// 包装标准错误
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrDatabaseQuery)
	suite.NotNil(wrappedErr)
	suite.Equal(ErrDatabaseQuery, wrappedErr.Code)
	suite.Equal("原始错误", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)

	// 包装nil错误
	nilErr := Wrap(nil, ErrUnknown)
	suite.Nil(nilErr)

	// 包装已有的AppError，保留原始错误码
	appErr := New(ErrChallengeAnswered)
	wrappedAppErr := Wrap(appErr, ErrInvalidParam, "额外信息")
	suite.Equal(ErrChallengeAnswered, wrappedAppErr.Code)
	suite.Contains(wrappedAppErr.Details, "额外信息")
}

// 测试错误码判断
func (suite *ErrorsTestSuite) TestIs() {
	err := New(ErrAlreadyOnline)
	suite.True(Is(err, ErrAlreadyOnline))
	suite.False(Is(err, ErrNotFound))
	suite.False(Is(nil, ErrAlreadyOnline))

	// 标准错误不匹配任何错误码
	suite.False(Is(errors.New("plain"), ErrAlreadyOnline))
}

// 测试获取错误码
func (suite *ErrorsTestSuite) TestGetCode() {
	suite.Equal(ErrorCode(0), GetCode(nil))
	suite.Equal(ErrAttemptLimit, GetCode(New(ErrAttemptLimit)))
	suite.Equal(ErrUnknown, GetCode(errors.New("plain")))
}

// 测试预期错误判定
func (suite *ErrorsTestSuite) TestIsExpected() {
	suite.True(IsExpected(New(ErrAttemptLimit)))
	suite.True(IsExpected(New(ErrSelfChallenge)))
	suite.True(IsExpected(New(ErrAuthRequired)))
	suite.True(IsExpected(New(ErrStorageConflict)))
	suite.False(IsExpected(New(ErrDatabaseConnect)))
	suite.False(IsExpected(New(ErrUnknown)))
	suite.False(IsExpected(nil))
}

// 测试Error接口实现
func (suite *ErrorsTestSuite) TestErrorInterface() {
	err := New(ErrChallengeNotFound)
	suite.Equal("[3002] Challenge not found", err.Error())

	err = New(ErrChallengeNotFound, "id 7")
	suite.Equal("[3002] Challenge not found: id 7", err.Error())
}

// 测试Unwrap
func (suite *ErrorsTestSuite) TestUnwrap() {
	originalErr := errors.New("底层错误")
	appErr := Wrap(originalErr, ErrDatabaseQuery)
	suite.Equal(originalErr, appErr.Unwrap())
	suite.True(errors.Is(appErr, originalErr))
}

// 测试HTTP状态码映射
func (suite *ErrorsTestSuite) TestHTTPStatus() {
	suite.Equal(400, New(ErrInvalidParam).HTTPStatus())
	suite.Equal(401, New(ErrAuthRequired).HTTPStatus())
	suite.Equal(403, New(ErrNotChallengeRecipient).HTTPStatus())
	suite.Equal(404, New(ErrChallengeNotFound).HTTPStatus())
	suite.Equal(409, New(ErrAttemptLimit).HTTPStatus())
	suite.Equal(409, New(ErrUsernameTaken).HTTPStatus())
	suite.Equal(503, New(ErrDatabaseConnect).HTTPStatus())
	suite.Equal(500, New(ErrUnknown).HTTPStatus())
}

// 测试严重错误判定
func (suite *ErrorsTestSuite) TestIsCritical() {
	suite.True(IsCritical(New(ErrDatabaseConnect)))
	suite.True(IsCritical(New(ErrConfigLoad)))
	suite.False(IsCritical(New(ErrAttemptLimit)))
	suite.False(IsCritical(nil))
}

// TestErrorsTestSuite 运行测试套件
func TestErrorsTestSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
