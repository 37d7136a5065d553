package repository

import (
	"strings"
)

// isUniqueViolation 判断是否为唯一约束冲突
// 三种受支持驱动的错误文案各不相同，这里按子串匹配。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Duplicate entry") || // mysql
		strings.Contains(msg, "duplicate key value") // postgres
}
