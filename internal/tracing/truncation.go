package tracing

import (
	"path/filepath"
	"strings"
)

const (
	maxAttrLen = 200
	maxSQLLen  = 500
	maxKeyLen  = 120
)

// Truncate 超长时保留首尾，中间用 ... 连接
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	half := (maxLen - 3) / 2
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// MaskPII 只保留首尾字符
func MaskPII(value string) string {
	runes := []rune(value)
	switch n := len(runes); {
	case n == 0:
		return ""
	case n == 1:
		return "*"
	case n == 2:
		return string(runes[0]) + "*"
	case n <= 4:
		return string(runes[0]) + strings.Repeat("*", n-2) + string(runes[n-1])
	default:
		return string(runes[:2]) + strings.Repeat("*", n-4) + string(runes[n-2:])
	}
}

// SafeDocumentName 简历文件名常含候选人姓名，主体部分掩码，扩展名保留
func SafeDocumentName(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(filepath.Base(name), ext)
	return Truncate(MaskPII(stem)+strings.ToLower(ext), maxAttrLen)
}

// SafeSQL 截断 SQL 语句
func SafeSQL(sql string) string {
	return Truncate(sql, maxSQLLen)
}

// SafeKey 截断 Redis 键或对象存储键
func SafeKey(key string) string {
	return Truncate(key, maxKeyLen)
}
