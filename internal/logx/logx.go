// Package logx 基于标准库 log 的分级日志
package logx

import (
	"log"
	"strings"
	"sync/atomic"
)

// Level 日志级别
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var current atomic.Int32

func init() {
	current.Store(int32(LevelInfo))
}

// ParseLevel 解析配置中的日志级别，无法识别时返回 info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel 设置全局日志级别
func SetLevel(l Level) {
	current.Store(int32(l))
}

// SetLevelString 按字符串设置日志级别
func SetLevelString(s string) {
	SetLevel(ParseLevel(s))
}

// Enabled 该级别是否会输出
func Enabled(l Level) bool {
	return l >= Level(current.Load())
}

func Debugf(format string, args ...interface{}) {
	if Enabled(LevelDebug) {
		log.Printf("🔍 "+format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if Enabled(LevelInfo) {
		log.Printf(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if Enabled(LevelWarn) {
		log.Printf("⚠️ "+format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if Enabled(LevelError) {
		log.Printf("❌ "+format, args...)
	}
}
