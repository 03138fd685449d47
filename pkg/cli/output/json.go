package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/fatih/color"
)

// Out 命令输出目标，测试时可替换
var Out io.Writer = os.Stdout

// PrintJSON 输出JSON格式
func PrintJSON(data interface{}) error {
	encoder := json.NewEncoder(Out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Success 输出成功消息
func Success(format string, args ...interface{}) {
	green := color.New(color.FgGreen, color.Bold)
	green.Fprintf(Out, "✅ "+format+"\n", args...)
}

// Error 输出错误消息
func Error(format string, args ...interface{}) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(Out, "❌ "+format+"\n", args...)
}

// Info 输出信息
func Info(format string, args ...interface{}) {
	cyan := color.New(color.FgCyan)
	cyan.Fprintf(Out, "ℹ️  "+format+"\n", args...)
}

// Warning 输出警告
func Warning(format string, args ...interface{}) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(Out, "⚠️  "+format+"\n", args...)
}

// Verdict 着色的分析结论
func Verdict(verdict string) string {
	switch verdict {
	case "schedulable":
		return color.GreenString(verdict)
	case "unschedulable":
		return color.YellowString(verdict)
	case "failed":
		return color.RedString(verdict)
	default:
		return verdict
	}
}
