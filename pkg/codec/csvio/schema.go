// Package csvio 作业集与分析结果的CSV列约定
//
// 每个文件第一行为表头，字段之间以 ", " 分隔。读取时允许字段两侧有空白，
// 但表头列名与顺序必须与约定完全一致。
package csvio

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaVersion 列约定版本，列名或顺序变化时递增
const SchemaVersion = 1

var (
	// JobColumns 作业文件列
	JobColumns = []string{"Task ID", "Job ID", "Arrival min", "Arrival max", "Cost min", "Cost max", "Deadline", "Priority"}
	// PrecedenceColumns 前驱约束文件列
	PrecedenceColumns = []string{"Predecessor TID", "Predecessor JID", "Successor TID", "Successor JID"}
	// AbortColumns 中止动作文件列
	AbortColumns = []string{"Task ID", "Job ID", "Earliest Trigger", "Latest Trigger", "Earliest Cleanup", "Latest Cleanup"}
	// ResponseTimeColumns 引擎输出的响应时间文件列
	ResponseTimeColumns = []string{"Task ID", "Job ID", "BCCT", "WCCT", "BCRT", "WCRT"}
)

var (
	// ErrHeaderMismatch 表头与列约定不一致
	ErrHeaderMismatch = errors.New("CSV表头与列约定不一致")
	// ErrMalformedRow 数据行无法解析
	ErrMalformedRow = errors.New("CSV数据行格式错误")
)

// Header 拼接表头行（不含换行）
func Header(columns []string) string {
	return strings.Join(columns, ", ")
}

// checkHeader 校验表头
func checkHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: 期望 %d 列，实际 %d 列 (schema v%d)", ErrHeaderMismatch, len(want), len(got), SchemaVersion)
	}
	for i := range want {
		if strings.TrimSpace(got[i]) != want[i] {
			return fmt.Errorf("%w: 第 %d 列期望 %q，实际 %q (schema v%d)",
				ErrHeaderMismatch, i+1, want[i], strings.TrimSpace(got[i]), SchemaVersion)
		}
	}
	return nil
}
