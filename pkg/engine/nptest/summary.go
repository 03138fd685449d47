package nptest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrBadSummary 无法解析的摘要行
var ErrBadSummary = errors.New("无法解析nptest摘要输出")

// Summary nptest 每次运行输出的一行摘要
//
//	<file>, <schedulable>, <#jobs>, <#states>, <#edges>, <max width>, <cpu seconds>, <memory MiB>, <timeout>, <#cpus>
type Summary struct {
	File        string
	Schedulable bool
	Jobs        int64
	States      int64
	Edges       int64
	MaxWidth    int64
	CPUTime     time.Duration
	MemoryMiB   float64
	TimedOut    bool
	Processors  int
}

const summaryFields = 10

// ParseSummary 解析摘要行
func ParseSummary(line string) (Summary, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) < 7 {
		return Summary{}, fmt.Errorf("%w: %q", ErrBadSummary, line)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var s Summary
	var err error
	s.File = parts[0]
	if s.Schedulable, err = parseFlag(parts[1]); err != nil {
		return Summary{}, fmt.Errorf("%w: schedulable=%q", ErrBadSummary, parts[1])
	}
	ints := []*int64{&s.Jobs, &s.States, &s.Edges, &s.MaxWidth}
	for i, dst := range ints {
		if *dst, err = strconv.ParseInt(parts[2+i], 10, 64); err != nil {
			return Summary{}, fmt.Errorf("%w: 第 %d 列 %q", ErrBadSummary, 3+i, parts[2+i])
		}
	}
	seconds, err := strconv.ParseFloat(parts[6], 64)
	if err != nil || seconds < 0 {
		return Summary{}, fmt.Errorf("%w: cpu=%q", ErrBadSummary, parts[6])
	}
	s.CPUTime = time.Duration(seconds * float64(time.Second))

	// 旧版本只输出前7列
	if len(parts) >= summaryFields {
		if s.MemoryMiB, err = strconv.ParseFloat(parts[7], 64); err != nil {
			return Summary{}, fmt.Errorf("%w: memory=%q", ErrBadSummary, parts[7])
		}
		if s.TimedOut, err = parseFlag(parts[8]); err != nil {
			return Summary{}, fmt.Errorf("%w: timeout=%q", ErrBadSummary, parts[8])
		}
		if s.Processors, err = strconv.Atoi(parts[9]); err != nil {
			return Summary{}, fmt.Errorf("%w: cpus=%q", ErrBadSummary, parts[9])
		}
	}
	return s, nil
}

// lastSummary 取输出中最后一行非空摘要
func lastSummary(out []byte) (Summary, error) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		return ParseSummary(lines[i])
	}
	return Summary{}, fmt.Errorf("%w: 输出为空", ErrBadSummary)
}

func parseFlag(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}
	return false, fmt.Errorf("非法标志 %q", s)
}
