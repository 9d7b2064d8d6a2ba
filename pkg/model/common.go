// Package model 定义重排引擎的核心数据模型
package model

import (
	"time"
)

// TimeRange 时间范围（半开区间 [Start, End)）
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps 检查两个时间范围是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// Minutes 返回时间范围的分钟数
func (tr TimeRange) Minutes() int {
	return int(tr.End.Sub(tr.Start) / time.Minute)
}
