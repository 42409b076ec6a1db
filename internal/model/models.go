package model

import (
	"time"
)

// CityDocument 城市灾情资料片段，供 search_city_documents 工具检索
type CityDocument struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CityID    int       `json:"city_id" gorm:"index;not null"`
	CityName  string    `json:"city_name" gorm:"size:255;not null"`
	Section   string    `json:"section" gorm:"size:255"` // population, disaster, casualties, infrastructure ...
	Content   string    `json:"content" gorm:"type:text;not null"`
	Source    string    `json:"source" gorm:"size:500"`
	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// 分析记录状态
const (
	AnalysisStatusRunning   = "running"
	AnalysisStatusSucceeded = "succeeded"
	AnalysisStatusFailed    = "failed"
)

// AnalysisRun 一次灾情分析的执行记录
type AnalysisRun struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	RunID       string     `json:"run_id" gorm:"size:64;uniqueIndex;not null"`
	CityID      int        `json:"city_id" gorm:"index;not null"`
	CityName    string     `json:"city_name" gorm:"size:255"`
	Status      string     `json:"status" gorm:"size:50;default:running"` // running, succeeded, failed
	ErrorMsg    string     `json:"error_msg" gorm:"size:1000"`
	Reports     int        `json:"reports" gorm:"default:0"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
