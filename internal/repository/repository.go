package repository

import (
	"errors"
	"time"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/model"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

type CityDocumentRepository interface {
	CreateBatch(docs []model.CityDocument) error
	// ReplaceCity 在一个事务内删除城市旧资料并写入新资料
	ReplaceCity(cityID int, docs []model.CityDocument) error
	DeleteByCity(cityID int) error
	ListByCity(cityID int) ([]model.CityDocument, error)
	SearchInCity(cityID int, keywords []string) ([]model.CityDocument, error)
	CountByCity(cityID int) (int64, error)
}

type AnalysisRunRepository interface {
	Create(run *model.AnalysisRun) error
	Save(run *model.AnalysisRun) error
	GetByRunID(runID string) (*model.AnalysisRun, error)
	ListRecent(limit int) ([]model.AnalysisRun, error)
	CleanupStuckRuns(timeout time.Duration) (int64, error)
}
