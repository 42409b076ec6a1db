package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/model"
)

type analysisRunRepository struct {
	db *gorm.DB
}

func NewAnalysisRunRepository(db *gorm.DB) AnalysisRunRepository {
	return &analysisRunRepository{db: db}
}

func (r *analysisRunRepository) Create(run *model.AnalysisRun) error {
	return r.db.Create(run).Error
}

func (r *analysisRunRepository) Save(run *model.AnalysisRun) error {
	return r.db.Save(run).Error
}

func (r *analysisRunRepository) GetByRunID(runID string) (*model.AnalysisRun, error) {
	var run model.AnalysisRun
	err := r.db.Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

func (r *analysisRunRepository) ListRecent(limit int) ([]model.AnalysisRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []model.AnalysisRun
	err := r.db.Order("id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// CleanupStuckRuns 进程重启后遗留的 running 记录标记为失败
func (r *analysisRunRepository) CleanupStuckRuns(timeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-timeout)
	result := r.db.Model(&model.AnalysisRun{}).
		Where("status = ? AND started_at < ?", model.AnalysisStatusRunning, cutoff).
		Updates(map[string]interface{}{
			"status":    model.AnalysisStatusFailed,
			"error_msg": fmt.Sprintf("analysis did not finish within %v", timeout),
		})
	return result.RowsAffected, result.Error
}
