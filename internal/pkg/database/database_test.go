package database

import (
	"path/filepath"
	"testing"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/model"
)

func TestInitDBSqliteMigrates(t *testing.T) {
	db, err := InitDB("sqlite", filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("init db error: %v", err)
	}
	for _, m := range []interface{}{&model.CityDocument{}, &model.AnalysisRun{}} {
		if !db.Migrator().HasTable(m) {
			t.Fatalf("table for %T not migrated", m)
		}
	}
}
