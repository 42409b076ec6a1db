package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/model"
)

type cityDocumentRepository struct {
	db *gorm.DB
}

func NewCityDocumentRepository(db *gorm.DB) CityDocumentRepository {
	return &cityDocumentRepository{db: db}
}

func (r *cityDocumentRepository) CreateBatch(docs []model.CityDocument) error {
	if len(docs) == 0 {
		return nil
	}
	return r.db.Create(&docs).Error
}

func (r *cityDocumentRepository) ReplaceCity(cityID int, docs []model.CityDocument) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("city_id = ?", cityID).Delete(&model.CityDocument{}).Error; err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}
		return tx.Create(&docs).Error
	})
}

func (r *cityDocumentRepository) DeleteByCity(cityID int) error {
	return r.db.Where("city_id = ?", cityID).Delete(&model.CityDocument{}).Error
}

func (r *cityDocumentRepository) ListByCity(cityID int) ([]model.CityDocument, error) {
	var docs []model.CityDocument
	err := r.db.Where("city_id = ?", cityID).Order("sort_order, id").Find(&docs).Error
	return docs, err
}

// SearchInCity 关键词之间是 OR 关系，section 与 content 均参与匹配
func (r *cityDocumentRepository) SearchInCity(cityID int, keywords []string) ([]model.CityDocument, error) {
	var docs []model.CityDocument
	if cityID == 0 {
		return docs, nil
	}

	var orCond *gorm.DB
	for _, kw := range keywords {
		keyword := strings.ToLower(strings.TrimSpace(kw))
		if keyword == "" {
			continue
		}
		pat := "%" + keyword + "%"
		nextCond := r.db.
			Where("LOWER(section) LIKE ?", pat).
			Or("LOWER(content) LIKE ?", pat)
		if orCond == nil {
			orCond = nextCond
		} else {
			orCond = orCond.Or(nextCond)
		}
	}

	if orCond == nil {
		return docs, nil
	}

	err := r.db.Model(&model.CityDocument{}).
		Where("city_id = ?", cityID).
		Where(orCond).
		Order("sort_order, id").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *cityDocumentRepository) CountByCity(cityID int) (int64, error) {
	var count int64
	err := r.db.Model(&model.CityDocument{}).Where("city_id = ?", cityID).Count(&count).Error
	return count, err
}
