package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/domain"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/model"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/repository"
)

//go:embed dossier/cities.yaml
var defaultDossier []byte

// Dossier 资料文件结构
type Dossier struct {
	Source string        `yaml:"source"`
	Cities []CityDossier `yaml:"cities"`
}

type CityDossier struct {
	City     string    `yaml:"city"`
	Source   string    `yaml:"source"`
	Sections []Section `yaml:"sections"`
}

type Section struct {
	Name    string `yaml:"name"`
	Content string `yaml:"content"`
}

// LoadResult 单个城市的导入结果
type LoadResult struct {
	CityID    int
	CityName  string
	Documents int
}

// Loader 资料导入
type Loader struct {
	repo   repository.CityDocumentRepository
	cities *domain.CityRegistry
}

func NewLoader(repo repository.CityDocumentRepository, cities *domain.CityRegistry) *Loader {
	return &Loader{repo: repo, cities: cities}
}

// Parse 解析资料 YAML
func Parse(data []byte) (*Dossier, error) {
	var d Dossier
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse dossier: %w", err)
	}
	if len(d.Cities) == 0 {
		return nil, fmt.Errorf("dossier has no cities")
	}
	return &d, nil
}

// LoadFile 从文件导入，文件不存在时使用内置资料
func (l *Loader) LoadFile(path string) ([]LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read dossier %s: %w", path, err)
		}
		klog.V(6).Infof("[Knowledge] 资料文件不存在，使用内置资料: path=%s", path)
		data = defaultDossier
	}
	return l.Load(data)
}

// Load 导入资料
// 每个城市在一个事务内整体替换，未知城市跳过
func (l *Loader) Load(data []byte) ([]LoadResult, error) {
	d, err := Parse(data)
	if err != nil {
		return nil, err
	}

	results := make([]LoadResult, 0, len(d.Cities))
	for _, cd := range d.Cities {
		city, ok := l.resolveCity(cd.City)
		if !ok {
			klog.Warningf("[Knowledge] 资料中的城市不在注册表中，跳过: %s", cd.City)
			continue
		}

		source := cd.Source
		if source == "" {
			source = d.Source
		}

		docs := make([]model.CityDocument, 0, len(cd.Sections))
		for i, s := range cd.Sections {
			content := strings.TrimSpace(s.Content)
			if content == "" {
				continue
			}
			docs = append(docs, model.CityDocument{
				CityID:    city.ID,
				CityName:  city.Name,
				Section:   strings.TrimSpace(s.Name),
				Content:   content,
				Source:    source,
				SortOrder: i + 1,
			})
		}

		if err := l.repo.ReplaceCity(city.ID, docs); err != nil {
			return results, fmt.Errorf("failed to store dossier for %s: %w", city.Name, err)
		}
		klog.V(6).Infof("[Knowledge] 城市资料已导入: city=%s, documents=%d", city.Name, len(docs))
		results = append(results, LoadResult{CityID: city.ID, CityName: city.Name, Documents: len(docs)})
	}
	return results, nil
}

// resolveCity 资料里的城市名必须与注册表完全一致（忽略大小写）
func (l *Loader) resolveCity(name string) (domain.City, bool) {
	name = strings.TrimSpace(name)
	for _, c := range l.cities.All() {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return domain.City{}, false
}
