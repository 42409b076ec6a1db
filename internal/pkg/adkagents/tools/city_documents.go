package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/model"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/metrics"
)

const CityDocumentsToolName = "search_city_documents"

// DocumentStore 资料检索所需的存储能力
type DocumentStore interface {
	ListByCity(cityID int) ([]model.CityDocument, error)
	SearchInCity(cityID int, keywords []string) ([]model.CityDocument, error)
}

// CityDocumentsTool 城市资料检索工具
// 每次分析针对一个城市创建，模型无法越界查询其他城市
type CityDocumentsTool struct {
	store    DocumentStore
	cityID   int
	cityName string
}

func NewCityDocumentsTool(store DocumentStore, cityID int, cityName string) *CityDocumentsTool {
	return &CityDocumentsTool{store: store, cityID: cityID, cityName: cityName}
}

func (t *CityDocumentsTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: CityDocumentsToolName,
		Desc: fmt.Sprintf("Search the disaster dossier of %s. Returns fragments about population, disaster details, casualties and infrastructure damage. Leave query empty to get the whole dossier.", t.cityName),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type: schema.String,
				Desc: "Space separated keywords, e.g. 'population casualties'",
			},
		}),
	}, nil
}

func (t *CityDocumentsTool) InvokableRun(ctx context.Context, arguments string, opts ...tool.Option) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			klog.Warningf("[CityDocumentsTool] 参数解析失败: args=%s, err=%v", arguments, err)
			metrics.ToolInvocations.WithLabelValues(CityDocumentsToolName, "invalid").Inc()
			return fmt.Sprintf("Error: invalid arguments: %v", err), nil
		}
	}

	docs, err := t.search(args.Query)
	if err != nil {
		klog.Errorf("[CityDocumentsTool] 检索失败: city=%s, query=%s, err=%v", t.cityName, args.Query, err)
		metrics.ToolInvocations.WithLabelValues(CityDocumentsToolName, "error").Inc()
		return fmt.Sprintf("Error: %v", err), nil
	}

	klog.V(6).Infof("[CityDocumentsTool] 检索完成: city=%s, query=%s, hits=%d", t.cityName, args.Query, len(docs))
	metrics.ToolInvocations.WithLabelValues(CityDocumentsToolName, "ok").Inc()

	if len(docs) == 0 {
		return fmt.Sprintf("No documents found for %s.", t.cityName), nil
	}
	return formatDocuments(t.cityName, docs), nil
}

// search 查询为空或无命中时返回该城市的全部资料
func (t *CityDocumentsTool) search(query string) ([]model.CityDocument, error) {
	keywords := strings.Fields(query)
	if len(keywords) > 0 {
		docs, err := t.store.SearchInCity(t.cityID, keywords)
		if err != nil {
			return nil, err
		}
		if len(docs) > 0 {
			return docs, nil
		}
	}
	return t.store.ListByCity(t.cityID)
}

func formatDocuments(cityName string, docs []model.CityDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s dossier\n", cityName)
	for _, d := range docs {
		section := d.Section
		if section == "" {
			section = "general"
		}
		fmt.Fprintf(&b, "\n## %s\n%s\n", section, strings.TrimSpace(d.Content))
		if d.Source != "" {
			fmt.Fprintf(&b, "(source: %s)\n", d.Source)
		}
	}
	return b.String()
}
