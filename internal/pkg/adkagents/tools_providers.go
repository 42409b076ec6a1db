package adkagents

import (
	"fmt"

	"github.com/cloudwego/eino/components/tool"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/adkagents/tools"
)

// ToolProvider 为一次分析提供工具，资料检索工具绑定到当前城市
type ToolProvider struct {
	Store    tools.DocumentStore
	CityID   int
	CityName string
}

// GetTool 获取指定名称的工具
func (p *ToolProvider) GetTool(name string) (tool.BaseTool, error) {
	switch name {
	case tools.CityDocumentsToolName:
		if p.Store == nil {
			return nil, fmt.Errorf("%w: %s requires a document store", ErrToolNotFound, name)
		}
		return tools.NewCityDocumentsTool(p.Store, p.CityID, p.CityName), nil
	case tools.FoodToolName:
		return tools.NewFoodNeedsTool(), nil
	case tools.DispatchToolName:
		return tools.NewDispatchTool(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
}

// ListTools 列出所有可用工具名称
func ListTools() []string {
	return []string{tools.CityDocumentsToolName, tools.FoodToolName, tools.DispatchToolName}
}
