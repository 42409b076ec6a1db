package adkagents

import (
	_ "embed"
	"fmt"

	"k8s.io/klog/v2"
)

//go:embed agents.yaml
var defaultAgents []byte

// Loader Agent 配置加载器
type Loader struct {
	parser   *Parser
	registry *Registry
}

// NewLoader 创建加载器
func NewLoader(parser *Parser, registry *Registry) *Loader {
	return &Loader{
		parser:   parser,
		registry: registry,
	}
}

// Load 加载 Agent 定义
// path 为空时使用内置定义；文件解析失败直接返回错误，不回退
func (l *Loader) Load(path string) ([]*AgentDefinition, error) {
	var (
		defs []*AgentDefinition
		err  error
	)
	if path == "" {
		defs, err = l.parser.Parse(defaultAgents)
		if err != nil {
			return nil, fmt.Errorf("built-in agents invalid: %w", err)
		}
		klog.V(6).Infof("[Loader] 使用内置 Agent 定义: count=%d", len(defs))
	} else {
		defs, err = l.parser.ParseFile(path)
		if err != nil {
			return nil, err
		}
		klog.V(6).Infof("[Loader] 从文件加载 Agent 定义: path=%s, count=%d", path, len(defs))
	}

	l.registry.Replace(defs)
	return defs, nil
}
