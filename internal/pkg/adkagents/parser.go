package adkagents

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// agentsFile agents.yaml 的结构
type agentsFile struct {
	Agents []*AgentDefinition `yaml:"agents"`
}

// Parser Agent 配置解析器
type Parser struct {
	maxNameLen        int
	maxGoalLen        int
	maxIterationLimit int
	knownTools        map[string]bool
}

// NewParser 创建解析器
// knownTools 为可绑定的工具名称，定义中引用其他工具视为配置错误
func NewParser(knownTools []string) *Parser {
	known := make(map[string]bool, len(knownTools))
	for _, t := range knownTools {
		known[t] = true
	}
	return &Parser{
		maxNameLen:        64,
		maxGoalLen:        8 * 1024,
		maxIterationLimit: 100,
		knownTools:        known,
	}
}

// ParseFile 解析 Agent 配置文件
func (p *Parser) ParseFile(configPath string) ([]*AgentDefinition, error) {
	configPath = filepath.Clean(configPath)

	content, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("failed to read agent config: %w", err)
	}

	defs, err := p.Parse(content)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		def.Path = configPath
	}
	return defs, nil
}

// Parse 解析并校验全部定义
// 每个角色必须且只能定义一次
func (p *Parser) Parse(content []byte) ([]*AgentDefinition, error) {
	var file agentsFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	seen := make(map[AgentRole]bool, len(file.Agents))
	for _, def := range file.Agents {
		if def == nil {
			return nil, fmt.Errorf("%w: empty agent entry", ErrInvalidConfig)
		}
		def.LoadedAt = Now()
		if err := p.Validate(def); err != nil {
			return nil, err
		}
		if seen[def.Role] {
			return nil, fmt.Errorf("%w: role %s", ErrAgentAlreadyExists, def.Role)
		}
		seen[def.Role] = true
	}

	for _, role := range Roles {
		if !seen[role] {
			return nil, fmt.Errorf("%w: missing definition for role %s", ErrInvalidConfig, role)
		}
	}
	return file.Agents, nil
}

// Validate 校验单个 Agent 配置
func (p *Parser) Validate(def *AgentDefinition) error {
	if !def.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidConfig, def.Role)
	}

	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("%w: name is required for role %s", ErrInvalidConfig, def.Role)
	}
	if len(def.Name) > p.maxNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidConfig, p.maxNameLen)
	}

	if strings.TrimSpace(def.Goal) == "" {
		return fmt.Errorf("%w: goal is required for role %s", ErrInvalidConfig, def.Role)
	}
	if len(def.Goal) > p.maxGoalLen {
		return fmt.Errorf("%w: goal exceeds %d characters", ErrInvalidConfig, p.maxGoalLen)
	}
	if strings.TrimSpace(def.TaskDescription) == "" {
		return fmt.Errorf("%w: task is required for role %s", ErrInvalidConfig, def.Role)
	}

	for _, t := range def.Tools {
		if !p.knownTools[t] {
			return fmt.Errorf("%w: role %s references %s", ErrToolNotFound, def.Role, t)
		}
	}

	// 0 表示使用全局配置
	if def.MaxIterations < 0 {
		return fmt.Errorf("%w: maxIterations must not be negative", ErrInvalidConfig)
	}
	if def.MaxIterations > p.maxIterationLimit {
		return fmt.Errorf("%w: maxIterations cannot exceed %d", ErrInvalidConfig, p.maxIterationLimit)
	}

	return nil
}
