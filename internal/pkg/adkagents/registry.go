package adkagents

import (
	"fmt"
	"sync"
)

// Registry Agent 定义注册表，按角色索引
type Registry struct {
	agents map[AgentRole]*AgentDefinition
	mutex  sync.RWMutex
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[AgentRole]*AgentDefinition),
	}
}

// Register 注册 Agent 定义，同一角色重复注册返回 ErrAgentAlreadyExists
func (r *Registry) Register(def *AgentDefinition) error {
	if def == nil {
		return fmt.Errorf("%w: agent definition is nil", ErrInvalidConfig)
	}
	if !def.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidConfig, def.Role)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.agents[def.Role]; exists {
		return fmt.Errorf("%w: %s", ErrAgentAlreadyExists, def.Role)
	}
	r.agents[def.Role] = def
	return nil
}

// Replace 用新定义整体替换注册表内容
func (r *Registry) Replace(defs []*AgentDefinition) {
	agents := make(map[AgentRole]*AgentDefinition, len(defs))
	for _, def := range defs {
		agents[def.Role] = def
	}

	r.mutex.Lock()
	r.agents = agents
	r.mutex.Unlock()
}

// Get 获取 Agent 定义，不存在时返回 ErrAgentNotFound
func (r *Registry) Get(role AgentRole) (*AgentDefinition, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	def, exists := r.agents[role]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, role)
	}
	return def, nil
}

// List 按执行顺序列出 Agent 定义
func (r *Registry) List() []*AgentDefinition {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*AgentDefinition, 0, len(r.agents))
	for _, role := range Roles {
		if def, ok := r.agents[role]; ok {
			result = append(result, def)
		}
	}
	return result
}

func (r *Registry) Exists(role AgentRole) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.agents[role]
	return exists
}

func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.agents)
}
