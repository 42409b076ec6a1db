package adkagents

import (
	"fmt"
	"time"
)

// AgentRole Agent 在分析流程中的角色
type AgentRole string

const (
	RoleDataCollector     AgentRole = "data_collector"
	RoleNeedsAnalyst      AgentRole = "needs_analyst"
	RoleAidDispatcher     AgentRole = "aid_dispatcher"
	RoleResourceAllocator AgentRole = "resource_allocator"
	RoleDamageAnalyser    AgentRole = "damage_analyser"
)

// Roles 按执行顺序排列的全部角色
var Roles = []AgentRole{
	RoleDataCollector,
	RoleNeedsAnalyst,
	RoleAidDispatcher,
	RoleResourceAllocator,
	RoleDamageAnalyser,
}

func (r AgentRole) Valid() bool {
	for _, role := range Roles {
		if role == r {
			return true
		}
	}
	return false
}

func ParseRole(s string) (AgentRole, error) {
	r := AgentRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidConfig, s)
	}
	return r, nil
}

// CityPlaceholder 目标与任务文本中的城市占位符
const CityPlaceholder = "{city}"

// Task 一次 Agent 调用的输入
type Task struct {
	Role     AgentRole
	CityID   int
	CityName string
	// Context 上游任务的输出，数据收集任务为空
	Context string
}

// Now 返回当前时间（用于测试）
var Now = func() time.Time {
	return time.Now()
}
