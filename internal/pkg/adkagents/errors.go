// Package adkagents 提供灾情分析 Agent 的 YAML 配置化管理与执行
package adkagents

import "errors"

// 错误定义
var (
	// ErrAgentNotFound Agent 不存在
	ErrAgentNotFound = errors.New("agent not found")

	// ErrInvalidConfig 配置文件无效
	ErrInvalidConfig = errors.New("invalid agent config")

	// ErrToolNotFound 工具不存在
	ErrToolNotFound = errors.New("tool not found")

	// ErrAgentAlreadyExists 同一角色重复定义
	ErrAgentAlreadyExists = errors.New("agent already exists")

	// ErrConfigNotFound 配置文件不存在
	ErrConfigNotFound = errors.New("config file not found")

	// ErrEmptyOutput Agent 没有产生任何输出
	ErrEmptyOutput = errors.New("agent produced no output")
)
