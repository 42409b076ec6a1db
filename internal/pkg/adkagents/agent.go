package adkagents

import (
	"fmt"
	"strings"
	"time"
)

// AgentDefinition Agent 定义（从 YAML 加载）
type AgentDefinition struct {
	Role        AgentRole `yaml:"role" json:"role"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`

	// Goal 与 Backstory 组成系统提示词，Goal 可包含 {city}
	Goal      string `yaml:"goal" json:"goal"`
	Backstory string `yaml:"backstory" json:"backstory"`

	// 任务描述，可包含 {city}
	TaskDescription string `yaml:"task" json:"task"`
	ExpectedOutput  string `yaml:"expectedOutput" json:"expected_output"`

	Tools         []string `yaml:"tools" json:"tools"`
	MaxIterations int      `yaml:"maxIterations" json:"max_iterations"`

	// 运行时填充
	Path     string    `yaml:"-" json:"path"`
	LoadedAt time.Time `yaml:"-" json:"loaded_at"`
}

// HasTool 检查 Agent 是否配置了指定工具
func (a *AgentDefinition) HasTool(toolName string) bool {
	for _, t := range a.Tools {
		if t == toolName {
			return true
		}
	}
	return false
}

// Instruction 系统提示词
func (a *AgentDefinition) Instruction(cityName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %s.\n\n", a.Name)
	fmt.Fprintf(&b, "Goal: %s\n\n", fillCity(a.Goal, cityName))
	if a.Backstory != "" {
		fmt.Fprintf(&b, "Backstory: %s\n", fillCity(a.Backstory, cityName))
	}
	return b.String()
}

// TaskPrompt 用户消息：任务描述、期望输出以及上游上下文
func (a *AgentDefinition) TaskPrompt(cityName, upstream string) string {
	var b strings.Builder
	b.WriteString(fillCity(a.TaskDescription, cityName))
	if a.ExpectedOutput != "" {
		fmt.Fprintf(&b, "\n\nExpected output: %s", fillCity(a.ExpectedOutput, cityName))
	}
	if strings.TrimSpace(upstream) != "" {
		fmt.Fprintf(&b, "\n\nInformation collected by the data collector:\n%s", upstream)
	}
	return b.String()
}

func fillCity(text, cityName string) string {
	return strings.ReplaceAll(text, CityPlaceholder, cityName)
}
