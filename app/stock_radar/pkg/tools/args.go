// Package tools 提供可被角色调用的工具，实现 eino 的 tool.InvokableTool。
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

// decodeArgs 解析模型生成的工具参数，格式不合法时先尝试修复
func decodeArgs(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.RepairJSON(raw)
	if err != nil {
		return fmt.Errorf("invalid tool arguments %q: %w", raw, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("invalid tool arguments %q: %w", raw, err)
	}
	return nil
}
