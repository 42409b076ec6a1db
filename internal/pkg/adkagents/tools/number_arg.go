package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// parseNumberArg 解析 {"number": <非负整数>}
// 字符串、小数、负数以及缺失字段都视为参数错误
func parseNumberArg(arguments string) (int, error) {
	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return 0, fmt.Errorf("arguments must be a JSON object: %w", err)
	}

	raw, ok := args["number"]
	if !ok || len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return 0, fmt.Errorf("missing required parameter 'number'")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("invalid 'number': %w", err)
	}

	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("'number' must be an integer, got %s", string(raw))
	}
	n, err := num.Int64()
	if err != nil {
		return 0, fmt.Errorf("'number' must be an integer, got %s", num.String())
	}
	if n < 0 {
		return 0, fmt.Errorf("'number' must not be negative, got %d", n)
	}
	if n > int64(maxPeople) {
		return 0, fmt.Errorf("'number' is too large, got %d", n)
	}
	return int(n), nil
}

// maxPeople 防止乘法溢出
const maxPeople = 1 << 40
