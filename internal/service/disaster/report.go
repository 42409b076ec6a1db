package disaster

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// 报告标签，顺序即输出顺序
const (
	LabelNeeds     = "Needs Analyst Agent"
	LabelDispatch  = "Help Dispatcher Agent"
	LabelResources = "Resource Allocator Agent"
	LabelDamage    = "Damage Analyser"
)

// MissingReportPrefix 占位策略下缺失报告的文本前缀
const MissingReportPrefix = "Report unavailable: "

type ReportEntry struct {
	Label string
	Text  string
}

// Report 有序的标签 -> 报告文本
// 序列化为 JSON 对象时保持插入顺序
type Report struct {
	entries []ReportEntry
}

func (r *Report) add(label, text string) {
	r.entries = append(r.entries, ReportEntry{Label: label, Text: text})
}

func (r *Report) Entries() []ReportEntry {
	out := make([]ReportEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Report) Get(label string) (string, bool) {
	for _, e := range r.entries {
		if e.Label == label {
			return e.Text, true
		}
	}
	return "", false
}

func (r *Report) Labels() []string {
	labels := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		labels = append(labels, e.Label)
	}
	return labels
}

func (r *Report) Len() int {
	return len(r.entries)
}

func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 按文档顺序读取键
func (r *Report) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("report must be a JSON object")
	}

	r.entries = nil
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("report key must be a string")
		}
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("report value for %q: %w", key, err)
		}
		r.add(key, text)
	}
	_, err = dec.Token()
	return err
}
