package domain

// ResolutionResult 一次图片识别的结果，不持久化
type ResolutionResult struct {
	CityID      int    `json:"city_id,omitempty"` // 0 表示未识别
	CityName    string `json:"city_name,omitempty"`
	Matched     bool   `json:"matched"`
	RawResponse string `json:"raw_response,omitempty"`
	Mock        bool   `json:"mock"`
}

// Unmatched 未命中任何城市
func Unmatched(raw string) ResolutionResult {
	return ResolutionResult{RawResponse: raw}
}

// MatchedCity 命中指定城市
func MatchedCity(c City, raw string) ResolutionResult {
	return ResolutionResult{
		CityID:      c.ID,
		CityName:    c.Name,
		Matched:     true,
		RawResponse: raw,
	}
}
