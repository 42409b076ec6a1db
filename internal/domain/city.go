package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCity 城市编号不在注册表中
var ErrInvalidCity = errors.New("invalid city")

// City 可分析的城市
type City struct {
	ID    int
	Name  string
	Token string // 文件名中用于离线识别的关键词
}

// CityRegistry 城市注册表，创建后只读
type CityRegistry struct {
	cities []City
	byID   map[int]City
}

// Cities 本部署使用的五个城市
var Cities = MustNewCityRegistry([]City{
	{ID: 1, Name: "Seabrook City", Token: "Seabrook"},
	{ID: 2, Name: "Highland Park City", Token: "Highland Park"},
	{ID: 3, Name: "Baytown City", Token: "Baytown"},
	{ID: 4, Name: "Ridgeview City", Token: "Ridgeview"},
	{ID: 5, Name: "Shoreline City", Token: "Shoreline"},
})

// NewCityRegistry 创建注册表
// 编号必须从 1 开始连续且唯一，名称不能为空
func NewCityRegistry(cities []City) (*CityRegistry, error) {
	if len(cities) == 0 {
		return nil, fmt.Errorf("city registry is empty")
	}

	r := &CityRegistry{
		cities: make([]City, len(cities)),
		byID:   make(map[int]City, len(cities)),
	}
	names := make(map[string]bool, len(cities))
	for i, c := range cities {
		if c.ID != i+1 {
			return nil, fmt.Errorf("city ids must be contiguous from 1: got %d at position %d", c.ID, i)
		}
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("city %d has empty name", c.ID)
		}
		key := strings.ToLower(c.Name)
		if names[key] {
			return nil, fmt.Errorf("duplicate city name: %s", c.Name)
		}
		names[key] = true
		r.cities[i] = c
		r.byID[c.ID] = c
	}
	return r, nil
}

func MustNewCityRegistry(cities []City) *CityRegistry {
	r, err := NewCityRegistry(cities)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *CityRegistry) Get(id int) (City, bool) {
	c, ok := r.byID[id]
	return c, ok
}

func (r *CityRegistry) Name(id int) (string, bool) {
	c, ok := r.byID[id]
	return c.Name, ok
}

func (r *CityRegistry) Exists(id int) bool {
	_, ok := r.byID[id]
	return ok
}

// Lookup 与 Get 相同，但不存在时返回 ErrInvalidCity
func (r *CityRegistry) Lookup(id int) (City, error) {
	c, ok := r.byID[id]
	if !ok {
		return City{}, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidCity, id, r.Len())
	}
	return c, nil
}

// All 按编号顺序返回全部城市
func (r *CityRegistry) All() []City {
	out := make([]City, len(r.cities))
	copy(out, r.cities)
	return out
}

func (r *CityRegistry) Len() int {
	return len(r.cities)
}

// Default 注册表中的第一个城市
func (r *CityRegistry) Default() City {
	return r.cities[0]
}

func (r *CityRegistry) Names() []string {
	names := make([]string, 0, len(r.cities))
	for _, c := range r.cities {
		names = append(names, c.Name)
	}
	return names
}

// NameMap 编号 -> 名称，用于接口返回
func (r *CityRegistry) NameMap() map[int]string {
	m := make(map[int]string, len(r.cities))
	for _, c := range r.cities {
		m[c.ID] = c.Name
	}
	return m
}

// MatchName 在模型回复中查找城市名
// 忽略大小写与首尾空白，按编号顺序第一个命中的城市胜出
func (r *CityRegistry) MatchName(text string) (City, bool) {
	haystack := strings.ToLower(strings.TrimSpace(text))
	if haystack == "" {
		return City{}, false
	}
	for _, c := range r.cities {
		if strings.Contains(haystack, strings.ToLower(c.Name)) {
			return c, true
		}
	}
	return City{}, false
}

// MatchToken 在文件名中查找城市关键词
// 同时忽略空白、下划线和连字符，HighlandPark.png 与 highland_park.png 都能命中
func (r *CityRegistry) MatchToken(text string) (City, bool) {
	haystack := squash(text)
	if haystack == "" {
		return City{}, false
	}
	for _, c := range r.cities {
		token := c.Token
		if token == "" {
			token = c.Name
		}
		if strings.Contains(haystack, squash(token)) {
			return c, true
		}
	}
	return City{}, false
}

func squash(s string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(s) {
		switch ch {
		case ' ', '\t', '_', '-':
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
