package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Vision   VisionConfig   `yaml:"vision"`
	Data     DataConfig     `yaml:"data"`
	Agent    AgentConfig    `yaml:"agent"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // sqlite, mysql
	DSN  string `yaml:"dsn"`
}

// LLMConfig Agent 使用的 OpenAI 兼容模型
type LLMConfig struct {
	APIURL      string  `yaml:"api_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// VisionConfig 卫星图识别使用的视觉模型（Gemini）
type VisionConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// placeholderKeys 示例配置里常见的占位 Key，视为未配置
var placeholderKeys = []string{
	"your_google_api_key_here",
	"your_api_key_here",
	"changeme",
}

// Available 视觉服务是否可用
// 不发起网络请求，仅根据 Key 判断
func (v VisionConfig) Available() bool {
	key := strings.TrimSpace(v.APIKey)
	if key == "" {
		return false
	}
	for _, p := range placeholderKeys {
		if strings.EqualFold(key, p) {
			return false
		}
	}
	return true
}

type DataConfig struct {
	Dir         string `yaml:"dir"`
	UploadDir   string `yaml:"upload_dir"`
	DossierPath string `yaml:"dossier_path"` // 城市灾情资料 YAML
	TestImage   string `yaml:"test_image"`   // /test-analysis/ 使用的示例图片
}

type AgentConfig struct {
	File           string        `yaml:"file"` // 为空时使用内置的 Agent 定义
	MaxIterations  int           `yaml:"max_iterations"`
	ReloadInterval time.Duration `yaml:"reload_interval"` // 0 表示不监听 file 变更
}

// 缺失报告的处理策略
const (
	MissingReportsOmit        = "omit"
	MissingReportsPlaceholder = "placeholder"
)

type AnalysisConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	DefaultCityID  int           `yaml:"default_city_id"`
	MaxWorkers     int           `yaml:"max_workers"`
	FailFast       bool          `yaml:"fail_fast"`
	MissingReports string        `yaml:"missing_reports"` // omit, placeholder
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

// Default 返回默认配置，不读取文件和环境变量
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "./data/app.db",
		},
		LLM: LLMConfig{
			APIURL:      "https://api.openai.com/v1",
			Model:       "gpt-4o",
			MaxTokens:   4096,
			Temperature: 0.5,
		},
		Vision: VisionConfig{
			Model:   "gemini-2.5-flash",
			Timeout: 60 * time.Second,
		},
		Data: DataConfig{
			Dir:         "./data",
			UploadDir:   "./data/uploads",
			DossierPath: "./data/cities.yaml",
			TestImage:   "./data/samples/Baytown.png",
		},
		Agent: AgentConfig{
			MaxIterations: 10,
		},
		Analysis: AnalysisConfig{
			Timeout:        5 * time.Minute,
			DefaultCityID:  1,
			MaxWorkers:     4,
			FailFast:       true,
			MissingReports: MissingReportsOmit,
		},
	}
}

func loadConfig() *Config {
	// .env 不存在时忽略，直接使用环境变量
	if err := godotenv.Load(); err != nil {
		klog.V(6).Infof("[Config] 未加载 .env 文件: %v", err)
	}

	config := Default()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			klog.Warningf("[Config] 解析配置文件失败，使用默认配置: path=%s, err=%v", configPath, err)
		}
	}

	applyEnv(config)
	config.normalize()
	return config
}

// applyEnv 环境变量优先级高于配置文件
func applyEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.APIURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL_NAME"); model != "" {
		config.LLM.Model = model
	}

	// 兼容 GOOGLE_API_KEY 与 GEMINI_API_KEY 两种写法
	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		config.Vision.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Vision.APIKey = apiKey
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.Vision.Model = model
	}
	if d, ok := envDuration("VISION_TIMEOUT"); ok {
		config.Vision.Timeout = d
	}

	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if dbDSN := os.Getenv("DB_DSN"); dbDSN != "" {
		config.Database.DSN = dbDSN
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		config.Data.Dir = dataDir
	}
	if uploadDir := os.Getenv("UPLOAD_DIR"); uploadDir != "" {
		config.Data.UploadDir = uploadDir
	}
	if dossier := os.Getenv("DOSSIER_PATH"); dossier != "" {
		config.Data.DossierPath = dossier
	}
	if testImage := os.Getenv("TEST_IMAGE"); testImage != "" {
		config.Data.TestImage = testImage
	}

	if agentFile := os.Getenv("AGENT_FILE"); agentFile != "" {
		config.Agent.File = agentFile
	}
	if d, ok := envDuration("AGENT_RELOAD_INTERVAL"); ok {
		config.Agent.ReloadInterval = d
	}

	if d, ok := envDuration("ANALYSIS_TIMEOUT"); ok {
		config.Analysis.Timeout = d
	}
	if policy := os.Getenv("MISSING_REPORTS"); policy != "" {
		config.Analysis.MissingReports = policy
	}
	if v := os.Getenv("ANALYSIS_FAIL_FAST"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Analysis.FailFast = b
		} else {
			klog.Warningf("[Config] ANALYSIS_FAIL_FAST 无效，忽略: %s", v)
		}
	}
	if v := os.Getenv("ANALYSIS_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Analysis.MaxWorkers = n
		} else {
			klog.Warningf("[Config] ANALYSIS_MAX_WORKERS 无效，忽略: %s", v)
		}
	}
	if v := os.Getenv("DEFAULT_CITY_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			config.Analysis.DefaultCityID = id
		} else {
			klog.Warningf("[Config] DEFAULT_CITY_ID 无效，忽略: %s", v)
		}
	}
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		klog.Warningf("[Config] %s 无效，忽略: %s", key, v)
		return 0, false
	}
	return d, true
}

// normalize 补齐缺省值
func (c *Config) normalize() {
	if c.Data.UploadDir == "" {
		c.Data.UploadDir = filepath.Join(c.Data.Dir, "uploads")
	}
	if c.Vision.Timeout <= 0 {
		c.Vision.Timeout = 60 * time.Second
	}
	if c.Analysis.Timeout <= 0 {
		c.Analysis.Timeout = 5 * time.Minute
	}
	if c.Analysis.MaxWorkers <= 0 {
		c.Analysis.MaxWorkers = 4
	}
	if c.Analysis.MissingReports != MissingReportsPlaceholder {
		c.Analysis.MissingReports = MissingReportsOmit
	}
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = 10
	}
}
