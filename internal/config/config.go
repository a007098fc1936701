package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 凭据环境变量
const (
	EnvGoogleAPIKey   = "GOOGLE_API_KEY"
	EnvSearchEngineID = "SEARCH_ENGINE_ID"
	EnvConfigFile     = "CONFIG_FILE"
)

// ErrMissingCredentials google 提供者缺少凭据
var ErrMissingCredentials = errors.New("missing Google Custom Search credentials")

// Config 应用配置
type Config struct {
	// 搜索配置
	Search SearchConfig `yaml:"search"`

	// Google Custom Search 配置
	Google GoogleConfig `yaml:"google"`

	// 代理配置
	Proxy ProxyConfig `yaml:"proxy"`

	// 浏览器配置
	Browser BrowserConfig `yaml:"browser"`

	// 输出片段配置
	Fragment FragmentConfig `yaml:"fragment"`

	// 服务器配置
	Server ServerConfig `yaml:"server"`

	// 日志配置
	Log LogConfig `yaml:"log"`
}

// SearchConfig 搜索配置
type SearchConfig struct {
	Provider  string        `yaml:"provider"`
	Endpoint  string        `yaml:"endpoint"`
	Timeout   time.Duration `yaml:"timeout"`
	Market    string        `yaml:"market"`
	UserAgent string        `yaml:"user_agent"`
	MaxItems  int           `yaml:"max_items"`
}

// GoogleConfig Google Custom Search API 配置
type GoogleConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	EngineID string `yaml:"engine_id"`
	Language string `yaml:"lr"`
	Country  string `yaml:"gl"`
	Region   string `yaml:"cr"`
}

// ProxyConfig 代理配置
type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	Headless bool   `yaml:"headless"`
	ExecPath string `yaml:"exec_path"`
}

// FragmentConfig HTML 片段模板配置，空字段沿用预设值
type FragmentConfig struct {
	Template         string  `yaml:"template"`
	ID               string  `yaml:"id"`
	SectionID        *string `yaml:"section_id"`
	SectionClass     *string `yaml:"section_class"`
	Lang             *string `yaml:"lang"`
	ListClass        string  `yaml:"list_class"`
	PlaceholderTitle *string `yaml:"placeholder_title"`
	Captions         *bool   `yaml:"captions"`
	Links            *bool   `yaml:"links"`
	Attribution      *string `yaml:"attribution"`
	Style            *string `yaml:"style"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int        `yaml:"port"`
	Host string     `yaml:"host"`
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Origin  string `yaml:"origin"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
	MaxSize  int    `yaml:"max_size_mb"`
	MaxFiles int    `yaml:"max_files"`
}

// 提供者名称
const (
	ProviderBing        = "bing"
	ProviderBingBrowser = "bing_browser"
	ProviderGoogle      = "google"
)

// ValidProviders 有效的提供者列表
var ValidProviders = []string{ProviderBing, ProviderBingBrowser, ProviderGoogle}

// ValidTemplates 内置片段模板
var ValidTemplates = []string{"gallery", "plain", "grid"}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			Provider:  ProviderBing,
			Endpoint:  "https://www.bing.com/images/search",
			Timeout:   6 * time.Second,
			Market:    "ja-JP",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Google: GoogleConfig{
			Endpoint: "https://www.googleapis.com/customsearch/v1",
			Language: "lang_ja",
			Country:  "jp",
			Region:   "countryJP",
		},
		Proxy: ProxyConfig{
			Enabled: false,
			URL:     "http://127.0.0.1:7890",
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Fragment: FragmentConfig{
			Template: "gallery",
		},
		Server: ServerConfig{
			Port: 3457,
			Host: "127.0.0.1",
			CORS: CORSConfig{
				Enabled: false,
				Origin:  "*",
			},
		},
		Log: LogConfig{
			Level:    "warn",
			MaxSize:  10,
			MaxFiles: 3,
		},
	}
}

// configSearchPaths 配置文件搜索路径
var configSearchPaths = []string{
	"config.yaml",
	"config.yml",
	"configs/config.yaml",
	"configs/config.yml",
}

// Load 加载配置
// path 为空时依次查找 CONFIG_FILE 环境变量和默认路径，找不到配置文件时使用默认配置。
// 返回的 notes 是加载过程中的提示信息，由调用方在日志就绪后输出。
func Load(path string) (cfg *Config, notes []string, err error) {
	cfg = Default()

	if path == "" {
		path, notes = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, notes, fmt.Errorf("read config file failed: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, notes, fmt.Errorf("parse config file %s failed: %w", path, err)
		}
		notes = append(notes, "📄 Loaded configuration from "+path)
	}

	cfg.applyEnv()
	notes = append(notes, cfg.validate()...)
	return cfg, notes, nil
}

// findConfigFile 查找配置文件
func findConfigFile() (string, []string) {
	var notes []string

	// 优先使用环境变量指定的配置文件
	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, notes
		}
		notes = append(notes, fmt.Sprintf("⚠️ %s=%s not found, searching default paths", EnvConfigFile, envPath))
	}

	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	workDir, _ := os.Getwd()

	searchDirs := []string{workDir}
	if execDir != "" && execDir != workDir {
		searchDirs = append(searchDirs, execDir)
	}

	for _, dir := range searchDirs {
		for _, name := range configSearchPaths {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, notes
			}
		}
	}

	return "", notes
}

// applyEnv 从环境变量读取凭据，环境变量优先于配置文件
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvGoogleAPIKey); v != "" {
		c.Google.APIKey = v
	}
	if v := os.Getenv(EnvSearchEngineID); v != "" {
		c.Google.EngineID = v
	}
}

// validate 验证并修正配置，返回修正说明
func (c *Config) validate() []string {
	def := Default()
	var notes []string

	c.Search.Provider = strings.TrimSpace(c.Search.Provider)
	if !contains(ValidProviders, c.Search.Provider) {
		notes = append(notes, fmt.Sprintf("⚠️ Invalid provider %q, falling back to %s", c.Search.Provider, def.Search.Provider))
		c.Search.Provider = def.Search.Provider
	}

	if c.Search.Timeout <= 0 {
		notes = append(notes, fmt.Sprintf("⚠️ Invalid timeout %s, using %s", c.Search.Timeout, def.Search.Timeout))
		c.Search.Timeout = def.Search.Timeout
	}

	if c.Search.Endpoint == "" {
		c.Search.Endpoint = def.Search.Endpoint
	}
	if c.Search.Market == "" {
		c.Search.Market = def.Search.Market
	}
	if c.Search.UserAgent == "" {
		c.Search.UserAgent = def.Search.UserAgent
	}
	if c.Search.MaxItems < 0 {
		notes = append(notes, fmt.Sprintf("⚠️ Invalid max_items %d, using template default", c.Search.MaxItems))
		c.Search.MaxItems = 0
	}

	if c.Google.Endpoint == "" {
		c.Google.Endpoint = def.Google.Endpoint
	}

	if c.Proxy.Enabled && c.Proxy.URL == "" {
		notes = append(notes, "⚠️ Proxy enabled but URL is empty, using default")
		c.Proxy.URL = def.Proxy.URL
	}

	if !contains(ValidTemplates, c.Fragment.Template) {
		notes = append(notes, fmt.Sprintf("⚠️ Invalid fragment template %q, falling back to %s", c.Fragment.Template, def.Fragment.Template))
		c.Fragment.Template = def.Fragment.Template
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		notes = append(notes, fmt.Sprintf("⚠️ Invalid port %d, using default %d", c.Server.Port, def.Server.Port))
		c.Server.Port = def.Server.Port
	}
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.CORS.Origin == "" {
		c.Server.CORS.Origin = def.Server.CORS.Origin
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		if c.Log.Level != "" {
			notes = append(notes, fmt.Sprintf("⚠️ Invalid log level %q, using %s", c.Log.Level, def.Log.Level))
		}
		c.Log.Level = def.Log.Level
	}
	if c.Log.MaxSize <= 0 {
		c.Log.MaxSize = def.Log.MaxSize
	}
	if c.Log.MaxFiles <= 0 {
		c.Log.MaxFiles = def.Log.MaxFiles
	}

	return notes
}

// RequireCredentials 检查当前提供者所需的凭据是否齐全
func (c *Config) RequireCredentials() error {
	if c.Search.Provider != ProviderGoogle {
		return nil
	}

	var missing []string
	if c.Google.APIKey == "" {
		missing = append(missing, EnvGoogleAPIKey)
	}
	if c.Google.EngineID == "" {
		missing = append(missing, EnvSearchEngineID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrMissingCredentials, strings.Join(missing, " and "))
	}
	return nil
}

// ProxyURL 返回启用的代理地址，未启用时为空
func (c *Config) ProxyURL() string {
	if !c.Proxy.Enabled {
		return ""
	}
	return c.Proxy.URL
}

// IsValidProvider 检查提供者名称是否有效
func IsValidProvider(name string) bool {
	return contains(ValidProviders, name)
}

// IsValidTemplate 检查模板名称是否有效
func IsValidTemplate(name string) bool {
	return contains(ValidTemplates, name)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
