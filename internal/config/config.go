package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	DefaultBaseURL     = "https://www.dramabox.com"
	DefaultLocale      = "in"
	DefaultConcurrency = 4
	DefaultTimeout     = 15 * time.Second
	DefaultWarmupTTL   = 60 * time.Second

	// 配置文件名（不含扩展名）；yaml/json/toml 均可。
	fileName = "dbx"
	// 环境变量前缀，例如 DBX_SITE_LOCALE=en。
	envPrefix = "DBX"
)

var localeRE = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z]{2,4})?$`)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
type CLIArgs struct {
	ConfigFile string

	Locale    string
	LocaleSet bool

	SnapshotDir    string
	SnapshotDirSet bool
}

// FileConfig 对应 dbx.yaml / dbx.json / dbx.toml 的解析结构。
type FileConfig struct {
	Site        SiteConfig `mapstructure:"site"`
	HTTP        HTTPConfig `mapstructure:"http"`
	Concurrency int        `mapstructure:"concurrency"`
	SnapshotDir string     `mapstructure:"snapshot_dir"`
	Log         LogConfig  `mapstructure:"log"`
}

type SiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Locale  string `mapstructure:"locale"`
}

type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	WarmupTTL time.Duration `mapstructure:"warmup_ttl"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
	ProxyURL  string        `mapstructure:"proxy_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigFile 是实际读取的配置文件；为空表示只用了默认值与环境变量。
	ConfigFile string

	BaseURL string
	Locale  string

	Timeout   time.Duration
	WarmupTTL time.Duration
	RateLimit float64
	Burst     int
	ProxyURL  string

	Concurrency int
	SnapshotDir string

	LogLevel  string
	LogFormat string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取配置并与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在，扩展名决定格式
// 2) 否则尝试 <cwd>/dbx.{yaml,yml,json,toml}（可选，不存在不报错）
//
// 覆盖优先级（固定）：CLI > 环境变量 DBX_* > 配置文件 > 默认值
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfgPath := filepath.Join(cwdAbs, fileName+".*")
	if f := strings.TrimSpace(cli.ConfigFile); f != "" {
		cfgPath = absCleanFrom(cwdAbs, f)
		if _, err := os.Stat(cfgPath); err != nil {
			if os.IsNotExist(err) {
				return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
			}
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName(fileName)
		v.AddConfigPath(cwdAbs)
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		cfgPath = used
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	eff, err := merge(cli, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.ConfigFile = v.ConfigFileUsed()
	return eff, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.base_url", DefaultBaseURL)
	v.SetDefault("site.locale", DefaultLocale)
	v.SetDefault("http.timeout", DefaultTimeout)
	v.SetDefault("http.warmup_ttl", DefaultWarmupTTL)
	v.SetDefault("http.rate_limit", 0)
	v.SetDefault("http.burst", 1)
	v.SetDefault("http.proxy_url", "")
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("snapshot_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func merge(cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(fc.Site.BaseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return EffectiveConfig{}, fmt.Errorf("site.base_url 必须是 http/https 绝对地址：%q", fc.Site.BaseURL)
	}

	locale := strings.Trim(strings.TrimSpace(fc.Site.Locale), "/")
	if cli.LocaleSet {
		locale = strings.Trim(strings.TrimSpace(cli.Locale), "/")
	}
	if !localeRE.MatchString(locale) {
		return EffectiveConfig{}, fmt.Errorf("locale 无效：%q", locale)
	}

	if fc.HTTP.Timeout <= 0 {
		return EffectiveConfig{}, fmt.Errorf("http.timeout 必须大于 0")
	}
	if fc.HTTP.WarmupTTL <= 0 {
		return EffectiveConfig{}, fmt.Errorf("http.warmup_ttl 必须大于 0")
	}
	if fc.HTTP.RateLimit < 0 {
		return EffectiveConfig{}, fmt.Errorf("http.rate_limit 不能为负数")
	}
	burst := fc.HTTP.Burst
	if burst < 1 {
		burst = 1
	}

	proxyURL := strings.TrimSpace(fc.HTTP.ProxyURL)
	if proxyURL != "" {
		pu, err := url.Parse(proxyURL)
		if err != nil || pu.Host == "" {
			return EffectiveConfig{}, fmt.Errorf("http.proxy_url 无效：%q", proxyURL)
		}
	}

	concurrency := fc.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}

	snapshotDir := strings.TrimSpace(fc.SnapshotDir)
	if cli.SnapshotDirSet {
		snapshotDir = strings.TrimSpace(cli.SnapshotDir)
	}

	level := strings.ToLower(strings.TrimSpace(fc.Log.Level))
	if lvl, err := zerolog.ParseLevel(level); err != nil || lvl == zerolog.NoLevel {
		return EffectiveConfig{}, fmt.Errorf("log.level 无效：%q", fc.Log.Level)
	}
	format := strings.ToLower(strings.TrimSpace(fc.Log.Format))
	if format != "console" && format != "json" {
		return EffectiveConfig{}, fmt.Errorf("log.format 只能是 console 或 json，实际是 %q", fc.Log.Format)
	}

	return EffectiveConfig{
		BaseURL:     baseURL,
		Locale:      locale,
		Timeout:     fc.HTTP.Timeout,
		WarmupTTL:   fc.HTTP.WarmupTTL,
		RateLimit:   fc.HTTP.RateLimit,
		Burst:       burst,
		ProxyURL:    proxyURL,
		Concurrency: concurrency,
		SnapshotDir: snapshotDir,
		LogLevel:    level,
		LogFormat:   format,
	}, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
