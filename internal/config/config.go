package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件/环境变量无法解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPerson 表示当前命令需要的人物信息（姓名或页面 URL）缺失。
	ErrCodeMissingPerson = "config_missing_person"
)

// 命令名（决定 Input/Output 覆盖落到哪一段配置上，以及需要哪些必填项）。
const (
	CommandVerify = "verify"
	CommandScrape = "scrape"
	CommandEnrich = "enrich"
)

const (
	DefaultFileName     = "creditsync.yaml"
	DefaultBaseURL      = "https://www.imdb.com"
	DefaultRequestDelay = 3 * time.Second
	DefaultTimeout      = 20 * time.Second
	DefaultLogLevel     = zapcore.WarnLevel

	DefaultVerifyInput  = "projects.md"
	DefaultVerifyOutput = "verified_projects.md"
	DefaultScrapeOutput = "projects.json"
	DefaultEnrichInput  = "data/portfolio_new.json"
	DefaultEnrichOutput = "data/portfolio_updated.json"

	// EnvPrefix 是环境变量覆盖的前缀（例如 CREDITSYNC_PERSON_NAME）。
	EnvPrefix = "CREDITSYNC_"
)

// CLIArgs 保留“是否显式指定”的信息，保证 --drop-unverified=false 这类覆盖可实现。
// 字符串字段为空视为未指定。
type CLIArgs struct {
	Command    string
	ConfigPath string

	Input    string
	Output   string
	Markdown string

	PersonName string
	PersonURL  string

	Delay    time.Duration
	DelaySet bool

	DropUnverified    bool
	DropUnverifiedSet bool

	CacheDir      string
	CacheReadOnly bool

	LogLevel string
}

// FileConfig 对应 creditsync.yaml 的解析结构。未知字段视为配置错误。
type FileConfig struct {
	Person       PersonConfig `yaml:"person"`
	BaseURL      string       `yaml:"base_url"`
	RequestDelay string       `yaml:"request_delay"`
	Timeout      string       `yaml:"timeout"`
	RetryMax     *int         `yaml:"retry_max"`
	Proxy        *ProxyConfig `yaml:"proxy"`
	CacheDir     string       `yaml:"cache_dir"`
	LogLevel     string       `yaml:"log_level"`
	Verify       VerifyConfig `yaml:"verify"`
	Scrape       ScrapeConfig `yaml:"scrape"`
	Enrich       EnrichConfig `yaml:"enrich"`
}

type PersonConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type ProxyConfig struct {
	URL string `yaml:"url"`
}

type VerifyConfig struct {
	Input          string `yaml:"input"`
	Output         string `yaml:"output"`
	DropUnverified bool   `yaml:"drop_unverified"`
}

type ScrapeConfig struct {
	Output   string `yaml:"output"`
	Markdown string `yaml:"markdown"`
}

type EnrichConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
// 所有路径都已是绝对路径。
type EffectiveConfig struct {
	Command    string
	ConfigPath string // 实际读取的配置文件；未读取时为空

	PersonName string
	PersonURL  string
	BaseURL    string

	RequestDelay time.Duration
	Timeout      time.Duration
	RetryMax     int
	ProxyURL     string

	CacheDir      string
	CacheReadOnly bool

	LogLevel zapcore.Level

	Verify VerifyConfig
	Scrape ScrapeConfig
	Enrich EnrichConfig
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
	case ErrCodeMissingPerson:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
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

// lookupEnv 可在测试中替换。
var lookupEnv = os.LookupEnv

// LoadEffective 发现并读取配置，然后与环境变量、CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试读取 <cwd>/creditsync.yaml（可选）
// 3) <cwd>/.env（可选）只补充进程环境中不存在的变量
//
// 覆盖优先级（固定）：CLI > 环境变量（CREDITSYNC_*） > 配置文件 > 内置默认值。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, DefaultFileName)
	required := strings.TrimSpace(cli.ConfigPath) != ""
	if required {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	dotenvPath := filepath.Join(cwdAbs, ".env")
	env, err := readDotEnv(dotenvPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: dotenvPath, Err: err}
	}

	eff, err := merge(cwdAbs, cli, fc, env)
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) && ce.Path == "" {
			ce.Path = cfgPath
		}
		return EffectiveConfig{}, err
	}
	eff.ConfigPath = cfgPath
	return eff, nil
}

// envSource 先查进程环境，再查 .env 文件的内容。
type envSource map[string]string

func (m envSource) get(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	key = EnvPrefix + key
	if v, ok := lookupEnv(key); ok {
		return strings.TrimSpace(v), true
	}
	v, ok := m[key]
	return strings.TrimSpace(v), ok
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, env envSource) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Err: fmt.Errorf(format, args...)}
	}

	// pick 按优先级返回第一个非空值：CLI > env > file > def。
	pick := func(cliVal, envKey, fileVal, def string) string {
		if v := strings.TrimSpace(cliVal); v != "" {
			return v
		}
		if v, ok := env.get(envKey); ok && v != "" {
			return v
		}
		if v := strings.TrimSpace(fileVal); v != "" {
			return v
		}
		return def
	}

	eff := EffectiveConfig{
		Command:       cli.Command,
		PersonName:    pick(cli.PersonName, "PERSON_NAME", fc.Person.Name, ""),
		PersonURL:     pick(cli.PersonURL, "PERSON_URL", fc.Person.URL, ""),
		BaseURL:       strings.TrimRight(pick("", "BASE_URL", fc.BaseURL, DefaultBaseURL), "/"),
		ProxyURL:      pick("", "PROXY_URL", proxyURL(fc.Proxy), ""),
		CacheDir:      pick(cli.CacheDir, "CACHE_DIR", fc.CacheDir, ""),
		CacheReadOnly: cli.CacheReadOnly,
	}

	if err := validateHTTPURL(eff.BaseURL); err != nil {
		return EffectiveConfig{}, invalid("base_url 无效：%v", err)
	}
	if eff.PersonURL != "" {
		if err := validateHTTPURL(eff.PersonURL); err != nil {
			return EffectiveConfig{}, invalid("person.url 无效：%v", err)
		}
	}
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, invalid("proxy.url 无效：%q", eff.ProxyURL)
		}
	}

	// request_delay：CLI --delay > env > config > 默认 3s
	delay, err := parseDuration(pick("", "REQUEST_DELAY", fc.RequestDelay, ""), DefaultRequestDelay)
	if err != nil {
		return EffectiveConfig{}, invalid("request_delay 无效：%v", err)
	}
	if cli.DelaySet {
		delay = cli.Delay
	}
	if delay < 0 {
		return EffectiveConfig{}, invalid("request_delay 不能为负数：%s", delay)
	}
	eff.RequestDelay = delay

	rawTimeout := pick("", "TIMEOUT", fc.Timeout, "")
	timeout, err := parseDuration(rawTimeout, DefaultTimeout)
	if err != nil || timeout <= 0 {
		return EffectiveConfig{}, invalid("timeout 无效：%q", rawTimeout)
	}
	eff.Timeout = timeout

	retryMax := 0
	if fc.RetryMax != nil {
		retryMax = *fc.RetryMax
	}
	if v, ok := env.get("RETRY_MAX"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return EffectiveConfig{}, invalid("%sRETRY_MAX 无效：%q", EnvPrefix, v)
		}
		retryMax = n
	}
	// 范围 [0, 5]；超出截断。
	if retryMax < 0 {
		retryMax = 0
	}
	if retryMax > 5 {
		retryMax = 5
	}
	eff.RetryMax = retryMax

	level, err := zapcore.ParseLevel(pick(cli.LogLevel, "LOG_LEVEL", fc.LogLevel, DefaultLogLevel.String()))
	if err != nil {
		return EffectiveConfig{}, invalid("log_level 无效：%v", err)
	}
	eff.LogLevel = level

	if eff.CacheDir != "" {
		eff.CacheDir = absCleanFrom(cwdAbs, eff.CacheDir)
	}

	eff.Verify = VerifyConfig{
		Input:          absCleanFrom(cwdAbs, pick("", "", fc.Verify.Input, DefaultVerifyInput)),
		Output:         absCleanFrom(cwdAbs, pick("", "", fc.Verify.Output, DefaultVerifyOutput)),
		DropUnverified: fc.Verify.DropUnverified,
	}
	if cli.DropUnverifiedSet {
		eff.Verify.DropUnverified = cli.DropUnverified
	}
	eff.Scrape = ScrapeConfig{
		Output:   absCleanFrom(cwdAbs, pick("", "", fc.Scrape.Output, DefaultScrapeOutput)),
		Markdown: absCleanFrom(cwdAbs, pick(cli.Markdown, "", fc.Scrape.Markdown, "")),
	}
	eff.Enrich = EnrichConfig{
		Input:  absCleanFrom(cwdAbs, pick("", "", fc.Enrich.Input, DefaultEnrichInput)),
		Output: absCleanFrom(cwdAbs, pick("", "", fc.Enrich.Output, DefaultEnrichOutput)),
	}

	// --input/--output 只作用于当前命令。
	in, out := strings.TrimSpace(cli.Input), strings.TrimSpace(cli.Output)
	switch cli.Command {
	case CommandVerify:
		if in != "" {
			eff.Verify.Input = absCleanFrom(cwdAbs, in)
		}
		if out != "" {
			eff.Verify.Output = absCleanFrom(cwdAbs, out)
		}
		if eff.PersonName == "" {
			return EffectiveConfig{}, &Error{Code: ErrCodeMissingPerson, Err: errors.New("verify 需要 person.name（或 --person / CREDITSYNC_PERSON_NAME）")}
		}
		if eff.Verify.Input == eff.Verify.Output {
			return EffectiveConfig{}, invalid("verify 的输入与输出不能是同一个文件：%q", eff.Verify.Input)
		}
	case CommandScrape:
		if out != "" {
			eff.Scrape.Output = absCleanFrom(cwdAbs, out)
		}
		if eff.PersonURL == "" {
			return EffectiveConfig{}, &Error{Code: ErrCodeMissingPerson, Err: errors.New("scrape 需要 person.url（或 --person-url / CREDITSYNC_PERSON_URL）")}
		}
	case CommandEnrich:
		if in != "" {
			eff.Enrich.Input = absCleanFrom(cwdAbs, in)
		}
		if out != "" {
			eff.Enrich.Output = absCleanFrom(cwdAbs, out)
		}
		if eff.Enrich.Input == eff.Enrich.Output {
			return EffectiveConfig{}, invalid("enrich 的输入与输出不能是同一个文件：%q", eff.Enrich.Input)
		}
	case "":
	default:
		return EffectiveConfig{}, invalid("未知命令：%q", cli.Command)
	}

	return eff, nil
}

func proxyURL(p *ProxyConfig) string {
	if p == nil {
		return ""
	}
	return p.URL
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func validateHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("必须是 http/https：%q", s)
	}
	if u.Host == "" {
		return fmt.Errorf("缺少 host：%q", s)
	}
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若为空：返回空串
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

// readDotEnv 读取 .env；不存在时返回空表。不会修改进程环境。
func readDotEnv(path string) (envSource, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return envSource{}, nil
		}
		return nil, err
	}
	m, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}
	return envSource(m), nil
}
