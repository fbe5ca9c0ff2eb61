package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tanq16/roxdl/internal/utils"
)

const (
	DefaultOutput      = "./downloads"
	DefaultFilename    = "{gallery_id}_{page_num}"
	DefaultGalleryBase = "https://hentairox.com/gallery/"
)

// Config defines configuration for a roxdl run.
type Config struct {
	Output      string            `yaml:"output"`
	Filename    string            `yaml:"filename"`
	Pages       [2]int            `yaml:"pages"`
	Archive     string            `yaml:"archive"`
	Threads     int               `yaml:"threads"`
	Metadata    bool              `yaml:"metadata"`
	Upload      string            `yaml:"upload"`
	Profile     string            `yaml:"profile"`
	Timeout     time.Duration     `yaml:"timeout"`
	UserAgent   string            `yaml:"user_agent"`
	Proxy       string            `yaml:"proxy"`
	Headers     map[string]string `yaml:"headers"`
	GalleryBase string            `yaml:"gallery_base"`
}

// Default returns a Config with the stock CLI defaults.
func Default() Config {
	return Config{
		Output:      DefaultOutput,
		Filename:    DefaultFilename,
		Pages:       [2]int{0, -1},
		Threads:     1,
		Profile:     "default",
		Timeout:     3 * time.Minute,
		UserAgent:   utils.ToolUserAgent,
		GalleryBase: DefaultGalleryBase,
	}
}

// yamlConfig is used for YAML unmarshaling with string durations and optional pages.
type yamlConfig struct {
	Output      string            `yaml:"output"`
	Filename    string            `yaml:"filename"`
	Pages       []int             `yaml:"pages"`
	Archive     string            `yaml:"archive"`
	Threads     int               `yaml:"threads"`
	Metadata    bool              `yaml:"metadata"`
	Upload      string            `yaml:"upload"`
	Profile     string            `yaml:"profile"`
	Timeout     string            `yaml:"timeout"`
	UserAgent   string            `yaml:"user_agent"`
	Proxy       string            `yaml:"proxy"`
	Headers     map[string]string `yaml:"headers"`
	GalleryBase string            `yaml:"gallery_base"`
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()
	if yc.Output != "" {
		cfg.Output = yc.Output
	}
	if yc.Filename != "" {
		cfg.Filename = yc.Filename
	}
	if len(yc.Pages) != 0 {
		if len(yc.Pages) != 2 {
			return Config{}, fmt.Errorf("parse pages: expected 2 values, got %d", len(yc.Pages))
		}
		cfg.Pages = [2]int{yc.Pages[0], yc.Pages[1]}
	}
	cfg.Archive = yc.Archive
	if yc.Threads != 0 {
		cfg.Threads = yc.Threads
	}
	cfg.Metadata = yc.Metadata
	cfg.Upload = yc.Upload
	if yc.Profile != "" {
		cfg.Profile = yc.Profile
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	cfg.Proxy = yc.Proxy
	cfg.Headers = yc.Headers
	if yc.GalleryBase != "" {
		cfg.GalleryBase = yc.GalleryBase
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the ROXDL_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := getenv("OUTPUT"); v != "" {
		c.Output = v
	}
	if v := getenv("FILENAME"); v != "" {
		c.Filename = v
	}
	if v := getenv("PAGES"); v != "" {
		pages, err := ParsePages(v)
		if err != nil {
			return fmt.Errorf("parse %sPAGES: %w", utils.EnvPrefix, err)
		}
		c.Pages = pages
	}
	if v := getenv("ARCHIVE"); v != "" {
		c.Archive = v
	}
	if v := getenv("THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sTHREADS: %w", utils.EnvPrefix, err)
		}
		c.Threads = n
	}
	if v := getenv("METADATA"); v != "" {
		c.Metadata = v == "true" || v == "1"
	}
	if v := getenv("UPLOAD"); v != "" {
		c.Upload = v
	}
	if v := getenv("PROFILE"); v != "" {
		c.Profile = v
	}
	if v := getenv("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sTIMEOUT: %w", utils.EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v := getenv("USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := getenv("PROXY"); v != "" {
		c.Proxy = v
	}
	if v := getenv("GALLERY_BASE"); v != "" {
		c.GalleryBase = v
	}
	return nil
}

func getenv(name string) string {
	return os.Getenv(utils.EnvPrefix + name)
}

// ParsePages parses "START,END" or "START END" into a page pair.
func ParsePages(s string) ([2]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) != 2 {
		return [2]int{}, fmt.Errorf("expected START,END, got %q", s)
	}
	var pages [2]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return [2]int{}, fmt.Errorf("invalid page index %q: %w", f, err)
		}
		pages[i] = n
	}
	return pages, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Output == "" {
		return errors.New("config: output directory is required")
	}
	if c.Filename == "" {
		return errors.New("config: filename template is required")
	}
	if c.Threads <= 0 {
		return errors.New("config: threads must be positive")
	}
	if c.GalleryBase == "" {
		return errors.New("config: gallery base URL is required")
	}
	if strings.ContainsAny(c.Archive, `/\`) {
		return errors.New("config: archive name must not contain path separators")
	}
	if c.Upload != "" && !strings.HasPrefix(c.Upload, "s3://") {
		return fmt.Errorf("config: unsupported upload target %q (expected s3://bucket/prefix)", c.Upload)
	}
	return nil
}

// HTTPClientConfig derives the HTTP client settings, randomizing the
// user agent when asked to and splitting proxy credentials out of the URL.
func (c Config) HTTPClientConfig() utils.HTTPClientConfig {
	userAgent := c.UserAgent
	if userAgent == "randomize" {
		userAgent = utils.GetRandomUserAgent()
	}
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = v
	}
	cfg := utils.HTTPClientConfig{
		Timeout:        c.Timeout,
		KATimeout:      90 * time.Second,
		ProxyURL:       c.Proxy,
		UserAgent:      userAgent,
		Headers:        headers,
		MaxConns:       c.Threads,
		HighThreadMode: c.Threads > 5,
	}
	if parsedProxy, err := url.Parse(c.Proxy); err == nil && c.Proxy != "" && parsedProxy.User != nil {
		cfg.ProxyUsername = parsedProxy.User.Username()
		if password, set := parsedProxy.User.Password(); set {
			cfg.ProxyPassword = password
		}
		parsedProxy.User = nil
		cfg.ProxyURL = parsedProxy.String()
	}
	return cfg
}
