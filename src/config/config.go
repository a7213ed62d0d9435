package config

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	AppName           = "screen-translate-overlay"
	ConfigPathEnvVar  = "SCREEN_TRANSLATE_OVERLAY"
	DefaultAPIKeyPath = "/run/secrets/api_keys/openrouter"
	APIKeyPathEnvVar  = "OPENROUTER_API_KEY_FILE"
	DefaultPrompt     = "Extract all text from this image and translate it to English. Output ONLY the translation."
)

type LoadOptions struct {
	APIKeyPathOverride  string
	CaptureRectOverride string
	RetranslateTo       string
	EnvPath             string
}

type Config struct {
	APIKey     string
	APIKeyPath string
	Endpoint   string
	Model      string
	Providers  []string
	Prompt     string
	Streaming  bool

	Retranslate          bool
	RetranslateTo        string
	RetranslateModel     string
	RetranslateStreaming bool
	RetranslateAutoCopy  bool
	AutoCopy             bool
	RefineModel          string

	Hotkey            string
	CaptureRect       image.Rectangle
	UILanguage        string
	EnableFileLogging bool
	RequestTimeout    time.Duration
	FrameRate         int
	TextUpdateHz      int

	ModelCatalog string
	Catalog      *Catalog
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) explicit path, 2) .env next to the executable,
	// 3) SCREEN_TRANSLATE_OVERLAY path, 4) XDG config file
	envPath := strings.TrimSpace(opts.EnvPath)
	if envPath == "" {
		envPath = resolveEnvPath()
	}
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)

	cfg := &Config{
		APIKey:               resolveAPIKey(apiKeyPath),
		APIKeyPath:           apiKeyPath,
		Endpoint:             os.Getenv("API_ENDPOINT"),
		Model:                os.Getenv("MODEL"),
		Providers:            splitList(os.Getenv("PROVIDERS")),
		Prompt:               getEnvWithDefault("PROMPT", DefaultPrompt),
		Streaming:            getBool("STREAMING", true),
		Retranslate:          getBool("RETRANSLATE", false),
		RetranslateTo:        getEnvWithDefault("RETRANSLATE_TO", "English"),
		RetranslateModel:     os.Getenv("RETRANSLATE_MODEL"),
		RetranslateStreaming: getBool("RETRANSLATE_STREAMING", true),
		RetranslateAutoCopy:  getBool("RETRANSLATE_AUTO_COPY", false),
		AutoCopy:             getBool("AUTO_COPY", false),
		RefineModel:          os.Getenv("REFINE_MODEL"),
		Hotkey:               getEnvWithDefault("HOTKEY", "Ctrl+Alt+T"),
		UILanguage:           getEnvWithDefault("UI_LANGUAGE", "en"),
		EnableFileLogging:    getBool("ENABLE_FILE_LOGGING", false),
		RequestTimeout:       time.Duration(getPositiveInt("REQUEST_TIMEOUT_SEC", 45)) * time.Second,
		FrameRate:            getPositiveInt("FRAME_RATE", 60),
		TextUpdateHz:         getPositiveInt("TEXT_UPDATE_HZ", 15),
		ModelCatalog:         os.Getenv("MODEL_CATALOG"),
	}

	if to := strings.TrimSpace(opts.RetranslateTo); to != "" {
		cfg.RetranslateTo = to
		cfg.Retranslate = true
	}

	rectValue := os.Getenv("CAPTURE_RECT")
	if override := strings.TrimSpace(opts.CaptureRectOverride); override != "" {
		rectValue = override
	}
	if rectValue != "" {
		r, err := ParseRect(rectValue)
		if err != nil {
			return nil, fmt.Errorf("CAPTURE_RECT: %w", err)
		}
		cfg.CaptureRect = r
	}

	catalog, err := LoadCatalog(cfg.ModelCatalog)
	if err != nil {
		return nil, err
	}
	cfg.Catalog = catalog

	return cfg, nil
}

// ParseRect parses "x,y,w,h" into a rectangle with positive size.
func ParseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("expected x,y,w,h, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("invalid number %q: %w", p, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("width and height must be positive, got %dx%d", v[2], v[3])
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(ConfigPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
		log.Printf("Config: %s points to missing file %s", ConfigPathEnvVar, alt)
	}

	if p, err := xdg.SearchConfigFile(filepath.Join(AppName, ".env")); err == nil {
		return p
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		log.Printf("Config: failed to read %s: %v", envPath, err)
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return os.Getenv("OPENROUTER_API_KEY")
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getPositiveInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
