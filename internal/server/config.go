package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// APIKeyFile is read from the data directory at startup.
	APIKeyFile = "api-key"
	// UploadDirName is the subdirectory of the data directory holding stored files.
	UploadDirName = "upload"

	DefaultAddr           = ":8000"
	DefaultSiteURL        = "localhost:8000"
	DefaultMaxUploadBytes = int64(1 << 30)
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config is resolved once at startup and handed to New. Nothing in it
// changes for the lifetime of the process.
type Config struct {
	Addr      string
	DataDir   string
	UploadDir string
	APIKey    string

	// SiteURL prefixes every public link, without a trailing slash.
	SiteURL string

	MaxUploadBytes int64

	// UploadRequiresKey puts /upload behind the API key guard. Off by
	// default: anyone may upload, only listing and deletion are gated.
	UploadRequiresKey bool

	// ModTimeFallback lists files without a recorded birth time under their
	// modification date. Off by default: such files are left out of /manage.
	ModTimeFallback bool

	// MetricsPublic serves /metrics without the API key. Off by default:
	// the counters reveal how much is stored.
	MetricsPublic bool

	Build  BuildInfo
	Logger *Logger
}

// LoadConfig resolves the data directory, creates its upload directory if
// needed, reads the API key and applies the SD_* environment overrides.
func LoadConfig(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, errors.New("data directory argument is required")
	}

	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return Config{}, fmt.Errorf("data dir must exist: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return Config{}, fmt.Errorf("data dir must exist: %w", err)
	}
	if !fi.IsDir() {
		return Config{}, fmt.Errorf("data dir %s is not a directory", abs)
	}

	uploadDir := filepath.Join(abs, UploadDirName)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("could not create upload dir: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(abs, APIKeyFile))
	if err != nil {
		return Config{}, fmt.Errorf("cannot find api key: %w", err)
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return Config{}, fmt.Errorf("api key file %s is empty", filepath.Join(abs, APIKeyFile))
	}

	maxUpload := DefaultMaxUploadBytes
	if v := os.Getenv("SD_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("SD_MAX_UPLOAD_BYTES must be a positive integer, got %q", v)
		}
		maxUpload = n
	}

	requireKey, err := parseBoolEnv("SD_UPLOAD_REQUIRE_KEY")
	if err != nil {
		return Config{}, err
	}

	mtimeFallback, err := parseBoolEnv("SD_MTIME_FALLBACK")
	if err != nil {
		return Config{}, err
	}
	metricsPublic, err := parseBoolEnv("SD_METRICS_PUBLIC")
	if err != nil {
		return Config{}, err
	}

	return Config{
		Addr:              getenvDefault("SD_ADDR", DefaultAddr),
		DataDir:           abs,
		UploadDir:         uploadDir,
		APIKey:            key,
		SiteURL:           strings.TrimSuffix(getenvDefault("SD_URL", DefaultSiteURL), "/"),
		MaxUploadBytes:    maxUpload,
		UploadRequiresKey: requireKey,
		ModTimeFallback:   mtimeFallback,
		MetricsPublic:     metricsPublic,
		Build: BuildInfo{
			Version: getenvDefault("SD_VERSION", "dev"),
			Commit:  getenvDefault("SD_COMMIT", "unknown"),
		},
	}, nil
}

// parseBoolEnv reads an optional boolean variable; unset means false.
func parseBoolEnv(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
