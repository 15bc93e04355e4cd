package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"webtlo/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Tracker contains forum credentials used by the keeper roster scan.
type Tracker struct {
	Login    string `toml:"login"`
	Password string `toml:"password"`
	ForumURL string `toml:"forum_url"`
	APIURL   string `toml:"api_url"`
}

// Client describes one torrent-client backend.
type Client struct {
	ID             string `toml:"id"`
	Kind           string `toml:"kind"`
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Login          string `toml:"login"`
	Password       string `toml:"password"`
	HTTPS          bool   `toml:"https"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Subsection describes one tracked forum subsection and the client that seeds it.
type Subsection struct {
	ID         int64  `toml:"id"`
	Title      string `toml:"title"`
	Client     string `toml:"client"`
	Label      string `toml:"label"`
	DataFolder string `toml:"data_folder"`
}

// Keepers contains configuration for the keeper roster reconciliation.
type Keepers struct {
	PageSize          int     `toml:"page_size"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	// DeleteScope is either "scanned" (only keepers of releases covered by the
	// run are pruned) or "global" (every unmatched keeper row is pruned).
	DeleteScope string `toml:"delete_scope"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string `toml:"format"`
	Level          string `toml:"level"`
	RunLogMaxBytes int64  `toml:"run_log_max_bytes"`
}

// Metrics contains configuration for run metrics export.
type Metrics struct {
	// Textfile is an optional node-exporter textfile path written at run end.
	Textfile string `toml:"textfile"`
}

// Config encapsulates all configuration values for webtlo.
//
// Configuration sections by subsystem:
//   - Paths: database and log directories
//   - Tracker: forum credentials for keeper scans
//   - Clients: torrent-client backends, selected by kind
//   - Subsections: tracked subsections and their owning client
//   - Keepers: roster scan paging, throttling, and pruning scope
//   - Logging: log format, level, and run log rotation threshold
//   - Metrics: optional Prometheus textfile export
type Config struct {
	Paths       Paths        `toml:"paths"`
	Tracker     Tracker      `toml:"tracker"`
	Clients     []Client     `toml:"clients"`
	Subsections []Subsection `toml:"subsections"`
	Keepers     Keepers      `toml:"keepers"`
	Logging     Logging      `toml:"logging"`
	Metrics     Metrics      `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/webtlo/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("%w: parse config: %w", services.ErrConfiguration, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/webtlo/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("webtlo.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the registry database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "webtlo.db")
}

// LockPath returns the lock file that serializes synchronization runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "webtlo.lock")
}

// RunLogPath returns the run log file for the named job (e.g. "keepers").
func (c *Config) RunLogPath(job string) string {
	job = strings.TrimSpace(job)
	if job == "" {
		job = "webtlo"
	}
	return filepath.Join(c.Paths.LogDir, job+".log")
}

// Client returns the client configuration with the given id.
func (c *Config) Client(id string) (Client, bool) {
	for _, client := range c.Clients {
		if client.ID == id {
			return client, true
		}
	}
	return Client{}, false
}

// SubsectionsForClient returns the subsections seeded by the given client.
func (c *Config) SubsectionsForClient(id string) []Subsection {
	var out []Subsection
	for _, sub := range c.Subsections {
		if sub.Client == id {
			out = append(out, sub)
		}
	}
	return out
}

// RequireTrackerCredentials reports a configuration error when the forum
// login or password is missing. Jobs that talk to the forum call this before
// opening the database or the network.
func (c *Config) RequireTrackerCredentials() error {
	if strings.TrimSpace(c.Tracker.Login) == "" {
		return fmt.Errorf("%w: tracker.login is required (set WEBTLO_TRACKER_LOGIN or edit the config file)", services.ErrConfiguration)
	}
	if strings.TrimSpace(c.Tracker.Password) == "" {
		return fmt.Errorf("%w: tracker.password is required (set WEBTLO_TRACKER_PASSWORD or edit the config file)", services.ErrConfiguration)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
