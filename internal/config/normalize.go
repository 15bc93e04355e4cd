package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTracker()
	c.normalizeClients()
	c.normalizeSubsections()
	c.normalizeKeepers()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Metrics.Textfile) != "" {
		if c.Metrics.Textfile, err = expandPath(c.Metrics.Textfile); err != nil {
			return fmt.Errorf("metrics.textfile: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeTracker() {
	c.Tracker.Login = strings.TrimSpace(c.Tracker.Login)
	if c.Tracker.Login == "" {
		c.Tracker.Login = strings.TrimSpace(os.Getenv("WEBTLO_TRACKER_LOGIN"))
	}
	if c.Tracker.Password == "" {
		c.Tracker.Password = os.Getenv("WEBTLO_TRACKER_PASSWORD")
	}
	c.Tracker.ForumURL = strings.TrimRight(strings.TrimSpace(c.Tracker.ForumURL), "/")
	if c.Tracker.ForumURL == "" {
		c.Tracker.ForumURL = defaultForumURL
	}
	c.Tracker.APIURL = strings.TrimRight(strings.TrimSpace(c.Tracker.APIURL), "/")
	if c.Tracker.APIURL == "" {
		c.Tracker.APIURL = defaultAPIURL
	}
}

func (c *Config) normalizeClients() {
	for i := range c.Clients {
		client := &c.Clients[i]
		client.ID = strings.TrimSpace(client.ID)
		client.Kind = strings.ToLower(strings.TrimSpace(client.Kind))
		client.Host = strings.TrimSpace(client.Host)
		client.Login = strings.TrimSpace(client.Login)
		if client.Port == 0 && client.Kind == "downloadstation" {
			client.Port = defaultDownloadStationPort
		}
		if client.TimeoutSeconds <= 0 {
			client.TimeoutSeconds = defaultClientTimeout
		}
	}
}

func (c *Config) normalizeSubsections() {
	for i := range c.Subsections {
		sub := &c.Subsections[i]
		sub.Title = strings.TrimSpace(sub.Title)
		sub.Client = strings.TrimSpace(sub.Client)
		sub.Label = strings.TrimSpace(sub.Label)
		sub.DataFolder = strings.TrimSpace(sub.DataFolder)
	}
}

func (c *Config) normalizeKeepers() {
	if c.Keepers.PageSize <= 0 {
		c.Keepers.PageSize = defaultKeepersPageSize
	}
	if c.Keepers.RequestsPerSecond <= 0 {
		c.Keepers.RequestsPerSecond = defaultKeepersRate
	}
	c.Keepers.DeleteScope = strings.ToLower(strings.TrimSpace(c.Keepers.DeleteScope))
	if c.Keepers.DeleteScope == "" {
		c.Keepers.DeleteScope = defaultKeepersScope
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RunLogMaxBytes <= 0 {
		c.Logging.RunLogMaxBytes = defaultRunLogMaxBytes
	}
}
