package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMapping()
	c.normalizeTasks()
	c.normalizeSessions()
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
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeMapping() {
	c.Mapping.RemoteURL = strings.TrimSpace(c.Mapping.RemoteURL)
	if c.Mapping.FetchTimeout <= 0 {
		c.Mapping.FetchTimeout = defaultMappingFetchTimeout
	}
}

func (c *Config) normalizeTasks() {
	if c.Tasks.RetentionMinutes <= 0 {
		c.Tasks.RetentionMinutes = defaultTaskRetentionMinutes
	}
	if c.Tasks.SweepIntervalMinutes <= 0 {
		c.Tasks.SweepIntervalMinutes = defaultTaskSweepMinutes
	}
}

func (c *Config) normalizeSessions() {
	if c.Sessions.TTLMinutes <= 0 {
		c.Sessions.TTLMinutes = defaultSessionTTLMinutes
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
}
