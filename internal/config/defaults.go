package config

const (
	defaultDataDir              = "~/.local/share/photomatch"
	defaultStagingDir           = "~/.local/share/photomatch/staging"
	defaultLogDir               = "~/.local/share/photomatch/logs"
	defaultAPIBind              = "127.0.0.1:7519"
	defaultMappingFetchTimeout  = 30
	defaultTaskRetentionMinutes = 60
	defaultTaskSweepMinutes     = 5
	defaultSessionTTLMinutes    = 60
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Mapping: Mapping{
			FetchTimeout: defaultMappingFetchTimeout,
		},
		Tasks: Tasks{
			RetentionMinutes:     defaultTaskRetentionMinutes,
			SweepIntervalMinutes: defaultTaskSweepMinutes,
		},
		Sessions: Sessions{
			TTLMinutes:     defaultSessionTTLMinutes,
			SingleDownload: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
