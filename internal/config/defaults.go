package config

const (
	defaultBaseURL               = "https://ai-study-buddy-pnyu.onrender.com"
	defaultStateDir              = "~/.local/share/surgitrack"
	defaultLogDir                = "~/.local/share/surgitrack/logs"
	defaultProgressMode          = ModeSimulated
	defaultExtractDelayMS        = 2000
	defaultDetectDelayMS         = 5000
	defaultTrackDelayMS          = 8000
	defaultPollIntervalMS        = 2000
	defaultFPS                   = 15
	defaultMaxUploadSize         = "10MB"
	defaultMaxFPS                = 60
	defaultHistoryFile           = "history.db"
	defaultNotifyRequestTimeout  = 10
	defaultStatusAPIBind         = "127.0.0.1:7488"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogFileName           = "surgitrack.log"
	defaultSessionLockFileName   = "session.lock"
	defaultConfigPath            = "~/.config/surgitrack/config.toml"
	defaultProjectConfigFileName = "surgitrack.toml"
)

// Progress modes accepted by [progress] mode.
const (
	ModeSimulated = "simulated"
	ModePolling   = "polling"
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL: defaultBaseURL,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Progress: Progress{
			Mode:           defaultProgressMode,
			ExtractDelayMS: defaultExtractDelayMS,
			DetectDelayMS:  defaultDetectDelayMS,
			TrackDelayMS:   defaultTrackDelayMS,
			PollIntervalMS: defaultPollIntervalMS,
			FPS:            defaultFPS,
		},
		Upload: Upload{
			MaxSize:           defaultMaxUploadSize,
			AllowedExtensions: []string{".mp4"},
			MaxFPS:            defaultMaxFPS,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Errors:         true,
		},
		StatusAPI: StatusAPI{
			Bind: defaultStatusAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
