package config

const (
	defaultConfigPath           = "~/.config/recwatch/config.toml"
	defaultStateDir             = "~/.local/share/recwatch"
	defaultLogDir               = "~/.local/share/recwatch/logs"
	defaultDedupFile            = "processed_replays.json"
	defaultHistoryFile          = "history.db"
	defaultPollingInterval      = 1.0
	defaultStableSeconds        = 5
	defaultVerificationSeconds  = 5
	defaultStabilityPollMillis  = 1000
	defaultMaxRestarts          = 10
	defaultParserURL            = "http://127.0.0.1:8002/api/parse_replay"
	defaultParserTimeoutSeconds = 180
	minParserTimeoutSeconds     = 120
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultHistoryRetentionDays = 90
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Watch: Watch{
			UsePolling:      true,
			PollingInterval: defaultPollingInterval,
		},
		Stability: Stability{
			StableSeconds:       defaultStableSeconds,
			VerificationSeconds: defaultVerificationSeconds,
			PollIntervalMillis:  defaultStabilityPollMillis,
			MaxRestarts:         defaultMaxRestarts,
		},
		Parser: Parser{
			TimeoutSeconds: defaultParserTimeoutSeconds,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Parsed:         true,
			Failed:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
