package config

const (
	defaultDataDir             = "~/.local/share/webtlo"
	defaultLogDir              = "~/.local/share/webtlo/logs"
	defaultForumURL            = "https://rutracker.org"
	defaultAPIURL              = "https://api.rutracker.cc"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultRunLogMaxBytes      = 5 << 20
	defaultClientTimeout       = 30
	defaultKeepersPageSize     = 1000
	defaultKeepersRate         = 2.0
	defaultKeepersScope        = DeleteScopeScanned
	defaultDownloadStationPort = 5001
)

// Keeper pruning scopes.
const (
	DeleteScopeScanned = "scanned"
	DeleteScopeGlobal  = "global"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Tracker: Tracker{
			ForumURL: defaultForumURL,
			APIURL:   defaultAPIURL,
		},
		Keepers: Keepers{
			PageSize:          defaultKeepersPageSize,
			RequestsPerSecond: defaultKeepersRate,
			DeleteScope:       defaultKeepersScope,
		},
		Logging: Logging{
			Format:         defaultLogFormat,
			Level:          defaultLogLevel,
			RunLogMaxBytes: defaultRunLogMaxBytes,
		},
	}
}
