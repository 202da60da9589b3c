package config

const (
	defaultConfigPath             = "~/.config/mycinema/config.toml"
	defaultDataDir                = "~/.local/share/mycinema"
	defaultLogDir                 = "~/.local/share/mycinema/logs"
	defaultAPIBind                = "127.0.0.1:7488"
	defaultTMDBBaseURL            = "https://api.themoviedb.org/3"
	defaultTMDBLanguage           = "cs-CZ"
	defaultTMDBRequestsPerSecond  = 4
	defaultTMDBCacheTTLMinutes    = 60
	defaultTMDBListMaxPages       = 50
	defaultWebshareBaseURL        = "https://webshare.cz/api"
	defaultWebshareSearchLimit    = 500
	defaultWebshareCategory       = "video"
	defaultWebshareRequestsPerSec = 2
	defaultCSFDBaseURL            = "https://www.csfd.cz"
	defaultCSFDUserAgent          = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultCSFDMaxItems           = 500
	defaultCSFDMaxFilteredPages   = 25
	defaultCSFDMergedCap          = 1000
	defaultRequestTimeoutSeconds  = 30
	defaultMaxEpisodes            = 300
	defaultStaleAfterDays         = 90
	defaultMaxLinks               = 4
	defaultCheckpointEvery        = 10
	defaultRefreshIntervalHours   = 24
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

func defaultExcludedGenres() []string {
	return []string{"animace", "anime"}
}

func defaultMovieTiers() []int {
	return []int{30, 17, 7, 3}
}

func defaultSeriesTiers() []int {
	return []int{10, 5, 2, 1}
}

func defaultVideoExtensions() []string {
	return []string{".mkv", ".mp4", ".avi"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		TMDB: TMDB{
			BaseURL:           defaultTMDBBaseURL,
			Language:          defaultTMDBLanguage,
			RequestsPerSecond: defaultTMDBRequestsPerSecond,
			CacheTTLMinutes:   defaultTMDBCacheTTLMinutes,
			ListMaxPages:      defaultTMDBListMaxPages,
		},
		Webshare: Webshare{
			BaseURL:           defaultWebshareBaseURL,
			SearchLimit:       defaultWebshareSearchLimit,
			Category:          defaultWebshareCategory,
			RequestsPerSecond: defaultWebshareRequestsPerSec,
		},
		CSFD: CSFD{
			BaseURL:          defaultCSFDBaseURL,
			UserAgent:        defaultCSFDUserAgent,
			MaxItems:         defaultCSFDMaxItems,
			MaxFilteredPages: defaultCSFDMaxFilteredPages,
			MergedCap:        defaultCSFDMergedCap,
		},
		Sync: Sync{
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			ExcludedGenres:        defaultExcludedGenres(),
			BlockJapaneseScript:   true,
			MaxEpisodes:           defaultMaxEpisodes,
			MovieTiersGiB:         defaultMovieTiers(),
			SeriesTiersGiB:        defaultSeriesTiers(),
			VideoExtensions:       defaultVideoExtensions(),
		},
		Refresh: Refresh{
			StaleAfterDays:  defaultStaleAfterDays,
			MaxLinks:        defaultMaxLinks,
			CheckpointEvery: defaultCheckpointEvery,
			IntervalHours:   defaultRefreshIntervalHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
