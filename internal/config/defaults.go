package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/prtrack/data/db/prtrack.db"
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = "/usr/local/var/prtrack/data/indices/items"
	}
	if cfg.Parse.MetadataWindow == 0 {
		cfg.Parse.MetadataWindow = 20
	}
	if cfg.Parse.LocaleDateLayout == "" {
		cfg.Parse.LocaleDateLayout = "1/2/2006"
	}
	if cfg.Parse.XLSCharset == "" {
		cfg.Parse.XLSCharset = "utf-8"
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 50
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 500
	}
	if cfg.Search.NameBoost == 0 {
		cfg.Search.NameBoost = 0.5
	}
	if cfg.Report.DefaultDays == 0 {
		cfg.Report.DefaultDays = 30
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".xlsx", ".xls", ".csv"}
	}
	if cfg.Watch.Submitter == "" {
		cfg.Watch.Submitter = "watcher"
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
