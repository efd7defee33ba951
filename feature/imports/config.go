package imports

// Config holds configuration for the import service.
type Config struct {
	// DefaultAdapter is used when a request does not name an adapter.
	DefaultAdapter string `mapstructure:"default_adapter" default:"xlsx_v1"`
	// TempDir receives uploaded and downloaded documents. Empty means the system default.
	TempDir string `mapstructure:"temp_dir" default:""`
	// ProgressEvery is the number of records between progress updates.
	ProgressEvery int `mapstructure:"progress_every" default:"25"`
}
