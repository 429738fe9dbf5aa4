package config

const (
	defaultDataDir                  = "~/.local/share/lightbox"
	defaultLogDir                   = "~/.local/share/lightbox/logs"
	defaultAPIBind                  = "127.0.0.1:7519"
	defaultThumbnailRequestTimeout  = 10
	defaultCatalogRequestTimeout    = 10
	defaultUploadTransferTimeout    = 600
	defaultUploadMaxBatchItems      = 200
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Thumbnails: Thumbnails{
			RequestTimeout: defaultThumbnailRequestTimeout,
		},
		Catalog: Catalog{
			RequestTimeout: defaultCatalogRequestTimeout,
		},
		Uploads: Uploads{
			TransferTimeout: defaultUploadTransferTimeout,
			MaxBatchItems:   defaultUploadMaxBatchItems,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
