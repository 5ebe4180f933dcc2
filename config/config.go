package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	RedisUrl                     string `envconfig:"REDIS_URL" default:"redis://redis-cache:6379"`
	AzureStorageConnectionString string `envconfig:"AZURE_STORAGE_CONNECTION_STRING"`
	AzureStorageContainerName    string `envconfig:"AZURE_STORAGE_CONTAINER_NAME" default:"mcm-batch-results"`

	// Default dataset directories, individual requests may override them
	DtmDataDir string `envconfig:"MCM_DTM_DATA_DIR" default:"data/"`
	UmDataDir  string `envconfig:"MCM_UM_DATA_DIR" default:"data/um/"`

	// When set, the reference datasets are downloaded from this blob prefix
	// into DatasetCacheDir before the model is initialized
	DatasetBlobPrefix string `envconfig:"MCM_DATASET_BLOB_PREFIX"`
	DatasetCacheDir   string `envconfig:"MCM_DATASET_CACHE_DIR" default:".mcm_dataset_cache"`

	ListenAddress string `envconfig:"LISTEN_ADDRESS" default:"0.0.0.0:5001"`
}

func Load(cfg *Config) error {
	err := envconfig.Process("", cfg)
	return err
}
