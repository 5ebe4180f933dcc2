package taskserver

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	RedisUrl                     string `envconfig:"REDIS_URL" default:"redis://redis-cache:6379"`
	AzureStorageConnectionString string `envconfig:"AZURE_STORAGE_CONNECTION_STRING" required:"true"`
	AzureStorageContainerName    string `envconfig:"AZURE_STORAGE_CONTAINER_NAME" default:"mcm-batch-results"`

	DtmDataDir string `envconfig:"MCM_DTM_DATA_DIR" default:"data/"`
	UmDataDir  string `envconfig:"MCM_UM_DATA_DIR" default:"data/um/"`

	DatasetBlobPrefix string `envconfig:"MCM_DATASET_BLOB_PREFIX"`
	DatasetCacheDir   string `envconfig:"MCM_DATASET_CACHE_DIR" default:".mcm_dataset_cache"`

	ResultTtlSeconds int `envconfig:"RESULT_TTL_SECONDS" default:"3600"`
}

func LoadConfig(cfg *Config) error {
	err := envconfig.Process("", cfg)
	return err
}
