package httpbridge

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	RedisUrl                     string `envconfig:"REDIS_URL" default:"redis://redis-cache:6379"`
	AzureStorageConnectionString string `envconfig:"AZURE_STORAGE_CONNECTION_STRING" required:"true"`
	AzureStorageContainerName    string `envconfig:"AZURE_STORAGE_CONTAINER_NAME" default:"mcm-batch-results"`

	ResultTtlSeconds int `envconfig:"RESULT_TTL_SECONDS" default:"3600"`

	ListenAddress string `envconfig:"LISTEN_ADDRESS" default:"0.0.0.0:5001"`
}

func LoadConfig(cfg *Config) error {
	err := envconfig.Process("", cfg)
	return err
}
