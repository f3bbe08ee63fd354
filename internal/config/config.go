package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds the serve-command settings. Every field can be set through a
// CONTAINER_ENGINE_* environment variable or an optional .env file; command
// line flags override both.
type Config struct {
	DBURL           string `mapstructure:"DB_URL"`
	Kubeconfig      string `mapstructure:"KUBECONFIG"`
	ClusterDomain   string `mapstructure:"CLUSTER_DOMAIN"`
	DomainSuffix    string `mapstructure:"DOMAIN_SUFFIX"`
	IngressClass    string `mapstructure:"INGRESS_CLASS"`
	QueueCapacity   int    `mapstructure:"QUEUE_CAPACITY"`
	LogFormat       string `mapstructure:"LOG_FORMAT"`
	RenewalSchedule string `mapstructure:"RENEWAL_SCHEDULE"`
	Organization    string `mapstructure:"ORGANIZATION"`
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("DB_URL", "sqlite:container-engine.db")
	v.SetDefault("QUEUE_CAPACITY", 100)
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("RENEWAL_SCHEDULE", "@daily")
	v.SetDefault("ORGANIZATION", "container-engine")

	v.SetEnvPrefix("CONTAINER_ENGINE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	// A missing .env file is fine; the environment alone is enough.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
