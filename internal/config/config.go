package config

import (
	"log"

	"gopkg.in/yaml.v3"

	"fundportal/pkg/config"
)

type Config struct {
	DB         config.DBConfig         `yaml:"db"`
	MQ         config.MQConfig         `yaml:"mq"`
	Redis      config.RedisConfig      `yaml:"redis"`
	JWT        config.JWTConfig        `yaml:"jwt"`
	Server     config.ServerConfig     `yaml:"server"`
	Wati       config.WatiConfig       `yaml:"wati"`
	Escalation config.EscalationConfig `yaml:"escalation"`
}

func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	// env overrides take precedence over files
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideWatiFromEnv(&cfg.Wati)
	config.OverrideEscalationFromEnv(&cfg.Escalation)

	return &cfg
}
