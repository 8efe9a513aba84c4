package webservice

import "time"

type Config struct {
	Listen       string        `yaml:"listen" json:"listen" mapstructure:"listen" validate:"required,hostname_port"`
	JWTSecret    string        `yaml:"jwt-secret" json:"-" mapstructure:"jwt-secret"`
	ReadTimeout  time.Duration `yaml:"read-timeout" json:"read_timeout" mapstructure:"read-timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write-timeout" json:"write_timeout" mapstructure:"write-timeout" validate:"gte=0"`
	// Extract requests allowed per client per minute. Zero disables
	// rate limiting.
	ExtractRateLimit int `yaml:"extract-rate-limit" json:"extract_rate_limit" mapstructure:"extract-rate-limit" validate:"gte=0"`
}
