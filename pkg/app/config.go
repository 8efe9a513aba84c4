package app

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/jeremyhahn/go-pki-tool/pkg/history"
	"github.com/jeremyhahn/go-pki-tool/pkg/keygen"
	"github.com/jeremyhahn/go-pki-tool/pkg/pkcs12"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice"
)

var (
	DefaultConfig = Config{
		DefaultKeySize:   keygen.DefaultKeySize,
		PKCS12Iterations: pkcs12.DEFAULT_ITERATIONS,
		LogDir:           "pki-data/log",
		DataDir:          "pki-data",
		WebService: webservice.Config{
			Listen:           "localhost:8080",
			ReadTimeout:      webservice.HTTP_SERVER_READ_TIMEOUT,
			WriteTimeout:     webservice.HTTP_SERVER_WRITE_TIMEOUT,
			ExtractRateLimit: 10,
		},
		History: History{
			Enabled: true,
			File:    history.DefaultFile,
		},
	}

	ErrInvalidConfig = fmt.Errorf("%w: app: invalid configuration", common.ErrInvalidParameter)
)

type History struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	File    string `yaml:"file" json:"file" mapstructure:"file"`
}

type Config struct {
	DefaultKeySize   int               `yaml:"default-key-size" json:"default_key_size" mapstructure:"default-key-size" validate:"oneof=512 1024 2048 3072 4096"`
	PKCS12Iterations int               `yaml:"pkcs12-iterations" json:"pkcs12_iterations" mapstructure:"pkcs12-iterations" validate:"min=1000"`
	LogDir           string            `yaml:"log-dir" json:"log_dir" mapstructure:"log-dir"`
	DataDir          string            `yaml:"data-dir" json:"data_dir" mapstructure:"data-dir" validate:"required"`
	Debug            bool              `yaml:"debug" json:"debug" mapstructure:"debug"`
	WebService       webservice.Config `yaml:"webservice" json:"webservice" mapstructure:"webservice"`
	History          History           `yaml:"history" json:"history" mapstructure:"history"`
}

// Validates the configuration, reporting field names as they
// appear in the configuration file
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	return nil
}
