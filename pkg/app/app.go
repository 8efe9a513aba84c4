package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeremyhahn/go-pki-tool/pkg/history"
	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
	"github.com/jeremyhahn/go-pki-tool/pkg/toolkit"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "PKI_TOOL"
)

type App struct {
	Config
	ConfigDir  string
	Fs         afero.Fs
	HistoryLog *history.Log
	Logger     *logging.Logger
	Toolkit    *toolkit.Toolkit
	configFile string
	logFile    io.Closer
}

// Values supplied on the command line. Non-zero values
// override the configuration file.
type AppInitParams struct {
	ConfigDir string
	DataDir   string
	Debug     bool
	EnvFile   string
	Fs        afero.Fs
	LogDir    string
	Listen    string
}

func NewApp() *App {
	return new(App)
}

// Initialize the application by loading the environment and
// configuration file, then creating the logger, history log
// and toolkit.
func (app *App) Init(initParams *AppInitParams) (*App, error) {
	if initParams == nil {
		initParams = &AppInitParams{}
	}
	app.Fs = initParams.Fs
	if app.Fs == nil {
		app.Fs = afero.NewOsFs()
	}
	app.ConfigDir = initParams.ConfigDir

	if err := loadEnv(initParams.EnvFile); err != nil {
		return nil, err
	}
	if err := app.initConfig(initParams); err != nil {
		return nil, err
	}
	if err := app.initLogger(); err != nil {
		return nil, err
	}
	if err := app.initHistory(); err != nil {
		return nil, err
	}

	tk, err := toolkit.NewToolkit(&toolkit.Params{
		Logger:         app.Logger,
		DefaultKeySize: app.DefaultKeySize,
		Iterations:     app.PKCS12Iterations,
	})
	if err != nil {
		return nil, err
	}
	app.Toolkit = tk

	return app, nil
}

// Closes the log file
func (app *App) Close() error {
	if app.logFile != nil {
		return app.logFile.Close()
	}
	return nil
}

// Loads environment variables from a dotenv file. The default
// .env file is optional; an explicitly named file must exist.
func loadEnv(file string) error {
	if file == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	if strings.HasPrefix(file, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		file = strings.Replace(file, "~", home, 1)
	}
	return godotenv.Load(file)
}

// Read and parse the configuration file. A missing configuration
// file is not an error; defaults and environment variables apply.
func (app *App) initConfig(initParams *AppInitParams) error {

	v := viper.New()
	v.SetFs(app.Fs)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if app.ConfigDir != "" {
		v.AddConfigPath(app.ConfigDir)
	}
	v.AddConfigPath(fmt.Sprintf("$HOME/.%s/", Name))
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	if err := v.Unmarshal(&app.Config); err != nil {
		return err
	}

	// Override config file with CLI options
	if initParams.Debug {
		app.Debug = true
	}
	if initParams.LogDir != "" {
		app.LogDir = initParams.LogDir
	}
	if initParams.DataDir != "" {
		app.DataDir = initParams.DataDir
	}
	if initParams.Listen != "" {
		app.WebService.Listen = initParams.Listen
	}

	app.configFile = v.ConfigFileUsed()

	return app.Config.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default-key-size", DefaultConfig.DefaultKeySize)
	v.SetDefault("pkcs12-iterations", DefaultConfig.PKCS12Iterations)
	v.SetDefault("log-dir", DefaultConfig.LogDir)
	v.SetDefault("data-dir", DefaultConfig.DataDir)
	v.SetDefault("debug", DefaultConfig.Debug)
	v.SetDefault("webservice.listen", DefaultConfig.WebService.Listen)
	v.SetDefault("webservice.jwt-secret", DefaultConfig.WebService.JWTSecret)
	v.SetDefault("webservice.read-timeout", DefaultConfig.WebService.ReadTimeout)
	v.SetDefault("webservice.write-timeout", DefaultConfig.WebService.WriteTimeout)
	v.SetDefault("webservice.extract-rate-limit", DefaultConfig.WebService.ExtractRateLimit)
	v.SetDefault("history.enabled", DefaultConfig.History.Enabled)
	v.SetDefault("history.file", DefaultConfig.History.File)
}

// Creates a JSON file logger in the log directory. When debug is
// enabled, entries are also written to stdout.
func (app *App) initLogger() error {

	level := slog.LevelInfo
	if app.Debug {
		level = slog.LevelDebug
	}

	if app.LogDir == "" {
		app.Logger = logging.NewLogger(level, nil)
		return nil
	}

	if err := app.Fs.MkdirAll(app.LogDir, os.ModePerm); err != nil {
		return err
	}
	logFile := filepath.Join(app.LogDir, fmt.Sprintf("%s.log", Name))
	f, err := app.Fs.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	app.logFile = f
	app.Logger = logging.NewLogger(level, f)

	if app.Debug {
		app.Logger.Debug("Starting logger in debug mode...")
	}
	if app.configFile != "" {
		app.Logger.Infof("Using configuration file: %s", app.configFile)
	}
	return nil
}

// Opens the history log when enabled. Relative history file
// paths are resolved against the data directory.
func (app *App) initHistory() error {
	if !app.History.Enabled {
		return nil
	}
	file := app.History.File
	if file == "" {
		file = history.DefaultFile
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(app.DataDir, file)
	}
	log, err := history.NewLog(&history.Params{
		Fs:     app.Fs,
		Logger: app.Logger,
		File:   file,
	})
	if err != nil {
		return err
	}
	app.HistoryLog = log
	return nil
}
