package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeremyhahn/go-pki-tool/pkg/app"
	"github.com/jeremyhahn/go-pki-tool/pkg/history"
	"github.com/jeremyhahn/go-pki-tool/pkg/prompt"
	"github.com/spf13/cobra"
)

var (
	App *app.App

	// Initialization parameters set by the persistent flags
	InitParams = &app.AppInitParams{}
)

var rootCmd = &cobra.Command{
	Use:   app.Name,
	Short: "RSA certificate and key toolkit",
	Long: `Generates RSA keys and PKCS #10 certificate signing requests, packages
certificates and private keys into password protected PKCS #12 archives,
extracts them again and verifies that a certificate and private key belong
together.`,
	SilenceUsage: true,
}

func init() {

	rootCmd.PersistentFlags().BoolVarP(&InitParams.Debug, "debug", "d", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&InitParams.ConfigDir, "config-dir", "", "Configuration file directory")
	rootCmd.PersistentFlags().StringVar(&InitParams.LogDir, "log-dir", "", "Log file directory")
	rootCmd.PersistentFlags().StringVar(&InitParams.DataDir, "data-dir", "", "Data directory for the history log")
	rootCmd.PersistentFlags().StringVar(&InitParams.EnvFile, "env-file", "", "dotenv file to load before reading the configuration")
}

// Runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeApp()
	return rootCmd.ExecuteContext(ctx)
}

// Initializes the application on first use
func initApp() error {
	if App != nil {
		return nil
	}
	a, err := app.NewApp().Init(InitParams)
	if err != nil {
		return err
	}
	App = a
	return nil
}

func closeApp() {
	if App != nil {
		App.Close()
		App = nil
	}
}

// Returns a prompter that reads from the command input. Passwords
// are read without echo when the command reads from a terminal.
func newPrompter(cmd *cobra.Command) *prompt.Prompter {
	in := cmd.InOrStdin()
	if in == os.Stdin {
		return prompt.NewTerminalPrompter()
	}
	return prompt.NewPrompter(in, cmd.OutOrStdout())
}

// Appends an entry to the history log when it is enabled
func record(op history.Operation, subject, detail string, err error) {
	if App == nil || App.HistoryLog == nil {
		return
	}
	if _, herr := App.HistoryLog.Append(op, subject, detail, err == nil); herr != nil {
		App.Logger.Error(herr)
	}
}
