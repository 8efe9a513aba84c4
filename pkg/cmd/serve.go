package cmd

import (
	"github.com/jeremyhahn/go-pki-tool/pkg/app"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice"
	"github.com/spf13/cobra"
)

func init() {
	serveCmd.Flags().StringVar(&InitParams.Listen, "listen", "", "The listen address for the REST service")

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST web service",
	Long: `Starts the embedded web server hosting the REST API. The server
shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {

		if err := initApp(); err != nil {
			return err
		}

		newPrompter(cmd).PrintBanner(app.Version)

		webserver, err := webservice.NewWebServer(&webservice.Params{
			Config:  &App.WebService,
			History: App.HistoryLog,
			Logger:  App.Logger,
			Name:    app.Name,
			Toolkit: App.Toolkit,
			Version: app.Version,
		})
		if err != nil {
			App.Logger.Error(err)
			return err
		}

		if err := webserver.Run(cmd.Context()); err != nil {
			App.Logger.Error(err)
			return err
		}

		App.Logger.Info("Graceful shutdown complete")
		return nil
	},
}
