package cmd

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-pki-tool/pkg/history"
	"github.com/jeremyhahn/go-pki-tool/pkg/serializer"
	"github.com/spf13/cobra"
)

var (
	HistoryFormat string

	ErrHistoryDisabled = errors.New("history log is disabled")
)

func init() {
	historyCmd.Flags().StringVar(&HistoryFormat, "format", "yaml", "Output format: json or yaml")

	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously performed operations",
	RunE: func(cmd *cobra.Command, args []string) error {

		if err := initApp(); err != nil {
			return err
		}
		if App.HistoryLog == nil {
			return ErrHistoryDisabled
		}

		serializerType, err := serializer.ParseSerializer(HistoryFormat)
		if err != nil {
			return err
		}
		s, err := serializer.NewSerializer[[]history.Entry](serializerType)
		if err != nil {
			return err
		}
		data, err := App.HistoryLog.Export(s)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}
