package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-pki-tool/pkg/app"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/jwt"
	"github.com/spf13/cobra"
)

var (
	TokenSubject string
	TokenTTL     time.Duration

	ErrJWTSecretRequired = errors.New("webservice.jwt-secret is not configured")
)

func init() {
	tokenCmd.Flags().StringVar(&TokenSubject, "subject", "operator", "Token subject")
	tokenCmd.Flags().DurationVar(&TokenTTL, "ttl", jwt.DefaultExpiration, "Token lifetime")

	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate a bearer token for the REST service",
	RunE: func(cmd *cobra.Command, args []string) error {

		if err := initApp(); err != nil {
			return err
		}
		if App.WebService.JWTSecret == "" {
			return ErrJWTSecretRequired
		}

		service, err := jwt.NewService(jwt.ServiceParams{
			Expiration: TokenTTL,
			Issuer:     app.Name,
			Secret:     []byte(App.WebService.JWTSecret),
		})
		if err != nil {
			return err
		}
		token, err := service.GenerateToken(TokenSubject)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
