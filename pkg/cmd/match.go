package cmd

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-pki-tool/pkg/history"
	"github.com/spf13/cobra"
)

var (
	MatchCertificate,
	MatchPrivateKey string

	ErrKeyMismatch = errors.New("certificate and private key do not match")
)

func init() {
	matchCmd.Flags().StringVar(&MatchCertificate, "cert", "", "Certificate file (.crt, .cer, .pem)")
	matchCmd.Flags().StringVar(&MatchPrivateKey, "key", "", "Private key file (.key, .pem)")
	matchCmd.MarkFlagRequired("cert")
	matchCmd.MarkFlagRequired("key")

	rootCmd.AddCommand(matchCmd)
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Verify that a certificate and private key belong together",
	Long: `Compares the RSA modulus of the certificate public key with the
modulus of the private key. Exits with an error when they differ.`,
	RunE: func(cmd *cobra.Command, args []string) error {

		if err := initApp(); err != nil {
			return err
		}
		p := newPrompter(cmd)

		certData, err := readFile(MatchCertificate)
		if err != nil {
			return err
		}
		keyData, err := readFile(MatchPrivateKey)
		if err != nil {
			return err
		}

		matches, err := App.Toolkit.VerifyMatch(certData, keyData)
		record(history.OperationMatch, "", fmt.Sprintf("matches=%t", matches), err)
		if err != nil {
			return err
		}
		if !matches {
			p.Failure("MISMATCH: %s", ErrKeyMismatch)
			return ErrKeyMismatch
		}
		p.Success("MATCH: the certificate and private key belong together")
		return nil
	},
}
