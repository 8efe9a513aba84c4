package cmd

import (
	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/jeremyhahn/go-pki-tool/pkg/history"
	"github.com/jeremyhahn/go-pki-tool/pkg/secret"
	"github.com/spf13/cobra"
)

var (
	PFXCertificate,
	PFXPrivateKey,
	PFXPassword,
	PFXOut string
)

func init() {
	pfxCmd.Flags().StringVar(&PFXCertificate, "cert", "", "Certificate file (.crt, .cer, .pem)")
	pfxCmd.Flags().StringVar(&PFXPrivateKey, "key", "", "Private key file (.key, .pem)")
	pfxCmd.Flags().StringVar(&PFXPassword, "password", "", "Archive password. Prompted for when omitted")
	pfxCmd.Flags().StringVar(&PFXOut, "out", "certificate.pfx", "Output PKCS #12 file (.pfx, .p12)")
	pfxCmd.MarkFlagRequired("cert")
	pfxCmd.MarkFlagRequired("key")

	rootCmd.AddCommand(pfxCmd)
}

var pfxCmd = &cobra.Command{
	Use:   "pfx",
	Short: "Create a PKCS #12 archive",
	Long: `Packages a certificate and private key into a password protected
PKCS #12 (PFX) archive. The certificate and key are not required to match;
a warning is printed when they don't.`,
	RunE: func(cmd *cobra.Command, args []string) error {

		if err := initApp(); err != nil {
			return err
		}
		p := newPrompter(cmd)

		certData, err := readFile(PFXCertificate)
		if err != nil {
			return err
		}
		keyData, err := readFile(PFXPrivateKey)
		if err != nil {
			return err
		}

		var password []byte
		if PFXPassword != "" {
			password = []byte(PFXPassword)
		} else {
			pw, matches, err := p.ConfirmPassword("Archive password")
			if err != nil {
				return err
			}
			if !matches {
				clear(pw)
				return common.ErrPasswordsDontMatch
			}
			password = pw
		}

		if matches, err := App.Toolkit.VerifyMatch(certData, keyData); err == nil && !matches {
			p.Warning("WARNING: the certificate and private key do not match")
		}

		archive, err := App.Toolkit.CreatePKCS12(certData, keyData, secret.NewClearPassword(password))
		record(history.OperationPKCS12, "", PFXOut, err)
		if err != nil {
			return err
		}

		if err := writeFile(PFXOut, archive, privateFileMode); err != nil {
			return err
		}

		p.Success("PKCS #12 archive: %s", PFXOut)
		return nil
	},
}
