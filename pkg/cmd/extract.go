package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/jeremyhahn/go-pki-tool/pkg/history"
	"github.com/jeremyhahn/go-pki-tool/pkg/secret"
	"github.com/spf13/cobra"
)

const (
	extractedCertificateFile = "certificate.crt"
	extractedPrivateKeyFile  = "private.key"
)

var (
	ExtractPFX,
	ExtractPassword,
	ExtractKeyPassword,
	ExtractOutDir string
	ExtractEncryptKey bool
)

func init() {
	extractCmd.Flags().StringVar(&ExtractPFX, "pfx", "", "PKCS #12 file (.pfx, .p12)")
	extractCmd.Flags().StringVar(&ExtractPassword, "password", "", "Archive password. Prompted for when omitted")
	extractCmd.Flags().StringVar(&ExtractOutDir, "out-dir", ".", "Output directory")
	extractCmd.Flags().BoolVar(&ExtractEncryptKey, "encrypt-key", false, "Write the private key as an encrypted PKCS #8 key")
	extractCmd.Flags().StringVar(&ExtractKeyPassword, "key-password", "", "Private key password for --encrypt-key. Prompted for when omitted")
	extractCmd.MarkFlagRequired("pfx")

	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the certificate and private key from a PKCS #12 archive",
	Long: `Decrypts a PKCS #12 (PFX) archive and writes the first certificate to
certificate.crt and the first private key to private.key, PEM encoded.
With --encrypt-key the private key is written as a password protected
PKCS #8 key (PBES2, AES-256-CBC).`,
	RunE: func(cmd *cobra.Command, args []string) error {

		if err := initApp(); err != nil {
			return err
		}
		p := newPrompter(cmd)

		data, err := readFile(ExtractPFX)
		if err != nil {
			return err
		}

		password := []byte(ExtractPassword)
		if !cmd.Flags().Changed("password") {
			if password, err = p.Password("Archive password"); err != nil {
				return err
			}
		}

		extracted, err := App.Toolkit.ExtractFromPKCS12(data, secret.NewClearPassword(password))
		if err != nil {
			record(history.OperationExtract, "", ExtractPFX, err)
			return err
		}
		record(history.OperationExtract, "", fmt.Sprintf("certificates=%d keys=%d",
			extracted.CertificateCount, extracted.KeyCount), nil)

		if extracted.Certificate == nil && extracted.PrivateKey == nil {
			p.Warning("The archive does not contain a certificate or private key")
			return nil
		}
		if extracted.CertificateCount > 1 {
			p.Warning("The archive contains %d certificates, extracted the first", extracted.CertificateCount)
		}
		if extracted.KeyCount > 1 {
			p.Warning("The archive contains %d private keys, extracted the first", extracted.KeyCount)
		}

		if extracted.Certificate != nil {
			certFile := filepath.Join(ExtractOutDir, extractedCertificateFile)
			if err := writeFile(certFile, extracted.Certificate, publicFileMode); err != nil {
				return err
			}
			p.Success("Certificate: %s", certFile)
		}
		if extracted.PrivateKey != nil {
			keyPEM := extracted.PrivateKey
			if ExtractEncryptKey {
				keyPassword := []byte(ExtractKeyPassword)
				if !cmd.Flags().Changed("key-password") {
					pw, matches, err := p.ConfirmPassword("Private key password")
					if err != nil {
						return err
					}
					if !matches {
						clear(pw)
						return common.ErrPasswordsDontMatch
					}
					keyPassword = pw
				}
				keyPEM, err = App.Toolkit.EncryptPrivateKey(keyPEM, secret.NewClearPassword(keyPassword))
				if err != nil {
					return err
				}
			}
			keyFile := filepath.Join(ExtractOutDir, extractedPrivateKeyFile)
			if err := writeFile(keyFile, keyPEM, privateFileMode); err != nil {
				return err
			}
			p.Success("Private key: %s", keyFile)
		}
		return nil
	},
}
