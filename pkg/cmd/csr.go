package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/jeremyhahn/go-pki-tool/pkg/csr"
	"github.com/jeremyhahn/go-pki-tool/pkg/history"
	"github.com/jeremyhahn/go-pki-tool/pkg/toolkit"
	"github.com/spf13/cobra"
)

var (
	CSRCommonName,
	CSROrganization,
	CSROrganizationalUnit,
	CSRCountry,
	CSRState,
	CSRLocality,
	CSROutDir string
	CSRKeySize int
)

func init() {
	csrCmd.Flags().StringVar(&CSRCommonName, "cn", "", "Subject common name (required)")
	csrCmd.Flags().StringVar(&CSROrganization, "o", "", "Subject organization")
	csrCmd.Flags().StringVar(&CSROrganizationalUnit, "ou", "", "Subject organizational unit")
	csrCmd.Flags().StringVar(&CSRCountry, "c", "", "Subject two letter country code")
	csrCmd.Flags().StringVar(&CSRState, "st", "", "Subject state or province")
	csrCmd.Flags().StringVar(&CSRLocality, "l", "", "Subject locality")
	csrCmd.Flags().IntVar(&CSRKeySize, "key-size", 0, "RSA key size: 512, 1024, 2048, 3072 or 4096 (default from config)")
	csrCmd.Flags().StringVar(&CSROutDir, "out-dir", ".", "Output directory")

	rootCmd.AddCommand(csrCmd)
}

var csrCmd = &cobra.Command{
	Use:   "csr",
	Short: "Generate an RSA key and certificate signing request",
	Long: `Generates a new RSA private key and a PKCS #10 certificate signing
request signed with SHA-256. The request is written to <cn>.csr and the
private key to <cn>.key in the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {

		if err := initApp(); err != nil {
			return err
		}
		p := newPrompter(cmd)

		subject := csr.Subject{
			CommonName:         CSRCommonName,
			Organization:       CSROrganization,
			OrganizationalUnit: CSROrganizationalUnit,
			Country:            CSRCountry,
			State:              CSRState,
			Locality:           CSRLocality,
		}
		result, err := App.Toolkit.GenerateKeyAndCSR(cmd.Context(), toolkit.CSRRequest{
			Subject: subject,
			KeySize: CSRKeySize,
		})
		if err != nil {
			record(history.OperationCSR, subject.CommonName, "", err)
			return err
		}
		if result.Insecure {
			p.Warning("WARNING: %s", result.Warning)
		}

		base := filepath.Join(CSROutDir, fileName(subject.Normalize().CommonName))
		csrFile := base + ".csr"
		keyFile := base + ".key"

		if err := writeFile(csrFile, result.CSR, publicFileMode); err != nil {
			return err
		}
		if err := writeFile(keyFile, result.PrivateKey, privateFileMode); err != nil {
			return err
		}
		record(history.OperationCSR, subject.CommonName,
			fmt.Sprintf("key-size=%d", result.KeySize), nil)

		p.Success("Subject: %s", result.Subject)
		p.Success("Certificate signing request: %s", csrFile)
		p.Success("Private key (%d bits): %s", result.KeySize, keyFile)
		return nil
	},
}
