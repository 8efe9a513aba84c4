package cmd

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jeremyhahn/go-pki-tool/pkg/app"
	"github.com/jeremyhahn/go-pki-tool/pkg/codec"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const testConfig = `
default-key-size: 1024
pkcs12-iterations: 1000
log-dir: /var/log/pki-tool
data-dir: /var/lib/pki-tool
webservice:
  listen: localhost:0
  jwt-secret: test-secret
`

// Resets the package state and returns the in-memory file system
// the commands operate on
func setup(t *testing.T, config string) afero.Fs {
	closeApp()
	resetFlags(rootCmd)

	fs := afero.NewMemMapFs()
	require.Nil(t, fs.MkdirAll("/etc/pki-tool", os.ModePerm))
	require.Nil(t, afero.WriteFile(fs, "/etc/pki-tool/config.yaml", []byte(config), 0644))

	*InitParams = app.AppInitParams{
		ConfigDir: "/etc/pki-tool",
		Fs:        fs,
	}
	t.Cleanup(closeApp)
	return fs
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func executeCommand(args []string, stdin string) (string, error) {

	b := new(bytes.Buffer)

	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(b)
	rootCmd.SetErr(b)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return b.String(), err
}

// Writes a self-signed certificate and its private key to the file
// system, PEM encoded
func createPair(t *testing.T, fs afero.Fs, cn, certFile, keyFile string) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.Nil(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.Nil(t, err)
	certPEM, err := codec.EncodePEM(codec.PEM_TYPE_CERTIFICATE, der)
	require.Nil(t, err)
	keyPEM, err := codec.EncodePrivateKey(key)
	require.Nil(t, err)
	require.Nil(t, afero.WriteFile(fs, certFile, certPEM, 0644))
	require.Nil(t, afero.WriteFile(fs, keyFile, keyPEM, 0600))
}
