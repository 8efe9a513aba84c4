package toolkit

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/jeremyhahn/go-pki-tool/pkg/codec"
	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/jeremyhahn/go-pki-tool/pkg/csr"
	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
	"github.com/jeremyhahn/go-pki-tool/pkg/pkcs12"
	"github.com/jeremyhahn/go-pki-tool/pkg/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createToolkit(t *testing.T) *Toolkit {
	tk, err := NewToolkit(&Params{
		DefaultKeySize: 1024,
		Iterations:     1000,
	})
	require.Nil(t, err)
	return tk
}

// Returns a PEM encoded self-signed certificate and PKCS #8 key
func createPair(t *testing.T, cn string) ([]byte, []byte) {
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
	return certPEM, keyPEM
}

func TestNewToolkitDefaults(t *testing.T) {
	tk, err := NewToolkit(nil)
	assert.Nil(t, err)
	assert.Equal(t, 2048, tk.params.DefaultKeySize)
	assert.Equal(t, 2048, tk.params.Iterations)

	_, err = NewToolkit(&Params{DefaultKeySize: 1000})
	assert.ErrorIs(t, err, common.ErrInvalidParameter)

	_, err = NewToolkit(&Params{Iterations: 10})
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
}

func TestGenerateKeyAndCSR(t *testing.T) {

	tk := createToolkit(t)

	result, err := tk.GenerateKeyAndCSR(context.Background(), CSRRequest{
		Subject: csr.Subject{
			CommonName:   "www.example.com",
			Organization: "Example Corp",
			Country:      "US",
		},
		KeySize: 1024,
	})
	require.Nil(t, err)
	assert.Equal(t, 1024, result.KeySize)
	assert.True(t, result.Insecure)
	assert.NotEmpty(t, result.Warning)
	assert.Equal(t, csr.Subject{
		CommonName:   "www.example.com",
		Organization: "Example Corp",
		Country:      "US",
	}, result.Subject)

	request, err := codec.ParseCertificateRequest(result.CSR)
	require.Nil(t, err)
	assert.Equal(t, "www.example.com", request.Subject.CommonName)
	assert.Equal(t, x509.SHA256WithRSA, request.SignatureAlgorithm)

	key, err := codec.ParsePrivateKey(result.PrivateKey, nil)
	require.Nil(t, err)
	assert.Equal(t, 1024, key.N.BitLen())
	assert.Equal(t, 0, request.PublicKey.(*rsa.PublicKey).N.Cmp(key.N))
}

func TestGenerateKeyAndCSRDefaultKeySize(t *testing.T) {

	tk := createToolkit(t)

	result, err := tk.GenerateKeyAndCSR(context.Background(), CSRRequest{
		Subject: csr.Subject{CommonName: "default.example.com"},
	})
	require.Nil(t, err)
	assert.Equal(t, 1024, result.KeySize)
}

func TestGenerateKeyAndCSRSecureKey(t *testing.T) {

	if testing.Short() {
		t.Skip("skipping 2048-bit key generation in short mode")
	}

	tk, err := NewToolkit(nil)
	require.Nil(t, err)

	result, err := tk.GenerateKeyAndCSR(context.Background(), CSRRequest{
		Subject: csr.Subject{CommonName: "secure.example.com"},
	})
	require.Nil(t, err)
	assert.Equal(t, 2048, result.KeySize)
	assert.False(t, result.Insecure)
	assert.Empty(t, result.Warning)
}

func TestGenerateKeyAndCSRInvalid(t *testing.T) {

	tk := createToolkit(t)

	_, err := tk.GenerateKeyAndCSR(context.Background(), CSRRequest{
		Subject: csr.Subject{CommonName: "   "},
	})
	assert.ErrorIs(t, err, csr.ErrInvalidSubject)

	_, err = tk.GenerateKeyAndCSR(context.Background(), CSRRequest{
		Subject: csr.Subject{CommonName: "example.com"},
		KeySize: 1536,
	})
	assert.ErrorIs(t, err, common.ErrInvalidParameter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tk.GenerateKeyAndCSR(ctx, CSRRequest{
		Subject: csr.Subject{CommonName: "example.com"},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateAndExtractPKCS12(t *testing.T) {

	tk := createToolkit(t)
	certPEM, keyPEM := createPair(t, "pkcs12.example.com")

	password := secret.NewClearPasswordFromString("s3cret")
	archive, err := tk.CreatePKCS12(certPEM, keyPEM, password)
	require.Nil(t, err)
	assert.NotEmpty(t, archive)

	// The password is zeroed after use
	_, err = password.Bytes()
	assert.ErrorIs(t, err, secret.ErrPasswordCleared)

	extracted, err := tk.ExtractFromPKCS12(archive, secret.NewClearPasswordFromString("s3cret"))
	require.Nil(t, err)
	assert.Equal(t, 1, extracted.CertificateCount)
	assert.Equal(t, 1, extracted.KeyCount)
	assert.NotNil(t, extracted.Certificate)
	assert.NotNil(t, extracted.PrivateKey)

	matches, err := tk.VerifyMatch(extracted.Certificate, extracted.PrivateKey)
	assert.Nil(t, err)
	assert.True(t, matches)

	matches, err = tk.VerifyMatch(certPEM, extracted.PrivateKey)
	assert.Nil(t, err)
	assert.True(t, matches)
}

func TestCreatePKCS12Invalid(t *testing.T) {

	tk := createToolkit(t)
	certPEM, keyPEM := createPair(t, "example.com")

	_, err := tk.CreatePKCS12(certPEM, keyPEM, secret.NewClearPasswordFromString(""))
	assert.ErrorIs(t, err, common.ErrInvalidParameter)

	_, err = tk.CreatePKCS12(certPEM, keyPEM, nil)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)

	_, err = tk.CreatePKCS12([]byte("garbage"), keyPEM, secret.NewClearPasswordFromString("pw"))
	assert.ErrorIs(t, err, common.ErrMalformedInput)

	_, err = tk.CreatePKCS12(certPEM, []byte("garbage"), secret.NewClearPasswordFromString("pw"))
	assert.ErrorIs(t, err, common.ErrMalformedInput)
}

func TestCreatePKCS12MismatchedPair(t *testing.T) {

	tk := createToolkit(t)
	certPEM, _ := createPair(t, "cert.example.com")
	otherCertPEM, keyPEM := createPair(t, "key.example.com")

	archive, err := tk.CreatePKCS12(certPEM, keyPEM, secret.NewClearPasswordFromString("pw"))
	require.Nil(t, err)

	extracted, err := tk.ExtractFromPKCS12(archive, secret.NewClearPasswordFromString("pw"))
	require.Nil(t, err)

	matches, err := tk.VerifyMatch(extracted.Certificate, extracted.PrivateKey)
	assert.Nil(t, err)
	assert.False(t, matches)

	matches, err = tk.VerifyMatch(otherCertPEM, extracted.PrivateKey)
	assert.Nil(t, err)
	assert.True(t, matches)
}

func TestExtractWrongPasswordLogsSecurityEvent(t *testing.T) {

	var buf bytes.Buffer
	tk, err := NewToolkit(&Params{
		Logger:         logging.NewLogger(slog.LevelInfo, &buf),
		DefaultKeySize: 1024,
	})
	require.Nil(t, err)

	certPEM, keyPEM := createPair(t, "example.com")
	archive, err := tk.CreatePKCS12(certPEM, keyPEM, secret.NewClearPasswordFromString("right-password"))
	require.Nil(t, err)

	_, err = tk.ExtractFromPKCS12(archive, secret.NewClearPasswordFromString("wrong-password"))
	assert.ErrorIs(t, err, common.ErrAuthenticationFailed)

	output := buf.String()
	assert.NotContains(t, output, "wrong-password")
	assert.NotContains(t, output, "right-password")

	found := false
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		var entry map[string]any
		require.Nil(t, json.Unmarshal([]byte(line), &entry))
		if entry["level"] == "SECURITY" {
			found = true
			assert.Equal(t, logging.CategoryAuthentication, entry["category"])
		}
	}
	assert.True(t, found)
}

func TestVerifyMatchMalformed(t *testing.T) {
	tk := createToolkit(t)
	_, keyPEM := createPair(t, "example.com")
	_, err := tk.VerifyMatch([]byte("garbage"), keyPEM)
	assert.ErrorIs(t, err, common.ErrMalformedInput)
}

func TestEncryptPrivateKey(t *testing.T) {

	tk := createToolkit(t)
	_, keyPEM := createPair(t, "example.com")
	original, err := codec.ParsePrivateKey(keyPEM, nil)
	require.Nil(t, err)

	password := secret.NewClearPasswordFromString("key-secret")
	encrypted, err := tk.EncryptPrivateKey(keyPEM, password)
	require.Nil(t, err)
	assert.True(t, password.Empty())

	key, err := codec.ParsePrivateKey(encrypted, []byte("key-secret"))
	require.Nil(t, err)
	assert.True(t, key.Equal(original))

	_, err = tk.EncryptPrivateKey(keyPEM, nil)
	assert.ErrorIs(t, err, codec.ErrPrivateKeyPasswordRequired)
	_, err = tk.EncryptPrivateKey(keyPEM, secret.NewClearPasswordFromString(""))
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
	_, err = tk.EncryptPrivateKey([]byte("not a key"), secret.NewClearPasswordFromString("pw"))
	assert.ErrorIs(t, err, common.ErrMalformedInput)
}

func TestNewToolkitIterationsOutOfRange(t *testing.T) {
	_, err := NewToolkit(&Params{Iterations: pkcs12.MAX_ITERATIONS + 1})
	assert.ErrorIs(t, err, pkcs12.ErrInvalidIterations)
}
