package matcher

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/jeremyhahn/go-pki-tool/pkg/codec"
	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSigned(t *testing.T, key *rsa.PrivateKey) *x509.Certificate {
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "example.com"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.Nil(t, err)
	cert, err := x509.ParseCertificate(der)
	require.Nil(t, err)
	return cert
}

func TestMatch(t *testing.T) {

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.Nil(t, err)
	unrelated, err := rsa.GenerateKey(rand.Reader, 1024)
	require.Nil(t, err)

	cert := selfSigned(t, key)

	for i := 0; i < 3; i++ {
		matches, err := Match(cert, key)
		assert.Nil(t, err)
		assert.True(t, matches)

		matches, err = Match(cert, unrelated)
		assert.Nil(t, err)
		assert.False(t, matches)
	}
}

func TestMatchIgnoresExponent(t *testing.T) {

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.Nil(t, err)
	cert := selfSigned(t, key)

	// Same modulus, different exponent
	altered := *key
	altered.PublicKey = rsa.PublicKey{N: new(big.Int).Set(key.N), E: 3}

	matches, err := Match(cert, &altered)
	assert.Nil(t, err)
	assert.True(t, matches)
}

func TestMatchBytes(t *testing.T) {

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.Nil(t, err)
	cert := selfSigned(t, key)

	certPEM, err := codec.EncodeCertificate(cert)
	require.Nil(t, err)
	keyPEM, err := codec.EncodePrivateKey(key)
	require.Nil(t, err)

	// PEM cert, PEM key
	matches, err := MatchBytes(certPEM, keyPEM, nil)
	assert.Nil(t, err)
	assert.True(t, matches)

	// DER cert, PKCS #1 DER key
	matches, err = MatchBytes(cert.Raw, x509.MarshalPKCS1PrivateKey(key), nil)
	assert.Nil(t, err)
	assert.True(t, matches)
}

func TestMatchBytesMalformed(t *testing.T) {

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.Nil(t, err)
	keyPEM, err := codec.EncodePrivateKey(key)
	require.Nil(t, err)

	_, err = MatchBytes([]byte("garbage"), keyPEM, nil)
	assert.ErrorIs(t, err, common.ErrMalformedInput)

	_, err = MatchBytes(selfSigned(t, key).Raw, []byte("garbage"), nil)
	assert.ErrorIs(t, err, common.ErrMalformedInput)
}

func TestMatchNil(t *testing.T) {
	_, err := Match(nil, nil)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
}
