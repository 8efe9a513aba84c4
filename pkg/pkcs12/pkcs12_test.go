package pkcs12

import (
	"crypto/rsa"
	"crypto/x509"
	"testing"

	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpack(t *testing.T) {

	key := createKey(t)
	cert := createCertificate(t, "example.com", key)

	archive, err := Pack(cert, key, []byte("pw1"), &EncodeOptions{
		FriendlyName: "example.com",
	})
	require.Nil(t, err)

	contents, err := Unpack(archive, []byte("pw1"))
	require.Nil(t, err)

	assert.Equal(t, cert.Raw, contents.Certificate.Raw)
	assert.Equal(t, 0, key.N.Cmp(contents.PrivateKey.N))
	assert.Equal(t, 0, key.D.Cmp(contents.PrivateKey.D))
	assert.Equal(t, 1, contents.CertificateCount)
	assert.Equal(t, 1, contents.KeyCount)
	assert.Equal(t, "example.com", contents.FriendlyName)
}

func TestPackUnpackUnicodePassword(t *testing.T) {

	key := createKey(t)
	cert := createCertificate(t, "example.com", key)
	password := []byte("pässwörd-日本")

	archive, err := Pack(cert, key, password, nil)
	require.Nil(t, err)

	contents, err := Unpack(archive, password)
	require.Nil(t, err)
	assert.Equal(t, 0, key.N.Cmp(contents.PrivateKey.N))
}

func TestUnpackWrongPassword(t *testing.T) {

	key := createKey(t)
	cert := createCertificate(t, "example.com", key)

	archive, err := Pack(cert, key, []byte("pw1"), nil)
	require.Nil(t, err)

	for _, password := range [][]byte{[]byte("pw2"), []byte(""), []byte("PW1")} {
		contents, err := Unpack(archive, password)
		assert.Nil(t, contents)
		assert.ErrorIs(t, err, ErrIncorrectPassword)
		assert.ErrorIs(t, err, common.ErrAuthenticationFailed)
	}
}

func TestUnpackTamperedMAC(t *testing.T) {

	key := createKey(t)
	cert := createCertificate(t, "example.com", key)

	archive, err := Pack(cert, key, []byte("pw1"), nil)
	require.Nil(t, err)

	// MacData ends with the 16 byte salt (04 10 ...) and the
	// iteration count 2048 (02 02 08 00). The digest precedes them.
	tampered := append([]byte(nil), archive...)
	tampered[len(tampered)-4-18-1] ^= 0x01

	_, err = Unpack(tampered, []byte("pw1"))
	assert.ErrorIs(t, err, common.ErrAuthenticationFailed)
}

func TestPackMismatchedPair(t *testing.T) {

	key := createKey(t)
	other := createKey(t)
	cert := createCertificate(t, "example.com", other)

	archive, err := Pack(cert, key, []byte("pw"), nil)
	require.Nil(t, err)

	contents, err := Unpack(archive, []byte("pw"))
	require.Nil(t, err)

	pub, ok := contents.Certificate.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)
	assert.NotEqual(t, 0, contents.PrivateKey.N.Cmp(pub.N))
	assert.Equal(t, 0, key.N.Cmp(contents.PrivateKey.N))
}

func TestPackInvalidParameters(t *testing.T) {

	key := createKey(t)
	cert := createCertificate(t, "example.com", key)

	_, err := Pack(cert, key, nil, nil)
	assert.ErrorIs(t, err, ErrPasswordRequired)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)

	_, err = Pack(cert, key, []byte(""), nil)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)

	_, err = Pack(nil, key, []byte("pw"), nil)
	assert.ErrorIs(t, err, ErrCertificateRequired)

	_, err = Pack(&x509.Certificate{}, key, []byte("pw"), nil)
	assert.ErrorIs(t, err, ErrCertificateRequired)

	_, err = Pack(cert, nil, []byte("pw"), nil)
	assert.ErrorIs(t, err, ErrPrivateKeyRequired)

	_, err = Pack(cert, key, []byte("pw"), &EncodeOptions{Iterations: 10})
	assert.ErrorIs(t, err, ErrInvalidIterations)

	_, err = Pack(cert, key, []byte("emoji-\U0001F600"), nil)
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestUnpackMalformed(t *testing.T) {

	for _, data := range [][]byte{
		nil,
		[]byte("not a pkcs12 archive"),
		{0x30, 0x80, 0x00, 0x00},
		{0x30, 0x03, 0x02, 0x01, 0x03},
		{0x30, 0x03, 0x02, 0x01, 0x02},
	} {
		contents, err := Unpack(data, []byte("pw"))
		assert.Nil(t, contents)
		assert.ErrorIs(t, err, common.ErrMalformedInput)
	}
}

func TestUnpackTruncated(t *testing.T) {

	key := createKey(t)
	cert := createCertificate(t, "example.com", key)

	archive, err := Pack(cert, key, []byte("pw"), nil)
	require.Nil(t, err)

	_, err = Unpack(archive[:len(archive)/2], []byte("pw"))
	assert.ErrorIs(t, err, common.ErrMalformedInput)
}
