package codec

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Modulus of the 1024-bit key in testdata, encrypted by OpenSSL 3.0
// with the password "changeit"
const opensslKeyModulus = "C41BCE3E1BF04706C3242DC43B343A753F83E5DCBB1C53F13AFEF7BC2F6E5981" +
	"2858DB310915716863C7B0BDA6D2624414725444F12B9964FECB20B8C1F05738" +
	"9999BD169261FF00B82238AF5F92F11C71445B56E81F41F5FFA61E31BC54C249" +
	"FBC8DF26DD6D2D5A4453EB5948ECADA7EFF7E39C3897642124D1781C7851CC35"

func readTestdata(t *testing.T, name string) []byte {
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.Nil(t, err)
	return data
}

// Re-encodes an encrypted key after letting edit change its PBES2
// parameters and ciphertext
func rewritePBES2(t *testing.T, der []byte, edit func(*pbes2Params, *encryptedPrivateKeyInfo)) []byte {
	var info encryptedPrivateKeyInfo
	_, err := asn1.Unmarshal(der, &info)
	require.Nil(t, err)
	var params pbes2Params
	_, err = asn1.Unmarshal(info.Algorithm.Parameters.FullBytes, &params)
	require.Nil(t, err)

	edit(&params, &info)

	raw, err := asn1.Marshal(params)
	require.Nil(t, err)
	info.Algorithm.Parameters = asn1.RawValue{FullBytes: raw}
	out, err := asn1.Marshal(info)
	require.Nil(t, err)
	return out
}

func TestParseOpenSSLEncryptedPrivateKey(t *testing.T) {

	modulus, ok := new(big.Int).SetString(opensslKeyModulus, 16)
	require.True(t, ok)

	data := readTestdata(t, "openssl-pkcs8-aes256.pem")
	key, err := ParsePrivateKey(data, []byte("changeit"))
	require.Nil(t, err)
	assert.Equal(t, 0, modulus.Cmp(key.N))

	for _, password := range []string{"changeme", "CHANGEIT", "x"} {
		_, err = ParsePrivateKey(data, []byte(password))
		assert.ErrorIs(t, err, ErrIncorrectPassword)
		assert.ErrorIs(t, err, common.ErrAuthenticationFailed)
	}
}

func TestParseEncryptedPrivateKeyUnsupportedScheme(t *testing.T) {

	// PKCS #12 pbeWithSHAAnd3-KeyTripleDES-CBC, not PBES2
	_, err := ParsePrivateKey(readTestdata(t, "openssl-pkcs8-pbe-3des.pem"), []byte("changeit"))
	assert.ErrorIs(t, err, ErrUnsupportedKeyEncryption)
	assert.NotErrorIs(t, err, common.ErrAuthenticationFailed)
}

func TestParseEncryptedPrivateKeyMalformedEnvelope(t *testing.T) {

	encrypted, err := EncodeEncryptedPrivateKey(createKey(t), []byte("secret"))
	require.Nil(t, err)
	_, der, err := DecodePEM(encrypted)
	require.Nil(t, err)

	shortIV, err := asn1.Marshal([]byte{1, 2, 3})
	require.Nil(t, err)
	slowKDF, err := asn1.Marshal(pbkdf2Params{
		Salt:           []byte("0123456789abcdef"),
		IterationCount: 1 << 30,
		PRF:            pkix.AlgorithmIdentifier{Algorithm: oidHMACWithSHA256, Parameters: asn1.NullRawValue},
	})
	require.Nil(t, err)

	tests := []struct {
		name string
		edit func(*pbes2Params, *encryptedPrivateKeyInfo)
		err  error
	}{
		{"gcm cipher", func(p *pbes2Params, _ *encryptedPrivateKeyInfo) {
			p.EncryptionScheme.Algorithm = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 46}
		}, ErrUnsupportedKeyEncryption},
		{"scrypt", func(p *pbes2Params, _ *encryptedPrivateKeyInfo) {
			p.KeyDerivationFunc.Algorithm = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11591, 4, 11}
		}, ErrUnsupportedKeyEncryption},
		{"short iv", func(p *pbes2Params, _ *encryptedPrivateKeyInfo) {
			p.EncryptionScheme.Parameters = asn1.RawValue{FullBytes: shortIV}
		}, ErrInvalidPrivateKey},
		{"truncated ciphertext", func(_ *pbes2Params, info *encryptedPrivateKeyInfo) {
			info.EncryptedData = info.EncryptedData[:len(info.EncryptedData)-3]
		}, ErrInvalidPrivateKey},
		{"iteration count", func(p *pbes2Params, _ *encryptedPrivateKeyInfo) {
			p.KeyDerivationFunc.Parameters = asn1.RawValue{FullBytes: slowKDF}
		}, ErrInvalidPrivateKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePrivateKey(rewritePBES2(t, der, tt.edit), []byte("secret"))
			assert.ErrorIs(t, err, tt.err)
			assert.NotErrorIs(t, err, common.ErrAuthenticationFailed)
		})
	}
}
