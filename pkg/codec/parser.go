package codec

import (
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"

	"github.com/youmark/pkcs8"
)

// EncryptedPrivateKeyInfo, RFC 5208 section 6
type encryptedPrivateKeyInfo struct {
	Algorithm     pkix.AlgorithmIdentifier
	EncryptedData []byte
}

// PBES2-params, RFC 8018 appendix A.4
type pbes2Params struct {
	KeyDerivationFunc pkix.AlgorithmIdentifier
	EncryptionScheme  pkix.AlgorithmIdentifier
}

type pbkdf2Params struct {
	Salt           []byte
	IterationCount int
	PRF            pkix.AlgorithmIdentifier `asn1:"optional"`
}

var (
	oidPBES2          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 13}
	oidPBKDF2         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 12}
	oidHMACWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 7}
	oidHMACWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 9}

	// Block size of each PBES2 cipher the pkcs8 package decrypts
	pbes2Ciphers = map[string]int{
		"2.16.840.1.101.3.4.1.2":  16, // aes128-CBC
		"2.16.840.1.101.3.4.1.22": 16, // aes192-CBC
		"2.16.840.1.101.3.4.1.42": 16, // aes256-CBC
		"1.2.840.113549.3.7":      8,  // des-ede3-cbc
	}
)

// Parses a PEM or DER encoded x509 certificate. Only certificates
// carrying an RSA public key are accepted.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	der := data
	if IsPEM(data) {
		label, block, err := DecodePEM(data)
		if err != nil {
			return nil, err
		}
		if label != PEM_TYPE_CERTIFICATE {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedPEMType, label)
		}
		der = block
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCertificate, err)
	}
	if _, ok := cert.PublicKey.(*rsa.PublicKey); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyAlgorithm, cert.PublicKeyAlgorithm)
	}
	return cert, nil
}

// Parses a PEM or DER encoded PKCS #10 certificate signing request
// and verifies its signature.
func ParseCertificateRequest(data []byte) (*x509.CertificateRequest, error) {
	der := data
	if IsPEM(data) {
		label, block, err := DecodePEM(data)
		if err != nil {
			return nil, err
		}
		if label != PEM_TYPE_CERTIFICATE_REQUEST && label != "NEW CERTIFICATE REQUEST" {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedPEMType, label)
		}
		der = block
	}
	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCertificateRequest, err)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCertificateRequest, err)
	}
	return csr, nil
}

// Parses a PEM or DER encoded RSA private key. PKCS #1, PKCS #8 and
// password protected PKCS #8 keys are supported. The password is
// only consulted for encrypted keys and may be nil otherwise.
func ParsePrivateKey(data, password []byte) (*rsa.PrivateKey, error) {
	if !IsPEM(data) {
		return parsePrivateKeyDER(data, password)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidEncodingPEM
	}
	switch block.Type {
	case PEM_TYPE_RSA_PRIVATE_KEY:
		if _, encrypted := block.Headers["DEK-Info"]; encrypted {
			return nil, ErrEncryptedPEMNotSupported
		}
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err)
		}
		return key, nil
	case PEM_TYPE_PRIVATE_KEY:
		return parsePKCS8(block.Bytes)
	case PEM_TYPE_ENCRYPTED_PRIVATE_KEY:
		return parseEncryptedPKCS8(block.Bytes, password)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnexpectedPEMType, block.Type)
}

func parsePrivateKeyDER(der, password []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if isEncryptedPKCS8(der) {
		return parseEncryptedPKCS8(der, password)
	}
	return parsePKCS8(der)
}

func parsePKCS8(der []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyAlgorithm, key)
	}
	return rsaKey, nil
}

func parseEncryptedPKCS8(der, password []byte) (*rsa.PrivateKey, error) {
	if !isEncryptedPKCS8(der) {
		return nil, ErrInvalidPrivateKey
	}
	if len(password) == 0 {
		return nil, ErrPrivateKeyPasswordRequired
	}
	var info encryptedPrivateKeyInfo
	if _, err := asn1.Unmarshal(der, &info); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err)
	}
	if err := checkPBES2(info); err != nil {
		return nil, err
	}
	// The envelope is well formed, so a failure here is a
	// decryption failure
	key, err := pkcs8.ParsePKCS8PrivateKey(der, password)
	if err != nil {
		return nil, ErrIncorrectPassword
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyAlgorithm, key)
	}
	return rsaKey, nil
}

func isEncryptedPKCS8(der []byte) bool {
	var info encryptedPrivateKeyInfo
	rest, err := asn1.Unmarshal(der, &info)
	return err == nil && len(rest) == 0 && len(info.EncryptedData) > 0
}

// Checks that the PBES2 envelope of an EncryptedPrivateKeyInfo is
// one the pkcs8 package decrypts: PBKDF2 with HMAC-SHA1 or
// HMAC-SHA256 and a CBC cipher with a full block IV and block
// aligned ciphertext.
func checkPBES2(info encryptedPrivateKeyInfo) error {

	if !info.Algorithm.Algorithm.Equal(oidPBES2) {
		return fmt.Errorf("%w: encryption scheme %s", ErrUnsupportedKeyEncryption, info.Algorithm.Algorithm)
	}
	var params pbes2Params
	if rest, err := asn1.Unmarshal(info.Algorithm.Parameters.FullBytes, &params); err != nil || len(rest) != 0 {
		return fmt.Errorf("%w: invalid PBES2 parameters", ErrInvalidPrivateKey)
	}

	if !params.KeyDerivationFunc.Algorithm.Equal(oidPBKDF2) {
		return fmt.Errorf("%w: key derivation function %s", ErrUnsupportedKeyEncryption,
			params.KeyDerivationFunc.Algorithm)
	}
	var kdf pbkdf2Params
	if rest, err := asn1.Unmarshal(params.KeyDerivationFunc.Parameters.FullBytes, &kdf); err != nil || len(rest) != 0 {
		return fmt.Errorf("%w: invalid PBKDF2 parameters", ErrInvalidPrivateKey)
	}
	if kdf.IterationCount < 1 || kdf.IterationCount > PBKDF2_MAX_ITERATION_COUNT {
		return fmt.Errorf("%w: PBKDF2 iteration count %d out of range", ErrInvalidPrivateKey, kdf.IterationCount)
	}
	if len(kdf.PRF.Algorithm) != 0 &&
		!kdf.PRF.Algorithm.Equal(oidHMACWithSHA1) &&
		!kdf.PRF.Algorithm.Equal(oidHMACWithSHA256) {
		return fmt.Errorf("%w: PRF %s", ErrUnsupportedKeyEncryption, kdf.PRF.Algorithm)
	}

	blockSize, ok := pbes2Ciphers[params.EncryptionScheme.Algorithm.String()]
	if !ok {
		return fmt.Errorf("%w: cipher %s", ErrUnsupportedKeyEncryption, params.EncryptionScheme.Algorithm)
	}
	var iv []byte
	if rest, err := asn1.Unmarshal(params.EncryptionScheme.Parameters.FullBytes, &iv); err != nil ||
		len(rest) != 0 || len(iv) != blockSize {
		return fmt.Errorf("%w: invalid cipher IV", ErrInvalidPrivateKey)
	}
	if len(info.EncryptedData)%blockSize != 0 {
		return fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrInvalidPrivateKey)
	}
	return nil
}
