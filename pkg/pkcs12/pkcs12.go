package pkcs12

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/youmark/pkcs8"
)

// Packs a certificate and RSA private key into a password protected
// PKCS #12 archive. The certificate is stored in an EncryptedData safe
// and the key in a PKCS8ShroudedKeyBag, both encrypted with PBES2
// (PBKDF2-HMAC-SHA256, AES-256-CBC). Archive integrity is protected
// by an HMAC-SHA256 MAC keyed with the PKCS #12 KDF.
//
// Pack does not verify that the certificate and key belong together.
func Pack(cert *x509.Certificate, key *rsa.PrivateKey, password []byte, opts *EncodeOptions) ([]byte, error) {

	if cert == nil || len(cert.Raw) == 0 {
		return nil, ErrCertificateRequired
	}
	if key == nil {
		return nil, ErrPrivateKeyRequired
	}
	if len(password) == 0 {
		return nil, ErrPasswordRequired
	}
	bmpPassword, err := encodeBMPString(password)
	if err != nil {
		return nil, err
	}

	if opts == nil {
		opts = &EncodeOptions{}
	}
	iterations := opts.Iterations
	if iterations == 0 {
		iterations = DEFAULT_ITERATIONS
	}
	if iterations < MIN_ITERATIONS || iterations > MAX_ITERATIONS {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIterations, iterations)
	}
	random := opts.Random
	if random == nil {
		random = rand.Reader
	}

	localKeyID := sha1.Sum(cert.Raw)
	attrs, err := bagAttributes(localKeyID[:], opts.FriendlyName)
	if err != nil {
		return nil, err
	}

	// Certificate safe, PBES2 encrypted
	certBag, err := marshalCertBag(cert.Raw)
	if err != nil {
		return nil, err
	}
	certSafe, err := marshalSafeContents([]SafeBag{
		{ID: oidCertBag, Value: certBag, Attributes: attrs},
	})
	if err != nil {
		return nil, err
	}
	salt, err := randomBytes(random, SALT_SIZE)
	if err != nil {
		return nil, err
	}
	iv, err := randomBytes(random, 16)
	if err != nil {
		return nil, err
	}
	algorithm, ciphertext, err := encryptPBES2(password, certSafe, salt, iv, iterations)
	if err != nil {
		return nil, err
	}
	certContentInfo, err := encryptedContentInfo(algorithm, ciphertext)
	if err != nil {
		return nil, err
	}

	// Key safe, holding a shrouded PKCS #8 key
	shroudedKey, err := pkcs8.MarshalPrivateKey(key, password, &pkcs8.Opts{
		Cipher: pkcs8.AES256CBC,
		KDFOpts: pkcs8.PBKDF2Opts{
			SaltSize:       SALT_SIZE,
			IterationCount: iterations,
			HMACHash:       crypto.SHA256,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrMalformedInput, err)
	}
	keySafe, err := marshalSafeContents([]SafeBag{
		{ID: oidPKCS8ShroudedKeyBag, Value: shroudedKey, Attributes: attrs},
	})
	if err != nil {
		return nil, err
	}
	keyContentInfo, err := dataContentInfo(keySafe)
	if err != nil {
		return nil, err
	}

	authSafe, err := marshalAuthenticatedSafe([]contentInfoASN1{
		certContentInfo,
		keyContentInfo,
	})
	if err != nil {
		return nil, err
	}

	macSalt, err := randomBytes(random, SALT_SIZE)
	if err != nil {
		return nil, err
	}
	digest, err := computeMAC(oidSHA256, bmpPassword, macSalt, iterations, authSafe)
	if err != nil {
		return nil, err
	}

	return Encode(&PFX{
		Version:     PFX_VERSION,
		RawAuthSafe: authSafe,
		MacData: &MacData{
			Algorithm: pkix.AlgorithmIdentifier{
				Algorithm:  oidSHA256,
				Parameters: asn1.NullRawValue,
			},
			Digest:     digest,
			Salt:       macSalt,
			Iterations: iterations,
		},
	})
}

// Unpacks a PKCS #12 archive. The MAC is verified first when present;
// a wrong password and a failed integrity check both return
// ErrIncorrectPassword. Missing certificate or key bags leave the
// corresponding field nil. An empty password is permitted.
//
// Safes encrypted with pbeWithSHAAnd40BitRC2-CBC, as written by
// "openssl pkcs12 -export -legacy", are decoded with go-pkcs12 once
// the remaining safes have been read. Such archives must carry
// both a certificate and a private key.
func Unpack(data, password []byte) (*Contents, error) {

	pfx, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if pfx.MacData != nil {
		if err := verifyMAC(pfx.MacData, password, pfx.RawAuthSafe); err != nil {
			return nil, err
		}
	}

	contentInfos, err := decodeAuthenticatedSafe(pfx.RawAuthSafe)
	if err != nil {
		return nil, err
	}

	contents := &Contents{}
	legacy := false
	for _, ci := range contentInfos {
		var safe []byte
		encrypted := false
		switch {
		case ci.ContentType.Equal(oidData):
			safe, err = readOctetString(ci.Content)
			if err != nil {
				return nil, err
			}
		case ci.ContentType.Equal(oidEncryptedData):
			algorithm, ciphertext, err := decodeEncryptedData(ci.Content)
			if err != nil {
				return nil, err
			}
			safe, err = decrypt(algorithm, password, ciphertext)
			if errors.Is(err, errLegacyCipher) {
				legacy = true
				continue
			}
			if err != nil {
				return nil, decryptionError(err)
			}
			encrypted = true
		default:
			return nil, fmt.Errorf("%w: content type %s", ErrUnsupportedAlgorithm, ci.ContentType)
		}

		bags, err := decodeSafeContents(safe)
		if err != nil {
			if encrypted {
				return nil, ErrIncorrectPassword
			}
			return nil, err
		}
		if err := contents.add(bags, password); err != nil {
			return nil, err
		}
	}

	if legacy {
		if err := contents.addLegacy(data, password); err != nil {
			return nil, err
		}
	}

	return contents, nil
}

// Adds the bags to the contents, keeping the first certificate
// and key encountered
func (c *Contents) add(bags []SafeBag, password []byte) error {
	for _, bag := range bags {
		switch {
		case bag.ID.Equal(oidCertBag):
			c.CertificateCount++
			if c.Certificate != nil {
				continue
			}
			der, err := decodeCertBag(bag.Value)
			if err != nil {
				return err
			}
			cert, err := x509.ParseCertificate(der)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidPFX, err)
			}
			c.Certificate = cert
			c.FriendlyName = friendlyName(bag.Attributes)

		case bag.ID.Equal(oidPKCS8ShroudedKeyBag):
			c.KeyCount++
			if c.PrivateKey != nil {
				continue
			}
			algorithm, ciphertext, err := decodeEncryptedPrivateKeyInfo(bag.Value)
			if err != nil {
				return err
			}
			der, err := decrypt(algorithm, password, ciphertext)
			if err != nil {
				return decryptionError(err)
			}
			key, err := parseRSAKey(der)
			if err != nil {
				if errors.Is(err, ErrUnsupportedAlgorithm) {
					return err
				}
				return ErrIncorrectPassword
			}
			c.PrivateKey = key
			c.keyName = friendlyName(bag.Attributes)

		case bag.ID.Equal(oidKeyBag):
			c.KeyCount++
			if c.PrivateKey != nil {
				continue
			}
			key, err := parseRSAKey(bag.Value)
			if err != nil {
				return err
			}
			c.PrivateKey = key
			c.keyName = friendlyName(bag.Attributes)

		case bag.ID.Equal(oidSafeContentsBag):
			nested, err := decodeSafeContents(bag.Value)
			if err != nil {
				return err
			}
			if err := c.add(nested, password); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseRSAKey(der []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPFX, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key type %T", ErrUnsupportedAlgorithm, key)
	}
	return rsaKey, nil
}

// Maps padding failures to ErrIncorrectPassword
func decryptionError(err error) error {
	if errors.Is(err, errDecryption) {
		return ErrIncorrectPassword
	}
	return err
}

func bagAttributes(localKeyID []byte, name string) ([]Attribute, error) {
	var attrs []Attribute
	if name != "" {
		attr, err := friendlyNameAttribute(name)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	attr, err := localKeyIDAttribute(localKeyID)
	if err != nil {
		return nil, err
	}
	return append(attrs, attr), nil
}

func randomBytes(random io.Reader, size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(random, b); err != nil {
		return nil, err
	}
	return b, nil
}
