package pkcs12

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var explicitTag0 = cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()

// Decodes the outer PFX structure of a DER encoded PKCS #12 archive.
// Nothing is decrypted and the MAC is not verified.
func Decode(data []byte) (*PFX, error) {

	if len(data) < 2 || data[0] != 0x30 {
		return nil, fmt.Errorf("%w: expected DER SEQUENCE", ErrInvalidPFX)
	}
	if data[1] == 0x80 {
		return nil, fmt.Errorf("%w: BER indefinite length encoding is not supported", ErrInvalidPFX)
	}

	input := cryptobyte.String(data)

	var pfx PFX
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) || !input.Empty() {
		return nil, fmt.Errorf("%w: failed to read PFX", ErrInvalidPFX)
	}
	if !seq.ReadASN1Integer(&pfx.Version) {
		return nil, fmt.Errorf("%w: failed to read version", ErrInvalidPFX)
	}
	if pfx.Version != PFX_VERSION {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidPFX, pfx.Version)
	}

	authSafe, err := readContentInfo(&seq)
	if err != nil {
		return nil, err
	}
	pfx.AuthSafe = authSafe

	if !authSafe.ContentType.Equal(oidData) {
		return nil, fmt.Errorf("%w: public key integrity mode is not supported", ErrUnsupportedAlgorithm)
	}
	pfx.RawAuthSafe, err = readOctetString(authSafe.Content)
	if err != nil {
		return nil, err
	}

	if !seq.Empty() {
		macData, err := readMacData(&seq)
		if err != nil {
			return nil, err
		}
		pfx.MacData = macData
	}

	return &pfx, nil
}

// Returns the ContentInfos held by the authenticated safe
func decodeAuthenticatedSafe(data []byte) ([]ContentInfo, error) {
	input := cryptobyte.String(data)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: failed to read AuthenticatedSafe", ErrInvalidPFX)
	}
	var contentInfos []ContentInfo
	for !seq.Empty() {
		ci, err := readContentInfo(&seq)
		if err != nil {
			return nil, err
		}
		contentInfos = append(contentInfos, ci)
	}
	return contentInfos, nil
}

// Returns the bags held by a SafeContents
func decodeSafeContents(data []byte) ([]SafeBag, error) {
	input := cryptobyte.String(data)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: failed to read SafeContents", ErrInvalidPFX)
	}
	var bags []SafeBag
	for !seq.Empty() {
		bag, err := readSafeBag(&seq)
		if err != nil {
			return nil, err
		}
		bags = append(bags, bag)
	}
	return bags, nil
}

func readContentInfo(s *cryptobyte.String) (ContentInfo, error) {
	var ci ContentInfo
	var seq, content cryptobyte.String
	if !s.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) ||
		!seq.ReadASN1ObjectIdentifier(&ci.ContentType) {
		return ci, fmt.Errorf("%w: failed to read ContentInfo", ErrInvalidPFX)
	}
	if !seq.ReadASN1(&content, explicitTag0) {
		return ci, fmt.Errorf("%w: failed to read ContentInfo content", ErrInvalidPFX)
	}
	ci.Content = content
	return ci, nil
}

func readMacData(s *cryptobyte.String) (*MacData, error) {
	var md MacData
	var seq, digestInfo cryptobyte.String
	if !s.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) ||
		!seq.ReadASN1(&digestInfo, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: failed to read MacData", ErrInvalidPFX)
	}
	if err := readAlgorithmIdentifier(&digestInfo, &md.Algorithm); err != nil {
		return nil, err
	}
	if !digestInfo.ReadASN1Bytes(&md.Digest, cryptobyte_asn1.OCTET_STRING) ||
		!seq.ReadASN1Bytes(&md.Salt, cryptobyte_asn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: failed to read MAC digest", ErrInvalidPFX)
	}
	md.Iterations = 1
	if !seq.Empty() && !seq.ReadASN1Integer(&md.Iterations) {
		return nil, fmt.Errorf("%w: failed to read MAC iterations", ErrInvalidPFX)
	}
	if err := checkIterations(md.Iterations); err != nil {
		return nil, err
	}
	return &md, nil
}

func readSafeBag(s *cryptobyte.String) (SafeBag, error) {
	var bag SafeBag
	var seq, value cryptobyte.String
	if !s.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) ||
		!seq.ReadASN1ObjectIdentifier(&bag.ID) ||
		!seq.ReadASN1(&value, explicitTag0) {
		return bag, fmt.Errorf("%w: failed to read SafeBag", ErrInvalidPFX)
	}
	bag.Value = value

	if seq.Empty() {
		return bag, nil
	}
	var attrs cryptobyte.String
	if !seq.ReadASN1(&attrs, cryptobyte_asn1.SET) {
		return bag, fmt.Errorf("%w: failed to read bag attributes", ErrInvalidPFX)
	}
	for !attrs.Empty() {
		var attr Attribute
		var attrSeq, values cryptobyte.String
		if !attrs.ReadASN1(&attrSeq, cryptobyte_asn1.SEQUENCE) ||
			!attrSeq.ReadASN1ObjectIdentifier(&attr.ID) ||
			!attrSeq.ReadASN1(&values, cryptobyte_asn1.SET) {
			return bag, fmt.Errorf("%w: failed to read bag attribute", ErrInvalidPFX)
		}
		for !values.Empty() {
			var value cryptobyte.String
			var tag cryptobyte_asn1.Tag
			if !values.ReadAnyASN1Element(&value, &tag) {
				return bag, fmt.Errorf("%w: failed to read bag attribute value", ErrInvalidPFX)
			}
			attr.Values = append(attr.Values, value)
		}
		bag.Attributes = append(bag.Attributes, attr)
	}
	return bag, nil
}

// Returns the DER certificate held by a CertBag
func decodeCertBag(data []byte) ([]byte, error) {
	input := cryptobyte.String(data)
	var seq, value cryptobyte.String
	var certID asn1.ObjectIdentifier
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) ||
		!seq.ReadASN1ObjectIdentifier(&certID) ||
		!seq.ReadASN1(&value, explicitTag0) {
		return nil, fmt.Errorf("%w: failed to read CertBag", ErrInvalidPFX)
	}
	if !certID.Equal(oidX509Certificate) {
		return nil, fmt.Errorf("%w: certificate type %s", ErrUnsupportedAlgorithm, certID)
	}
	var der []byte
	if !value.ReadASN1Bytes(&der, cryptobyte_asn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: failed to read CertBag value", ErrInvalidPFX)
	}
	return der, nil
}

// Returns the encryption algorithm and ciphertext of an
// EncryptedPrivateKeyInfo, RFC 5208 section 6
func decodeEncryptedPrivateKeyInfo(data []byte) (pkix.AlgorithmIdentifier, []byte, error) {
	var algorithm pkix.AlgorithmIdentifier
	var encrypted []byte
	input := cryptobyte.String(data)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return algorithm, nil, fmt.Errorf("%w: failed to read EncryptedPrivateKeyInfo", ErrInvalidPFX)
	}
	if err := readAlgorithmIdentifier(&seq, &algorithm); err != nil {
		return algorithm, nil, err
	}
	if !seq.ReadASN1Bytes(&encrypted, cryptobyte_asn1.OCTET_STRING) {
		return algorithm, nil, fmt.Errorf("%w: failed to read encrypted key", ErrInvalidPFX)
	}
	return algorithm, encrypted, nil
}

// Returns the encryption algorithm and ciphertext of a PKCS #7
// EncryptedData structure
func decodeEncryptedData(data []byte) (pkix.AlgorithmIdentifier, []byte, error) {
	var algorithm pkix.AlgorithmIdentifier
	input := cryptobyte.String(data)
	var seq, eci cryptobyte.String
	var version int
	var contentType asn1.ObjectIdentifier
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) ||
		!seq.ReadASN1Integer(&version) ||
		!seq.ReadASN1(&eci, cryptobyte_asn1.SEQUENCE) ||
		!eci.ReadASN1ObjectIdentifier(&contentType) {
		return algorithm, nil, fmt.Errorf("%w: failed to read EncryptedData", ErrInvalidPFX)
	}
	if version != 0 {
		return algorithm, nil, fmt.Errorf("%w: unsupported EncryptedData version %d", ErrInvalidPFX, version)
	}
	if err := readAlgorithmIdentifier(&eci, &algorithm); err != nil {
		return algorithm, nil, err
	}
	// encryptedContent [0] IMPLICIT OCTET STRING, primitive or constructed
	var encrypted []byte
	implicitTag0 := cryptobyte_asn1.Tag(0).ContextSpecific()
	switch {
	case eci.PeekASN1Tag(implicitTag0):
		if !eci.ReadASN1Bytes(&encrypted, implicitTag0) {
			return algorithm, nil, fmt.Errorf("%w: failed to read encrypted content", ErrInvalidPFX)
		}
	case eci.PeekASN1Tag(implicitTag0.Constructed()):
		var chunks cryptobyte.String
		if !eci.ReadASN1(&chunks, implicitTag0.Constructed()) {
			return algorithm, nil, fmt.Errorf("%w: failed to read encrypted content", ErrInvalidPFX)
		}
		for !chunks.Empty() {
			var chunk []byte
			if !chunks.ReadASN1Bytes(&chunk, cryptobyte_asn1.OCTET_STRING) {
				return algorithm, nil, fmt.Errorf("%w: failed to read encrypted content", ErrInvalidPFX)
			}
			encrypted = append(encrypted, chunk...)
		}
	default:
		return algorithm, nil, fmt.Errorf("%w: missing encrypted content", ErrInvalidPFX)
	}
	return algorithm, encrypted, nil
}

// Parses PBES2 or legacy PKCS #12 PBE parameters
func decodeEncryptionParams(algorithm pkix.AlgorithmIdentifier) (*encryptionParams, error) {

	params := &encryptionParams{algorithm: algorithm.Algorithm}
	input := cryptobyte.String(algorithm.Parameters.FullBytes)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: failed to read encryption parameters", ErrInvalidPFX)
	}

	switch {
	case algorithm.Algorithm.Equal(oidPBEWithSHAAnd3KeyTripleDESCBC),
		algorithm.Algorithm.Equal(oidPBEWithSHAAnd40BitRC2CBC):
		if !seq.ReadASN1Bytes(&params.salt, cryptobyte_asn1.OCTET_STRING) ||
			!seq.ReadASN1Integer(&params.iterations) {
			return nil, fmt.Errorf("%w: failed to read PBE parameters", ErrInvalidPFX)
		}
		if err := checkIterations(params.iterations); err != nil {
			return nil, err
		}
		return params, nil

	case algorithm.Algorithm.Equal(oidPBES2):
		var kdf, scheme pkix.AlgorithmIdentifier
		if err := readAlgorithmIdentifier(&seq, &kdf); err != nil {
			return nil, err
		}
		if err := readAlgorithmIdentifier(&seq, &scheme); err != nil {
			return nil, err
		}
		if !kdf.Algorithm.Equal(oidPBKDF2) {
			return nil, fmt.Errorf("%w: key derivation function %s", ErrUnsupportedAlgorithm, kdf.Algorithm)
		}

		kdfInput := cryptobyte.String(kdf.Parameters.FullBytes)
		var kdfSeq cryptobyte.String
		if !kdfInput.ReadASN1(&kdfSeq, cryptobyte_asn1.SEQUENCE) ||
			!kdfSeq.ReadASN1Bytes(&params.salt, cryptobyte_asn1.OCTET_STRING) ||
			!kdfSeq.ReadASN1Integer(&params.iterations) {
			return nil, fmt.Errorf("%w: failed to read PBKDF2 parameters", ErrInvalidPFX)
		}
		if err := checkIterations(params.iterations); err != nil {
			return nil, err
		}
		if kdfSeq.PeekASN1Tag(cryptobyte_asn1.INTEGER) {
			var keyLength int
			if !kdfSeq.ReadASN1Integer(&keyLength) {
				return nil, fmt.Errorf("%w: failed to read PBKDF2 key length", ErrInvalidPFX)
			}
		}
		params.prf = oidHMACWithSHA1
		if !kdfSeq.Empty() {
			var prf pkix.AlgorithmIdentifier
			if err := readAlgorithmIdentifier(&kdfSeq, &prf); err != nil {
				return nil, err
			}
			params.prf = prf.Algorithm
		}

		params.cipher = scheme.Algorithm
		ivInput := cryptobyte.String(scheme.Parameters.FullBytes)
		if !ivInput.ReadASN1Bytes(&params.iv, cryptobyte_asn1.OCTET_STRING) {
			return nil, fmt.Errorf("%w: failed to read cipher IV", ErrInvalidPFX)
		}
		return params, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm.Algorithm)
}

// Rejects iteration counts that are not positive or exceed
// MAX_ITERATIONS, before any key derivation runs
func checkIterations(iterations int) error {
	if iterations < 1 || iterations > MAX_ITERATIONS {
		return fmt.Errorf("%w: iteration count %d out of range", ErrInvalidPFX, iterations)
	}
	return nil
}

func readAlgorithmIdentifier(s *cryptobyte.String, algorithm *pkix.AlgorithmIdentifier) error {
	var seq cryptobyte.String
	if !s.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) ||
		!seq.ReadASN1ObjectIdentifier(&algorithm.Algorithm) {
		return fmt.Errorf("%w: failed to read AlgorithmIdentifier", ErrInvalidPFX)
	}
	if !seq.Empty() {
		algorithm.Parameters = asn1.RawValue{FullBytes: seq}
	}
	return nil
}

func readOctetString(data []byte) ([]byte, error) {
	input := cryptobyte.String(data)
	var out []byte
	if !input.ReadASN1Bytes(&out, cryptobyte_asn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: expected OCTET STRING", ErrInvalidPFX)
	}
	return out, nil
}

// Returns the decoded friendlyName attribute, if present
func friendlyName(attrs []Attribute) string {
	for _, attr := range attrs {
		if !attr.ID.Equal(oidFriendlyName) || len(attr.Values) == 0 {
			continue
		}
		input := cryptobyte.String(attr.Values[0])
		var bmp []byte
		if !input.ReadASN1Bytes(&bmp, cryptobyte_asn1.Tag(30)) {
			return ""
		}
		name, err := decodeBMPString(bmp)
		if err != nil {
			return ""
		}
		return name
	}
	return ""
}
