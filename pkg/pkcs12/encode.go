package pkcs12

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"unicode/utf16"
)

type contentInfoASN1 struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"tag:0,explicit,optional"`
}

type safeBagASN1 struct {
	ID         asn1.ObjectIdentifier
	Value      asn1.RawValue   `asn1:"tag:0,explicit"`
	Attributes []attributeASN1 `asn1:"set,optional"`
}

type attributeASN1 struct {
	ID     asn1.ObjectIdentifier
	Values []asn1.RawValue `asn1:"set"`
}

type certBagASN1 struct {
	ID    asn1.ObjectIdentifier
	Value []byte `asn1:"tag:0,explicit"`
}

type encryptedDataASN1 struct {
	Version              int
	EncryptedContentInfo encryptedContentInfoASN1
}

type encryptedContentInfoASN1 struct {
	ContentType                asn1.ObjectIdentifier
	ContentEncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedContent           []byte `asn1:"tag:0,optional"`
}

type digestInfoASN1 struct {
	Algorithm pkix.AlgorithmIdentifier
	Digest    []byte
}

type macDataASN1 struct {
	Mac        digestInfoASN1
	MacSalt    []byte
	Iterations int `asn1:"optional,default:1"`
}

type pfxASN1 struct {
	Version  int
	AuthSafe contentInfoASN1
	MacData  macDataASN1 `asn1:"optional"`
}

type pbkdf2ParamsASN1 struct {
	Salt       []byte
	Iterations int
	PRF        pkix.AlgorithmIdentifier `asn1:"optional"`
}

type pbes2ParamsASN1 struct {
	KeyDerivationFunc pkix.AlgorithmIdentifier
	EncryptionScheme  pkix.AlgorithmIdentifier
}

// Encodes a PFX to DER. The authenticated safe is taken from
// RawAuthSafe and wrapped in a Data ContentInfo.
func Encode(pfx *PFX) ([]byte, error) {
	authSafe, err := dataContentInfo(pfx.RawAuthSafe)
	if err != nil {
		return nil, err
	}
	out := pfxASN1{
		Version:  pfx.Version,
		AuthSafe: authSafe,
	}
	if pfx.MacData != nil {
		out.MacData = macDataASN1{
			Mac: digestInfoASN1{
				Algorithm: pfx.MacData.Algorithm,
				Digest:    pfx.MacData.Digest,
			},
			MacSalt:    pfx.MacData.Salt,
			Iterations: pfx.MacData.Iterations,
		}
	}
	return asn1.Marshal(out)
}

// Wraps data in an OCTET STRING inside a Data ContentInfo
func dataContentInfo(data []byte) (contentInfoASN1, error) {
	octets, err := asn1.Marshal(data)
	if err != nil {
		return contentInfoASN1{}, err
	}
	content, err := explicit0(octets)
	if err != nil {
		return contentInfoASN1{}, err
	}
	return contentInfoASN1{
		ContentType: oidData,
		Content:     asn1.RawValue{FullBytes: content},
	}, nil
}

// Wraps ciphertext in an EncryptedData ContentInfo
func encryptedContentInfo(algorithm pkix.AlgorithmIdentifier, ciphertext []byte) (contentInfoASN1, error) {
	encrypted, err := asn1.Marshal(encryptedDataASN1{
		Version: 0,
		EncryptedContentInfo: encryptedContentInfoASN1{
			ContentType:                oidData,
			ContentEncryptionAlgorithm: algorithm,
			EncryptedContent:           ciphertext,
		},
	})
	if err != nil {
		return contentInfoASN1{}, err
	}
	content, err := explicit0(encrypted)
	if err != nil {
		return contentInfoASN1{}, err
	}
	return contentInfoASN1{
		ContentType: oidEncryptedData,
		Content:     asn1.RawValue{FullBytes: content},
	}, nil
}

// Encodes the content of a CertBag holding a DER certificate
func marshalCertBag(der []byte) ([]byte, error) {
	return asn1.Marshal(certBagASN1{
		ID:    oidX509Certificate,
		Value: der,
	})
}

// Encodes a SafeContents from bags
func marshalSafeContents(bags []SafeBag) ([]byte, error) {
	out := make([]safeBagASN1, 0, len(bags))
	for _, bag := range bags {
		value, err := explicit0(bag.Value)
		if err != nil {
			return nil, err
		}
		sb := safeBagASN1{
			ID:    bag.ID,
			Value: asn1.RawValue{FullBytes: value},
		}
		for _, attr := range bag.Attributes {
			a := attributeASN1{ID: attr.ID}
			for _, value := range attr.Values {
				a.Values = append(a.Values, asn1.RawValue{FullBytes: value})
			}
			sb.Attributes = append(sb.Attributes, a)
		}
		out = append(out, sb)
	}
	return asn1.Marshal(out)
}

func marshalAuthenticatedSafe(contentInfos []contentInfoASN1) ([]byte, error) {
	return asn1.Marshal(contentInfos)
}

func marshalPBES2Params(salt, iv []byte, iterations int) (pkix.AlgorithmIdentifier, error) {
	kdfParams, err := asn1.Marshal(pbkdf2ParamsASN1{
		Salt:       salt,
		Iterations: iterations,
		PRF: pkix.AlgorithmIdentifier{
			Algorithm:  oidHMACWithSHA256,
			Parameters: asn1.NullRawValue,
		},
	})
	if err != nil {
		return pkix.AlgorithmIdentifier{}, err
	}
	ivBytes, err := asn1.Marshal(iv)
	if err != nil {
		return pkix.AlgorithmIdentifier{}, err
	}
	params, err := asn1.Marshal(pbes2ParamsASN1{
		KeyDerivationFunc: pkix.AlgorithmIdentifier{
			Algorithm:  oidPBKDF2,
			Parameters: asn1.RawValue{FullBytes: kdfParams},
		},
		EncryptionScheme: pkix.AlgorithmIdentifier{
			Algorithm:  oidAES256CBC,
			Parameters: asn1.RawValue{FullBytes: ivBytes},
		},
	})
	if err != nil {
		return pkix.AlgorithmIdentifier{}, err
	}
	return pkix.AlgorithmIdentifier{
		Algorithm:  oidPBES2,
		Parameters: asn1.RawValue{FullBytes: params},
	}, nil
}

// Returns a friendlyName attribute holding name as a BMPString
func friendlyNameAttribute(name string) (Attribute, error) {
	var bmp []byte
	for _, c := range utf16.Encode([]rune(name)) {
		bmp = append(bmp, byte(c>>8), byte(c))
	}
	value, err := asn1.Marshal(asn1.RawValue{
		Class: asn1.ClassUniversal,
		Tag:   30,
		Bytes: bmp,
	})
	if err != nil {
		return Attribute{}, err
	}
	return Attribute{ID: oidFriendlyName, Values: [][]byte{value}}, nil
}

// Returns a localKeyId attribute
func localKeyIDAttribute(id []byte) (Attribute, error) {
	value, err := asn1.Marshal(id)
	if err != nil {
		return Attribute{}, err
	}
	return Attribute{ID: oidLocalKeyID, Values: [][]byte{value}}, nil
}

// Wraps DER content in a constructed context specific [0] tag
func explicit0(content []byte) ([]byte, error) {
	return asn1.Marshal(asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        0,
		IsCompound: true,
		Bytes:      content,
	})
}
