package pkcs12

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"unicode/utf16"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PKCS #12 KDF diversifier IDs, RFC 7292 appendix B.3
	kdfEncryptionKey = 1
	kdfIV            = 2
	kdfMACKey        = 3
)

var (
	errDecryption   = errors.New("pkcs12: decryption failed")
	errLegacyCipher = errors.New("pkcs12: 40-bit RC2 safe")
)

// Encodes a password as a null terminated BMPString for use
// with the PKCS #12 KDF
func encodeBMPString(password []byte) ([]byte, error) {
	s := string(password)
	out := make([]byte, 0, 2*len(s)+2)
	for _, r := range s {
		if r > 0xffff {
			return nil, ErrInvalidPassword
		}
		out = append(out, byte(r>>8), byte(r))
	}
	return append(out, 0, 0), nil
}

// Decodes a BMPString without a null terminator
func decodeBMPString(bmp []byte) (string, error) {
	if len(bmp)%2 != 0 {
		return "", fmt.Errorf("%w: odd length BMPString", ErrInvalidPFX)
	}
	chars := make([]uint16, 0, len(bmp)/2)
	for i := 0; i < len(bmp); i += 2 {
		chars = append(chars, uint16(bmp[i])<<8|uint16(bmp[i+1]))
	}
	if n := len(chars); n > 0 && chars[n-1] == 0 {
		chars = chars[:n-1]
	}
	return string(utf16.Decode(chars)), nil
}

// Derives key material using the PKCS #12 KDF, RFC 7292 appendix B.2.
// u is the hash output size and v the hash block size, both in bytes.
func deriveKey(
	newHash func() hash.Hash,
	u, v int,
	bmpPassword, salt []byte,
	iterations, id, size int) []byte {

	D := make([]byte, v)
	for i := range D {
		D[i] = byte(id)
	}

	S := fillWithRepeats(salt, v)
	P := fillWithRepeats(bmpPassword, v)
	I := append(S, P...)

	c := (size + u - 1) / u
	A := make([]byte, 0, c*u)
	one := big.NewInt(1)

	for i := 0; i < c; i++ {
		h := newHash()
		h.Write(D)
		h.Write(I)
		Ai := h.Sum(nil)
		for j := 1; j < iterations; j++ {
			h.Reset()
			h.Write(Ai)
			Ai = h.Sum(nil)
		}
		A = append(A, Ai...)

		if i < c-1 {
			B := new(big.Int).SetBytes(fillWithRepeats(Ai, v))
			Ij := new(big.Int)
			for j := 0; j < len(I)/v; j++ {
				Ij.SetBytes(I[j*v : (j+1)*v])
				Ij.Add(Ij, B)
				Ij.Add(Ij, one)
				block := Ij.Bytes()
				if len(block) > v {
					block = block[len(block)-v:]
				}
				chunk := I[j*v : (j+1)*v]
				clear(chunk)
				copy(chunk[v-len(block):], block)
			}
		}
	}

	return A[:size]
}

// Repeats pattern to the smallest multiple of v that holds it
func fillWithRepeats(pattern []byte, v int) []byte {
	if len(pattern) == 0 {
		return nil
	}
	size := v * ((len(pattern) + v - 1) / v)
	out := make([]byte, size)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}

// Returns the hash constructor, output size and block size for a MAC
// digest algorithm
func macHash(algorithm asn1.ObjectIdentifier) (func() hash.Hash, int, int, error) {
	switch {
	case algorithm.Equal(oidSHA1):
		return sha1.New, sha1.Size, sha1.BlockSize, nil
	case algorithm.Equal(oidSHA256):
		return sha256.New, sha256.Size, sha256.BlockSize, nil
	case algorithm.Equal(oidSHA512):
		return sha512.New, sha512.Size, sha512.BlockSize, nil
	}
	return nil, 0, 0, fmt.Errorf("%w: MAC digest %s", ErrUnsupportedAlgorithm, algorithm)
}

// Computes the HMAC of the authenticated safe using a key derived
// with the PKCS #12 KDF
func computeMAC(
	algorithm asn1.ObjectIdentifier,
	bmpPassword, salt []byte,
	iterations int,
	message []byte) ([]byte, error) {

	newHash, u, v, err := macHash(algorithm)
	if err != nil {
		return nil, err
	}
	key := deriveKey(newHash, u, v, bmpPassword, salt, iterations, kdfMACKey, u)
	mac := hmac.New(newHash, key)
	mac.Write(message)
	return mac.Sum(nil), nil
}

// Verifies the archive MAC. An empty password is tried both as an
// empty BMPString and as a zero length value since implementations
// disagree on its encoding.
func verifyMAC(macData *MacData, password, message []byte) error {
	bmpPassword, err := encodeBMPString(password)
	if err != nil {
		return err
	}
	candidates := [][]byte{bmpPassword}
	if len(password) == 0 {
		candidates = append(candidates, nil)
	}
	for _, candidate := range candidates {
		expected, err := computeMAC(
			macData.Algorithm.Algorithm,
			candidate,
			macData.Salt,
			macData.Iterations,
			message)
		if err != nil {
			return err
		}
		if hmac.Equal(expected, macData.Digest) {
			return nil
		}
	}
	return ErrIncorrectPassword
}

// Returns the PBKDF2 pseudo random function for the PRF algorithm
func prfHash(algorithm asn1.ObjectIdentifier) (func() hash.Hash, error) {
	switch {
	case algorithm.Equal(oidHMACWithSHA1):
		return sha1.New, nil
	case algorithm.Equal(oidHMACWithSHA256):
		return sha256.New, nil
	case algorithm.Equal(oidHMACWithSHA512):
		return sha512.New, nil
	}
	return nil, fmt.Errorf("%w: PRF %s", ErrUnsupportedAlgorithm, algorithm)
}

func aesKeySize(algorithm asn1.ObjectIdentifier) int {
	switch {
	case algorithm.Equal(oidAES128CBC):
		return 16
	case algorithm.Equal(oidAES192CBC):
		return 24
	case algorithm.Equal(oidAES256CBC):
		return 32
	}
	return 0
}

// Decrypts ciphertext encrypted with the provided algorithm.
// Padding failures are reported as errDecryption.
func decrypt(algorithm pkix.AlgorithmIdentifier, password, ciphertext []byte) ([]byte, error) {

	params, err := decodeEncryptionParams(algorithm)
	if err != nil {
		return nil, err
	}

	var block cipher.Block
	var iv []byte

	switch {
	case params.algorithm.Equal(oidPBES2):
		keySize := aesKeySize(params.cipher)
		if keySize == 0 {
			return nil, fmt.Errorf("%w: cipher %s", ErrUnsupportedAlgorithm, params.cipher)
		}
		prf, err := prfHash(params.prf)
		if err != nil {
			return nil, err
		}
		key := pbkdf2.Key(password, params.salt, params.iterations, keySize, prf)
		block, err = aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		iv = params.iv

	case params.algorithm.Equal(oidPBEWithSHAAnd3KeyTripleDESCBC):
		bmpPassword, err := encodeBMPString(password)
		if err != nil {
			return nil, err
		}
		key := deriveKey(sha1.New, sha1.Size, sha1.BlockSize,
			bmpPassword, params.salt, params.iterations, kdfEncryptionKey, 24)
		iv = deriveKey(sha1.New, sha1.Size, sha1.BlockSize,
			bmpPassword, params.salt, params.iterations, kdfIV, des.BlockSize)
		block, err = des.NewTripleDESCipher(key)
		if err != nil {
			return nil, err
		}

	case params.algorithm.Equal(oidPBEWithSHAAnd40BitRC2CBC):
		return nil, errLegacyCipher

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, params.algorithm)
	}

	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("%w: invalid IV length", ErrInvalidPFX)
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrInvalidPFX)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return unpad(plaintext, block.BlockSize())
}

// Encrypts plaintext using PBES2 with PBKDF2-HMAC-SHA256 and
// AES-256-CBC, returning the algorithm identifier and ciphertext
func encryptPBES2(
	password, plaintext, salt, iv []byte,
	iterations int) (pkix.AlgorithmIdentifier, []byte, error) {

	key := pbkdf2.Key(password, salt, iterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return pkix.AlgorithmIdentifier{}, nil, err
	}
	padded := pad(plaintext, block.BlockSize())
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	algorithm, err := marshalPBES2Params(salt, iv, iterations)
	if err != nil {
		return pkix.AlgorithmIdentifier{}, nil, err
	}
	return algorithm, ciphertext, nil
}

// PKCS #7 padding
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	for i := 0; i < n; i++ {
		out = append(out, byte(n))
	}
	return out
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errDecryption
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errDecryption
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errDecryption
		}
	}
	return data[:len(data)-n], nil
}
