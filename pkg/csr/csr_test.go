package csr

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"testing"

	"github.com/jeremyhahn/go-pki-tool/pkg/codec"
	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey *rsa.PrivateKey

func init() {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		panic(err)
	}
	testKey = key
}

// Returns the attribute type OIDs of the encoded subject in order
func subjectOIDs(t *testing.T, rawSubject []byte) []asn1.ObjectIdentifier {
	var rdns pkix.RDNSequence
	rest, err := asn1.Unmarshal(rawSubject, &rdns)
	require.Nil(t, err)
	require.Empty(t, rest)
	var oids []asn1.ObjectIdentifier
	for _, rdn := range rdns {
		for _, atv := range rdn {
			oids = append(oids, atv.Type)
		}
	}
	return oids
}

func TestBuild(t *testing.T) {

	request, err := Build(Subject{
		CommonName:   "example.com",
		Organization: "Acme",
		Country:      "IT",
	}, testKey)
	require.Nil(t, err)

	assert.Equal(t, x509.SHA256WithRSA, request.SignatureAlgorithm)
	assert.Equal(t, 0, testKey.N.Cmp(request.PublicKey.N))

	parsed, err := x509.ParseCertificateRequest(request.Raw)
	require.Nil(t, err)
	assert.Nil(t, parsed.CheckSignature())

	pub, ok := parsed.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)
	assert.True(t, testKey.PublicKey.Equal(pub))

	assert.Equal(t, "example.com", parsed.Subject.CommonName)
	assert.Equal(t, []string{"Acme"}, parsed.Subject.Organization)
	assert.Equal(t, []string{"IT"}, parsed.Subject.Country)
	assert.Empty(t, parsed.Subject.OrganizationalUnit)
	assert.Empty(t, parsed.Subject.Province)
	assert.Empty(t, parsed.Subject.Locality)

	// Exactly C, O, CN in that order
	assert.Equal(t, []asn1.ObjectIdentifier{
		oidCountry, oidOrganization, oidCommonName,
	}, subjectOIDs(t, parsed.RawSubject))
}

func TestBuildCanonicalOrder(t *testing.T) {

	request, err := Build(Subject{
		Locality:           "Rome",
		CommonName:         "www.example.com",
		OrganizationalUnit: "Engineering",
		State:              "Lazio",
		Organization:       "Acme",
		Country:            "IT",
	}, testKey)
	require.Nil(t, err)

	parsed, err := x509.ParseCertificateRequest(request.Raw)
	require.Nil(t, err)

	assert.Equal(t, []asn1.ObjectIdentifier{
		oidCountry,
		oidState,
		oidLocality,
		oidOrganization,
		oidOrganizationalUnit,
		oidCommonName,
	}, subjectOIDs(t, parsed.RawSubject))

	assert.Equal(t, SubjectFromName(parsed.Subject), request.Subject)
}

func TestBuildInvalidSubject(t *testing.T) {

	for _, cn := range []string{"", "   ", "\t\n"} {
		_, err := Build(Subject{CommonName: cn, Organization: "Acme"}, testKey)
		assert.ErrorIs(t, err, ErrInvalidSubject)
		assert.ErrorIs(t, err, common.ErrInvalidParameter)
	}
}

func TestBuildNilKey(t *testing.T) {
	_, err := Build(Subject{CommonName: "example.com"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
}

func TestBuildDeterministic(t *testing.T) {

	subject := Subject{CommonName: "example.com", Organization: "Acme"}

	first, err := Build(subject, testKey)
	require.Nil(t, err)
	second, err := Build(subject, testKey)
	require.Nil(t, err)

	assert.Equal(t, first.Raw, second.Raw)
	assert.Equal(t, first.Signature, second.Signature)
}

func TestBuildTrimsFields(t *testing.T) {

	request, err := Build(Subject{CommonName: "  example.com ", Organization: " "}, testKey)
	require.Nil(t, err)

	parsed, err := x509.ParseCertificateRequest(request.Raw)
	require.Nil(t, err)
	assert.Equal(t, "example.com", parsed.Subject.CommonName)
	assert.Empty(t, parsed.Subject.Organization)
	assert.Equal(t, Subject{CommonName: "example.com"}, request.Subject)
}

func TestPEM(t *testing.T) {

	request, err := Build(Subject{CommonName: "example.com"}, testKey)
	require.Nil(t, err)

	pemBytes, err := request.PEM()
	require.Nil(t, err)

	parsed, err := codec.ParseCertificateRequest(pemBytes)
	require.Nil(t, err)
	assert.Equal(t, request.Raw, parsed.Raw)
}
