package csr

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-pki-tool/pkg/common"
)

var (
	ErrInvalidSubject = fmt.Errorf("%w: csr: subject common name required", common.ErrInvalidParameter)

	oidCountry            = asn1.ObjectIdentifier{2, 5, 4, 6}
	oidState              = asn1.ObjectIdentifier{2, 5, 4, 8}
	oidLocality           = asn1.ObjectIdentifier{2, 5, 4, 7}
	oidOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	oidCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
)

// Subject is the distinguished name of a certificate signing request.
// Only CommonName is required; empty fields are left out of the
// encoded name.
type Subject struct {
	CommonName         string `yaml:"cn" json:"cn" mapstructure:"cn" validate:"required"`
	Organization       string `yaml:"organization" json:"organization,omitempty" mapstructure:"organization"`
	OrganizationalUnit string `yaml:"organizational-unit" json:"organizational_unit,omitempty" mapstructure:"organizational-unit"`
	Country            string `yaml:"country" json:"country,omitempty" mapstructure:"country" validate:"omitempty,len=2"`
	State              string `yaml:"state" json:"state,omitempty" mapstructure:"state"`
	Locality           string `yaml:"locality" json:"locality,omitempty" mapstructure:"locality"`
}

// Returns a copy of the subject with surrounding whitespace removed
// from every field
func (s Subject) Normalize() Subject {
	return Subject{
		CommonName:         strings.TrimSpace(s.CommonName),
		Organization:       strings.TrimSpace(s.Organization),
		OrganizationalUnit: strings.TrimSpace(s.OrganizationalUnit),
		Country:            strings.TrimSpace(s.Country),
		State:              strings.TrimSpace(s.State),
		Locality:           strings.TrimSpace(s.Locality),
	}
}

// Returns ErrInvalidSubject if the common name is empty or
// contains only whitespace
func (s Subject) Validate() error {
	if strings.TrimSpace(s.CommonName) == "" {
		return ErrInvalidSubject
	}
	return nil
}

// Returns the subject as an RDN sequence in the fixed
// order C, ST, L, O, OU, CN
func (s Subject) RDNSequence() pkix.RDNSequence {
	s = s.Normalize()
	var rdns pkix.RDNSequence
	appendRDN := func(oid asn1.ObjectIdentifier, value string) {
		if value == "" {
			return
		}
		rdns = append(rdns, pkix.RelativeDistinguishedNameSET{
			{Type: oid, Value: value},
		})
	}
	appendRDN(oidCountry, s.Country)
	appendRDN(oidState, s.State)
	appendRDN(oidLocality, s.Locality)
	appendRDN(oidOrganization, s.Organization)
	appendRDN(oidOrganizationalUnit, s.OrganizationalUnit)
	appendRDN(oidCommonName, s.CommonName)
	return rdns
}

// Returns the RFC 2253 form of the subject, e.g.
// "CN=example.com,O=Acme,C=IT"
func (s Subject) String() string {
	return s.RDNSequence().String()
}

// Builds a subject from a parsed pkix name
func SubjectFromName(name pkix.Name) Subject {
	first := func(values []string) string {
		if len(values) == 0 {
			return ""
		}
		return values[0]
	}
	return Subject{
		CommonName:         name.CommonName,
		Organization:       first(name.Organization),
		OrganizationalUnit: first(name.OrganizationalUnit),
		Country:            first(name.Country),
		State:              first(name.Province),
		Locality:           first(name.Locality),
	}
}
