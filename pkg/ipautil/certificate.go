package ipautil

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// SigningIdentity represents a push-notification certificate. IsProduction
// is only meaningful when IsAPNS is true; certificates that are not APNs
// certificates cannot participate in environment comparisons.
type SigningIdentity struct {
	Name         string // subject common name
	BundleID     string // push topic parsed from the common name
	IsAPNS       bool
	IsProduction bool
	Certificate  *x509.Certificate
}

// apnsTopicPrefixes maps Apple push certificate common-name prefixes to the
// gateway they target. Universal "Apple Push Services" certificates are
// valid for both gateways and are classified as production-capable.
var apnsTopicPrefixes = []struct {
	prefix     string
	production bool
}{
	{"Apple Push Services: ", true},
	{"Apple Production IOS Push Services: ", true},
	{"Apple Development IOS Push Services: ", false},
}

// ParsePushCertificate loads a push certificate from PEM, PKCS#12 or raw
// DER data. The password is only used for PKCS#12 input.
func ParsePushCertificate(data []byte, password string) (*SigningIdentity, error) {
	cert, err := decodeCertificate(data, password)
	if err != nil {
		return nil, err
	}
	return NewSigningIdentity(cert), nil
}

// decodeCertificate sniffs the input format the same way signing tools
// accept identities: PEM first, then PKCS#12, then bare DER.
func decodeCertificate(data []byte, password string) (*x509.Certificate, error) {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN")) {
		rest := data
		for {
			var block *pem.Block
			block, rest = pem.Decode(rest)
			if block == nil {
				return nil, fmt.Errorf("no certificate found in PEM data")
			}
			if block.Type == "CERTIFICATE" {
				cert, err := x509.ParseCertificate(block.Bytes)
				if err != nil {
					return nil, fmt.Errorf("failed to parse PEM certificate: %w", err)
				}
				return cert, nil
			}
		}
	}

	if _, cert, _, err := pkcs12.DecodeChain(data, password); err == nil {
		return cert, nil
	}

	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode certificate as PEM, PKCS#12 or DER: %w", err)
	}
	return cert, nil
}

// NewSigningIdentity classifies an already-parsed certificate. A
// certificate whose common name carries no APNs topic prefix yields an
// identity with IsAPNS false.
func NewSigningIdentity(cert *x509.Certificate) *SigningIdentity {
	identity := &SigningIdentity{
		Name:        cert.Subject.CommonName,
		Certificate: cert,
	}
	for _, p := range apnsTopicPrefixes {
		if strings.HasPrefix(identity.Name, p.prefix) {
			identity.IsAPNS = true
			identity.IsProduction = p.production
			identity.BundleID = strings.TrimPrefix(identity.Name, p.prefix)
			break
		}
	}
	return identity
}

// Environment returns the push gateway the certificate targets, or EnvNone
// for non-APNs certificates.
func (i *SigningIdentity) Environment() Environment {
	if !i.IsAPNS {
		return EnvNone
	}
	if i.IsProduction {
		return EnvProduction
	}
	return EnvDevelopment
}
