package ipautil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"
)

// newTestCert generates a self-signed certificate with the given common name.
func newTestCert(t *testing.T, commonName string) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:         commonName,
			OrganizationalUnit: []string{"ABCD1234"},
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}

	return cert, key
}

func TestNewSigningIdentity(t *testing.T) {
	tests := []struct {
		name           string
		commonName     string
		wantAPNS       bool
		wantProduction bool
		wantBundleID   string
	}{
		{
			"universal push certificate",
			"Apple Push Services: com.acme.App",
			true, true, "com.acme.App",
		},
		{
			"production push certificate",
			"Apple Production IOS Push Services: com.acme.App",
			true, true, "com.acme.App",
		},
		{
			"development push certificate",
			"Apple Development IOS Push Services: com.acme.App",
			true, false, "com.acme.App",
		},
		{
			"developer certificate",
			"iPhone Developer: Jane Doe (ABCD1234)",
			false, false, "",
		},
		{
			"distribution certificate",
			"iPhone Distribution: Acme Inc",
			false, false, "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert, _ := newTestCert(t, tt.commonName)
			identity := NewSigningIdentity(cert)

			if identity.Name != tt.commonName {
				t.Errorf("Expected name %q, got %q", tt.commonName, identity.Name)
			}
			if identity.IsAPNS != tt.wantAPNS {
				t.Errorf("Expected IsAPNS=%v, got %v", tt.wantAPNS, identity.IsAPNS)
			}
			if identity.IsProduction != tt.wantProduction {
				t.Errorf("Expected IsProduction=%v, got %v", tt.wantProduction, identity.IsProduction)
			}
			if identity.BundleID != tt.wantBundleID {
				t.Errorf("Expected BundleID %q, got %q", tt.wantBundleID, identity.BundleID)
			}
		})
	}
}

func TestSigningIdentityEnvironment(t *testing.T) {
	cert, _ := newTestCert(t, "Apple Development IOS Push Services: com.acme.App")
	if env := NewSigningIdentity(cert).Environment(); env != EnvDevelopment {
		t.Errorf("Expected development, got %s", env)
	}

	cert, _ = newTestCert(t, "Apple Push Services: com.acme.App")
	if env := NewSigningIdentity(cert).Environment(); env != EnvProduction {
		t.Errorf("Expected production, got %s", env)
	}

	cert, _ = newTestCert(t, "iPhone Developer: Jane Doe")
	if env := NewSigningIdentity(cert).Environment(); env != EnvNone {
		t.Errorf("Expected none for non-APNs certificate, got %q", env)
	}
}

func TestParsePushCertificate_PEM(t *testing.T) {
	cert, _ := newTestCert(t, "Apple Push Services: com.acme.App")
	pemData := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})

	identity, err := ParsePushCertificate(pemData, "")
	if err != nil {
		t.Fatalf("ParsePushCertificate failed: %v", err)
	}
	if !identity.IsAPNS || identity.BundleID != "com.acme.App" {
		t.Errorf("Expected APNs identity for com.acme.App, got %+v", identity)
	}
}

func TestParsePushCertificate_PEMWithKeyBlock(t *testing.T) {
	// Exported push certificates often carry the key in the same file;
	// the certificate block is found regardless of order
	cert, key := newTestCert(t, "Apple Push Services: com.acme.App")
	pemData := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pemData = append(pemData, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)

	identity, err := ParsePushCertificate(pemData, "")
	if err != nil {
		t.Fatalf("ParsePushCertificate failed: %v", err)
	}
	if identity.Name != "Apple Push Services: com.acme.App" {
		t.Errorf("Expected certificate block to be used, got %q", identity.Name)
	}
}

func TestParsePushCertificate_DER(t *testing.T) {
	cert, _ := newTestCert(t, "Apple Production IOS Push Services: com.acme.App")

	identity, err := ParsePushCertificate(cert.Raw, "")
	if err != nil {
		t.Fatalf("ParsePushCertificate failed: %v", err)
	}
	if !identity.IsProduction {
		t.Errorf("Expected production identity, got %+v", identity)
	}
}

func TestParsePushCertificate_Garbage(t *testing.T) {
	if _, err := ParsePushCertificate([]byte("not a certificate"), ""); err == nil {
		t.Error("Expected error for garbage input")
	}
}

func TestParsePushCertificate_PEMWithoutCertificate(t *testing.T) {
	_, key := newTestCert(t, "Apple Push Services: com.acme.App")
	pemData := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	if _, err := ParsePushCertificate(pemData, ""); err == nil {
		t.Error("Expected error for PEM data without a certificate block")
	}
}
