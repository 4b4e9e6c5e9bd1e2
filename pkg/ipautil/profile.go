package ipautil

import (
	"crypto/x509"
	"fmt"
	"strings"
	"time"

	"go.mozilla.org/pkcs7"
	"howett.net/plist"
)

// Environment identifies which Apple environment an artifact targets.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	// EnvNone means the artifact carries no push entitlement at all.
	// Distinct from EnvDevelopment: an app without push capability has
	// nothing to compare environments against.
	EnvNone Environment = ""
)

// ProvisioningProfile represents a parsed .mobileprovision file
type ProvisioningProfile struct {
	Name                        string                 `plist:"Name"`
	TeamName                    string                 `plist:"TeamName"`
	TeamIdentifier              []string               `plist:"TeamIdentifier"`
	AppIDName                   string                 `plist:"AppIDName"`
	ApplicationIdentifierPrefix []string               `plist:"ApplicationIdentifierPrefix"`
	Entitlements                map[string]interface{} `plist:"Entitlements"`
	DeveloperCertificates       [][]byte               `plist:"DeveloperCertificates"`
	ProvisionedDevices          []string               `plist:"ProvisionedDevices"`
	ProvisionsAllDevices        bool                   `plist:"ProvisionsAllDevices"`
	CreationDate                time.Time              `plist:"CreationDate"`
	ExpirationDate              time.Time              `plist:"ExpirationDate"`
	UUID                        string                 `plist:"UUID"`
	Platform                    []string               `plist:"Platform"`
}

// ParseProvisioningProfile parses a .mobileprovision file
// The file is a CMS (PKCS#7) signed container with a plist payload
func ParseProvisioningProfile(data []byte) (*ProvisioningProfile, error) {
	// Parse the CMS/PKCS#7 container
	p7, err := pkcs7.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PKCS#7 container: %w", err)
	}

	// The content is a plist
	var profile ProvisioningProfile
	_, err = plist.Unmarshal(p7.Content, &profile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse provisioning profile plist: %w", err)
	}

	if err := profile.validate(); err != nil {
		return nil, err
	}

	return &profile, nil
}

// validate rejects malformed entitlement values at construction time so
// the consistency checks stay total functions.
func (p *ProvisioningProfile) validate() error {
	if env, ok := p.Entitlements["aps-environment"].(string); ok {
		switch Environment(env) {
		case EnvDevelopment, EnvProduction:
		default:
			return fmt.Errorf("unrecognized aps-environment value %q in provisioning profile", env)
		}
	}
	return nil
}

// GetTeamID returns the team identifier from the profile
func (p *ProvisioningProfile) GetTeamID() string {
	if len(p.TeamIdentifier) > 0 {
		return p.TeamIdentifier[0]
	}
	if len(p.ApplicationIdentifierPrefix) > 0 {
		return p.ApplicationIdentifierPrefix[0]
	}
	return ""
}

// GetApplicationIdentifier returns the application identifier from entitlements
func (p *ProvisioningProfile) GetApplicationIdentifier() string {
	if appID, ok := p.Entitlements["application-identifier"].(string); ok {
		return appID
	}
	return ""
}

// BundleID returns the bundle identifier the profile authorizes: the
// application identifier with its team prefix stripped. Wildcard profiles
// return "*" or a "com.example.*" pattern as-is.
func (p *ProvisioningProfile) BundleID() string {
	appID := p.GetApplicationIdentifier()
	if i := strings.Index(appID, "."); i >= 0 {
		return appID[i+1:]
	}
	return appID
}

// GetTaskAllow returns the get-task-allow entitlement. True means the app
// is debuggable, i.e. a development build.
func (p *ProvisioningProfile) GetTaskAllow() bool {
	allow, _ := p.Entitlements["get-task-allow"].(bool)
	return allow
}

// AppEnvironment returns the environment the app itself is built for,
// derived from the get-task-allow entitlement: debuggable builds are
// development, everything else is production.
func (p *ProvisioningProfile) AppEnvironment() Environment {
	if p.GetTaskAllow() {
		return EnvDevelopment
	}
	return EnvProduction
}

// APNSEnvironment returns the push gateway the aps-environment entitlement
// targets, or EnvNone when the app has no push entitlement.
func (p *ProvisioningProfile) APNSEnvironment() Environment {
	if env, ok := p.Entitlements["aps-environment"].(string); ok {
		return Environment(env)
	}
	return EnvNone
}

// IsAppStoreBuild reports whether this is an App Store distribution
// profile. Distribution profiles carry no device list and do not provision
// all devices.
func (p *ProvisioningProfile) IsAppStoreBuild() bool {
	return p.ProvisionedDevices == nil && !p.ProvisionsAllDevices
}

// HasDevice reports whether the given UDID is in the provisioned device
// list, by exact string match.
func (p *ProvisioningProfile) HasDevice(udid string) bool {
	for _, device := range p.ProvisionedDevices {
		if device == udid {
			return true
		}
	}
	return false
}

// DeviceCount returns the number of distinct provisioned devices.
// Duplicate UDIDs in the plist collapse.
func (p *ProvisioningProfile) DeviceCount() int {
	seen := make(map[string]struct{}, len(p.ProvisionedDevices))
	for _, device := range p.ProvisionedDevices {
		seen[device] = struct{}{}
	}
	return len(seen)
}

// IsExpired checks if the provisioning profile has expired
func (p *ProvisioningProfile) IsExpired() bool {
	return time.Now().After(p.ExpirationDate)
}

// GetCertificates parses and returns the developer certificates from the profile
func (p *ProvisioningProfile) GetCertificates() ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for i, certData := range p.DeveloperCertificates {
		cert, err := x509.ParseCertificate(certData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate %d: %w", i, err)
		}
		certs = append(certs, cert)
	}
	return certs, nil
}
