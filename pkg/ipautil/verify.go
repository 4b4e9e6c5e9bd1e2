package ipautil

import (
	"fmt"
	"strconv"
)

// CheckStatus is the tri-state outcome of a single consistency check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusFail
	// StatusNotApplicable means the check's precondition does not hold for
	// the given inputs (e.g. a device lookup against a distribution
	// profile). It is not a failure.
	StatusNotApplicable
)

func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFail:
		return "fail"
	case StatusNotApplicable:
		return "not applicable"
	default:
		return fmt.Sprintf("unknown status %d", int(s))
	}
}

// CheckName identifies a check within a DiagnosticReport.
type CheckName string

const (
	CheckBundleIdentity         CheckName = "bundleIdentity"
	CheckEnvironmentConsistency CheckName = "environmentConsistency"
	CheckCertificateConsistency CheckName = "certificateConsistency"
	CheckDeviceEnrollment       CheckName = "deviceEnrollment"
)

// checkOrder fixes the order report entries are rendered in.
var checkOrder = []CheckName{
	CheckBundleIdentity,
	CheckEnvironmentConsistency,
	CheckCertificateConsistency,
	CheckDeviceEnrollment,
}

// CheckResult is the outcome of one consistency check. Detail is a
// human-oriented explanation; Values holds the raw values that were
// compared, so a caller can render its own remediation text without
// re-running the logic.
type CheckResult struct {
	Status CheckStatus
	Detail string
	Values map[string]string
}

// BundleIdentityCheck verifies that the app bundle and the provisioning
// profile agree on the bundle identifier. The comparison is byte-exact:
// identifiers are case-sensitive and never normalized.
func BundleIdentityCheck(bundle *Bundle, profile *ProvisioningProfile) CheckResult {
	values := map[string]string{
		"bundleID":        bundle.BundleID,
		"profileBundleID": profile.BundleID(),
	}
	if bundle.BundleID == profile.BundleID() {
		return CheckResult{
			Status: StatusPass,
			Detail: fmt.Sprintf("bundle identifier %q matches the provisioning profile", bundle.BundleID),
			Values: values,
		}
	}
	return CheckResult{
		Status: StatusFail,
		Detail: fmt.Sprintf("bundle identifier %q does not match the profile's %q; the app was signed with a profile for a different app",
			bundle.BundleID, profile.BundleID()),
		Values: values,
	}
}

// EnvironmentConsistencyCheck verifies that the environment the app was
// built for agrees with the push gateway its aps-environment entitlement
// targets. Apps without push entitlements report NotApplicable.
func EnvironmentConsistencyCheck(profile *ProvisioningProfile) CheckResult {
	apnsEnv := profile.APNSEnvironment()
	if apnsEnv == EnvNone {
		return CheckResult{
			Status: StatusNotApplicable,
			Detail: "app has no push entitlement, no environment to compare",
		}
	}

	appEnv := profile.AppEnvironment()
	values := map[string]string{
		"appEnvironment":  string(appEnv),
		"apnsEnvironment": string(apnsEnv),
		"getTaskAllow":    strconv.FormatBool(profile.GetTaskAllow()),
	}
	if appEnv == apnsEnv {
		return CheckResult{
			Status: StatusPass,
			Detail: fmt.Sprintf("app and push entitlement both target the %s environment", apnsEnv),
			Values: values,
		}
	}
	return CheckResult{
		Status: StatusFail,
		Detail: fmt.Sprintf("app was built with get-task-allow = %v (%s) but aps-environment is %s; regenerate the provisioning profile so both target the same environment",
			profile.GetTaskAllow(), appEnv, apnsEnv),
		Values: values,
	}
}

// CertificateConsistencyCheck verifies that a push certificate can deliver
// notifications for the app the profile authorizes: the certificate's topic
// must match the profile's bundle identifier, and the certificate's gateway
// must match the profile's aps-environment. Non-APNs certificates report
// NotApplicable.
func CertificateConsistencyCheck(identity *SigningIdentity, profile *ProvisioningProfile) CheckResult {
	if !identity.IsAPNS {
		return CheckResult{
			Status: StatusNotApplicable,
			Detail: fmt.Sprintf("%q is not an APNs certificate, skipping comparison", identity.Name),
		}
	}

	apnsEnv := profile.APNSEnvironment()
	bundleIDMatch := identity.BundleID == profile.BundleID()
	environmentMatch := identity.IsProduction == (apnsEnv == EnvProduction)

	values := map[string]string{
		"certBundleID":     identity.BundleID,
		"profileBundleID":  profile.BundleID(),
		"certEnvironment":  string(identity.Environment()),
		"apnsEnvironment":  string(apnsEnv),
		"bundleIDMatch":    strconv.FormatBool(bundleIDMatch),
		"environmentMatch": strconv.FormatBool(environmentMatch),
	}

	if bundleIDMatch && environmentMatch {
		return CheckResult{
			Status: StatusPass,
			Detail: fmt.Sprintf("certificate %q matches the profile's bundle identifier and %s environment", identity.Name, apnsEnv),
			Values: values,
		}
	}

	detail := ""
	if !bundleIDMatch {
		detail = fmt.Sprintf("certificate topic %q does not match the profile's bundle identifier %q",
			identity.BundleID, profile.BundleID())
	}
	if !environmentMatch {
		if detail != "" {
			detail += "; "
		}
		detail += fmt.Sprintf("certificate targets the %s push gateway but the profile's aps-environment is %s; export a %s push certificate, or rebuild with a profile whose aps-environment is %s",
			identity.Environment(), apnsEnv, apnsEnv, identity.Environment())
	}
	return CheckResult{Status: StatusFail, Detail: detail, Values: values}
}

// DeviceEnrollmentCheck verifies that a device UDID is provisioned by the
// profile. Distribution profiles carry no device list, so the lookup is
// meaningless and reports NotApplicable rather than an empty miss.
// The device count is reported regardless of outcome.
func DeviceEnrollmentCheck(profile *ProvisioningProfile, udid string) CheckResult {
	if profile.IsAppStoreBuild() {
		return CheckResult{
			Status: StatusNotApplicable,
			Detail: "distribution profiles carry no device list",
		}
	}

	count := profile.DeviceCount()
	values := map[string]string{
		"udid":        udid,
		"deviceCount": strconv.Itoa(count),
	}

	// Enterprise profiles provision every device
	if profile.ProvisionsAllDevices {
		return CheckResult{
			Status: StatusPass,
			Detail: "profile provisions all devices",
			Values: values,
		}
	}
	if profile.HasDevice(udid) {
		return CheckResult{
			Status: StatusPass,
			Detail: fmt.Sprintf("device %s is provisioned (%d devices in profile)", udid, count),
			Values: values,
		}
	}
	return CheckResult{
		Status: StatusFail,
		Detail: fmt.Sprintf("device %s is not among the profile's %d provisioned devices; add it in the developer portal and regenerate the profile", udid, count),
		Values: values,
	}
}

// DiagnosticReport maps check names to their results. A check that was not
// requested (e.g. no certificate supplied) is absent from the map, which is
// distinct from a present NotApplicable result.
type DiagnosticReport struct {
	Checks map[CheckName]CheckResult
}

// VerifyOptions selects which checks Verify runs. Bundle and Profile are
// required; Identity and UDID are optional and, when zero, skip the
// certificate and device checks respectively.
type VerifyOptions struct {
	Bundle   *Bundle
	Profile  *ProvisioningProfile
	Identity *SigningIdentity
	UDID     string
}

// Verify runs the consistency checks selected by opts and assembles the
// report. It performs no I/O and holds no state across invocations.
func Verify(opts VerifyOptions) *DiagnosticReport {
	report := &DiagnosticReport{Checks: make(map[CheckName]CheckResult)}

	report.Checks[CheckBundleIdentity] = BundleIdentityCheck(opts.Bundle, opts.Profile)
	report.Checks[CheckEnvironmentConsistency] = EnvironmentConsistencyCheck(opts.Profile)
	if opts.Identity != nil {
		report.Checks[CheckCertificateConsistency] = CertificateConsistencyCheck(opts.Identity, opts.Profile)
	}
	if opts.UDID != "" {
		report.Checks[CheckDeviceEnrollment] = DeviceEnrollmentCheck(opts.Profile, opts.UDID)
	}

	return report
}

// Result returns the result for a named check and whether it was run.
func (r *DiagnosticReport) Result(name CheckName) (CheckResult, bool) {
	result, ok := r.Checks[name]
	return result, ok
}

// Names returns the names of the checks that were run, in a fixed order.
func (r *DiagnosticReport) Names() []CheckName {
	var names []CheckName
	for _, name := range checkOrder {
		if _, ok := r.Checks[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Failed reports whether any check in the report failed. NotApplicable
// results do not count as failures.
func (r *DiagnosticReport) Failed() bool {
	for _, result := range r.Checks {
		if result.Status == StatusFail {
			return true
		}
	}
	return false
}
