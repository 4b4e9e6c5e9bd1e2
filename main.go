package main

import (
	"fmt"
	"io"
	"os"

	"github.com/docopt/docopt-go"
	"github.com/zdavison/ipa-utilities/pkg/ipautil"
)

const version = "1.0.0"

const usage = `ipa-utilities - iOS Signing Artifact Diagnostics

A command-line tool for verifying that an app bundle, its provisioning
profile, and a push-notification certificate are mutually consistent.

Usage:
  ipa-utilities verify --app=<path> [--profile=<path>] [--certificate=<path>] [--password=<password>] [--udid=<udid>]
  ipa-utilities info --app=<path>
  ipa-utilities info --profile=<path>
  ipa-utilities info --certificate=<path> [--password=<password>]
  ipa-utilities -h | --help
  ipa-utilities --version

Commands:
  verify    Run consistency checks between an app, its profile, and an optional push certificate
  info      Display information about an app bundle, provisioning profile, or push certificate

Options:
  --app=<path>          Path to the input .ipa file or .app bundle directory
  --profile=<path>      Path to a provisioning profile (defaults to the app's embedded profile)
  --certificate=<path>  Path to a push certificate in PEM, P12, or DER form (or IPA_CERTIFICATE env var)
  --password=<password> Password for a P12 certificate (or IPA_CERT_PASSWORD env var)
  --udid=<udid>         Device UDID to look up in the profile's provisioned device list
  -h --help             Show this help message
  --version             Show version

Environment Variables:
  IPA_CERTIFICATE       Path to push certificate (overridden by --certificate)
  IPA_CERT_PASSWORD     P12 certificate password (overridden by --password)

Examples:
  # Verify an IPA against its embedded provisioning profile
  ipa-utilities verify --app=MyApp.ipa

  # Verify including the push certificate and a device lookup
  ipa-utilities verify --app=MyApp.ipa --certificate=push.pem --udid=0123456789abcdef0123456789abcdef01234567

  # Verify a .app bundle against an explicit profile
  ipa-utilities verify --app=MyApp.app --profile=dev.mobileprovision

  # View app bundle information
  ipa-utilities info --app=MyApp.ipa

  # View provisioning profile information
  ipa-utilities info --profile=dev.mobileprovision

  # View push certificate information
  ipa-utilities info --certificate=push.p12 --password=secret
`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}

	if verify, _ := opts.Bool("verify"); verify {
		if err := runVerify(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else if info, _ := opts.Bool("info"); info {
		if err := runInfo(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func runVerify(opts docopt.Opts) error {
	appPath, _ := opts.String("--app")
	profilePath, _ := opts.String("--profile")
	certPath, _ := opts.String("--certificate")
	password, _ := opts.String("--password")
	udid, _ := opts.String("--udid")

	// Get values from environment if not provided via flags
	if certPath == "" {
		certPath = os.Getenv("IPA_CERTIFICATE")
	}
	if password == "" {
		password = os.Getenv("IPA_CERT_PASSWORD")
	}

	bundle, cleanup, err := ipautil.OpenBundle(appPath)
	if err != nil {
		return err
	}
	defer cleanup()

	var profile *ipautil.ProvisioningProfile
	if profilePath != "" {
		data, err := os.ReadFile(profilePath)
		if err != nil {
			return fmt.Errorf("failed to read provisioning profile: %w", err)
		}
		profile, err = ipautil.ParseProvisioningProfile(data)
		if err != nil {
			return err
		}
	} else {
		profile, err = bundle.EmbeddedProfile()
		if err != nil {
			return err
		}
	}

	var identity *ipautil.SigningIdentity
	if certPath != "" {
		data, err := os.ReadFile(certPath)
		if err != nil {
			return fmt.Errorf("failed to read certificate: %w", err)
		}
		identity, err = ipautil.ParsePushCertificate(data, password)
		if err != nil {
			return err
		}
	}

	fmt.Printf("Verifying: %s (%s)\n", bundle.DisplayName, bundle.BundleID)
	fmt.Printf("Profile:   %s (%s)\n", profile.Name, profile.TeamName)
	if identity != nil {
		fmt.Printf("Certificate: %s\n", identity.Name)
	}
	fmt.Println()

	report := ipautil.Verify(ipautil.VerifyOptions{
		Bundle:   bundle,
		Profile:  profile,
		Identity: identity,
		UDID:     udid,
	})

	printReport(report, os.Stdout)

	if report.Failed() {
		return fmt.Errorf("verification failed")
	}
	fmt.Println("All checks passed")
	return nil
}

var checkLabels = map[ipautil.CheckName]string{
	ipautil.CheckBundleIdentity:         "Bundle identity",
	ipautil.CheckEnvironmentConsistency: "Environment consistency",
	ipautil.CheckCertificateConsistency: "Certificate consistency",
	ipautil.CheckDeviceEnrollment:       "Device enrollment",
}

func printReport(report *ipautil.DiagnosticReport, w io.Writer) {
	for _, name := range report.Names() {
		result, _ := report.Result(name)

		mark := "✓"
		switch result.Status {
		case ipautil.StatusFail:
			mark = "✗"
		case ipautil.StatusNotApplicable:
			mark = "-"
		}

		fmt.Fprintf(w, "%s %-24s %s\n", mark, checkLabels[name], result.Status)
		if result.Detail != "" {
			fmt.Fprintf(w, "    %s\n", result.Detail)
		}
	}
	fmt.Fprintln(w)
}

func runInfo(opts docopt.Opts) error {
	appPath, _ := opts.String("--app")
	profilePath, _ := opts.String("--profile")
	certPath, _ := opts.String("--certificate")
	password, _ := opts.String("--password")

	if appPath != "" {
		return showAppInfo(appPath)
	} else if profilePath != "" {
		return showProfileInfo(profilePath)
	} else if certPath != "" {
		return showCertificateInfo(certPath, password)
	}

	return fmt.Errorf("one of --app, --profile or --certificate is required")
}

func showAppInfo(appPath string) error {
	bundle, cleanup, err := ipautil.OpenBundle(appPath)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("App Bundle Information")
	fmt.Println("======================")
	fmt.Printf("Path:        %s\n", appPath)
	fmt.Printf("App Name:    %s\n", bundle.DisplayName)
	fmt.Printf("Bundle ID:   %s\n", bundle.BundleID)
	fmt.Printf("Executable:  %s\n", bundle.ExecutableName)

	if len(bundle.SignedEntitlements) > 0 {
		fmt.Println()
		fmt.Println("Signed Entitlements:")
		for key, value := range bundle.SignedEntitlements {
			fmt.Printf("  %s: %v\n", key, value)
		}
	}

	if profile, err := bundle.EmbeddedProfile(); err == nil {
		fmt.Println()
		fmt.Println("Embedded Provisioning Profile")
		fmt.Println("-----------------------------")
		printProfileSummary(profile)
	}

	return nil
}

func showProfileInfo(profilePath string) error {
	data, err := os.ReadFile(profilePath)
	if err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}

	profile, err := ipautil.ParseProvisioningProfile(data)
	if err != nil {
		return err
	}

	fmt.Println("Provisioning Profile Information")
	fmt.Println("================================")
	fmt.Printf("File:           %s\n", profilePath)
	printProfileSummary(profile)

	if len(profile.ProvisionedDevices) > 0 {
		fmt.Println()
		fmt.Println("Provisioned Devices:")
		for _, udid := range profile.ProvisionedDevices {
			fmt.Printf("  - %s\n", udid)
		}
	}

	return nil
}

func printProfileSummary(profile *ipautil.ProvisioningProfile) {
	fmt.Printf("Name:           %s\n", profile.Name)
	fmt.Printf("Team:           %s (%s)\n", profile.TeamName, profile.GetTeamID())
	fmt.Printf("Bundle ID:      %s\n", profile.BundleID())
	fmt.Printf("UUID:           %s\n", profile.UUID)
	fmt.Printf("App Store:      %v\n", profile.IsAppStoreBuild())
	fmt.Printf("Debuggable:     %v\n", profile.GetTaskAllow())
	fmt.Printf("App Env:        %s\n", profile.AppEnvironment())
	if env := profile.APNSEnvironment(); env != ipautil.EnvNone {
		fmt.Printf("APNs Env:       %s\n", env)
	} else {
		fmt.Printf("APNs Env:       none (no push entitlement)\n")
	}
	fmt.Printf("Expiration:     %s\n", profile.ExpirationDate.Format("2006-01-02 15:04:05"))
	fmt.Printf("Expired:        %v\n", profile.IsExpired())
	if profile.ProvisionsAllDevices {
		fmt.Printf("Devices:        all (enterprise)\n")
	} else {
		fmt.Printf("Devices:        %d\n", profile.DeviceCount())
	}
	if certs, err := profile.GetCertificates(); err == nil && len(certs) > 0 {
		fmt.Printf("Certificates:   %d\n", len(certs))
		for i, cert := range certs {
			fmt.Printf("  [%d] %s\n", i+1, cert.Subject.CommonName)
			fmt.Printf("      Expires: %s\n", cert.NotAfter.Format("2006-01-02"))
		}
	}
}

func showCertificateInfo(certPath, password string) error {
	if password == "" {
		password = os.Getenv("IPA_CERT_PASSWORD")
	}

	data, err := os.ReadFile(certPath)
	if err != nil {
		return fmt.Errorf("failed to read certificate: %w", err)
	}

	identity, err := ipautil.ParsePushCertificate(data, password)
	if err != nil {
		return err
	}

	fmt.Println("Certificate Information")
	fmt.Println("=======================")
	fmt.Printf("File:           %s\n", certPath)
	fmt.Printf("Name:           %s\n", identity.Name)
	fmt.Printf("APNs:           %v\n", identity.IsAPNS)
	if identity.IsAPNS {
		fmt.Printf("Topic:          %s\n", identity.BundleID)
		fmt.Printf("Environment:    %s\n", identity.Environment())
	}
	fmt.Printf("Expires:        %s\n", identity.Certificate.NotAfter.Format("2006-01-02 15:04:05"))

	return nil
}
