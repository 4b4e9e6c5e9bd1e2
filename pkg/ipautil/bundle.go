package ipautil

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"howett.net/plist"
)

// Bundle identifies an application bundle on disk.
type Bundle struct {
	Path           string
	BundleID       string
	DisplayName    string
	ExecutableName string
	// SignedEntitlements holds the entitlements embedded in the main
	// executable's code signature. Nil when the binary is unsigned or
	// could not be read.
	SignedEntitlements map[string]interface{}
}

// LoadBundle reads a .app directory into a Bundle. It fails when
// Info.plist is missing or carries no CFBundleIdentifier.
func LoadBundle(appPath string) (*Bundle, error) {
	data, err := os.ReadFile(filepath.Join(appPath, "Info.plist"))
	if err != nil {
		return nil, fmt.Errorf("failed to read Info.plist: %w", err)
	}

	var info map[string]interface{}
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse Info.plist: %w", err)
	}

	bundleID, ok := info["CFBundleIdentifier"].(string)
	if !ok || bundleID == "" {
		return nil, fmt.Errorf("CFBundleIdentifier not found in Info.plist")
	}

	displayName, _ := info["CFBundleDisplayName"].(string)
	if displayName == "" {
		displayName, _ = info["CFBundleName"].(string)
	}
	if displayName == "" {
		displayName = strings.TrimSuffix(filepath.Base(appPath), ".app")
	}

	execName, _ := info["CFBundleExecutable"].(string)

	bundle := &Bundle{
		Path:           appPath,
		BundleID:       bundleID,
		DisplayName:    displayName,
		ExecutableName: execName,
	}

	// Best effort: unsigned or stripped binaries simply carry none
	if execName != "" {
		if ents, err := ExecutableEntitlements(filepath.Join(appPath, execName)); err == nil {
			bundle.SignedEntitlements = ents
		}
	}

	return bundle, nil
}

// OpenBundle loads a Bundle from an .ipa file or a .app directory. The
// returned cleanup func removes any temporary extraction directory and is
// safe to call either way.
func OpenBundle(path string) (*Bundle, func(), error) {
	appPath := path
	cleanup := func() {}

	if strings.HasSuffix(strings.ToLower(path), ".ipa") {
		tempDir, err := ExtractIPA(path)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to extract IPA: %w", err)
		}
		cleanup = func() { os.RemoveAll(tempDir) }

		appPath, err = FindAppBundle(tempDir)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
	}

	bundle, err := LoadBundle(appPath)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return bundle, cleanup, nil
}

// EmbeddedProfile parses the provisioning profile embedded in the bundle.
func (b *Bundle) EmbeddedProfile() (*ProvisioningProfile, error) {
	data, err := os.ReadFile(filepath.Join(b.Path, "embedded.mobileprovision"))
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded provisioning profile: %w", err)
	}
	return ParseProvisioningProfile(data)
}

// ExtractIPA extracts an IPA file to a temporary directory
// Returns the path to the temp directory
func ExtractIPA(ipaPath string) (string, error) {
	// Create temp directory
	tempDir, err := os.MkdirTemp("", "ipa-verify-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	// Open the IPA (ZIP file)
	r, err := zip.OpenReader(ipaPath)
	if err != nil {
		os.RemoveAll(tempDir)
		return "", fmt.Errorf("failed to open IPA: %w", err)
	}
	defer r.Close()

	// Extract all files
	for _, f := range r.File {
		err := extractZipFile(f, tempDir)
		if err != nil {
			os.RemoveAll(tempDir)
			return "", fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}

	return tempDir, nil
}

func extractZipFile(f *zip.File, destDir string) error {
	// Sanitize the file path to prevent zip slip
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("invalid file path: %s", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(destPath, f.Mode())
	}

	// Create parent directories
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}

	// Create the file
	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer destFile.Close()

	// Copy contents
	srcFile, err := f.Open()
	if err != nil {
		return err
	}
	defer srcFile.Close()

	_, err = io.Copy(destFile, srcFile)
	return err
}

// FindAppBundle finds the .app bundle inside an extracted IPA
// Returns the full path to the .app directory
func FindAppBundle(extractedDir string) (string, error) {
	payloadDir := filepath.Join(extractedDir, "Payload")

	entries, err := os.ReadDir(payloadDir)
	if err != nil {
		return "", fmt.Errorf("failed to read Payload directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() && strings.HasSuffix(entry.Name(), ".app") {
			return filepath.Join(payloadDir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("no .app bundle found in Payload directory")
}
