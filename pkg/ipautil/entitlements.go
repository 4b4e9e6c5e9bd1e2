package ipautil

import (
	"bytes"
	"fmt"
	"os"

	"github.com/blacktop/go-macho"
	"howett.net/plist"
)

// ParseEntitlementsXML parses XML plist entitlements into a map
func ParseEntitlementsXML(data []byte) (map[string]interface{}, error) {
	var entitlements map[string]interface{}
	_, err := plist.Unmarshal(data, &entitlements)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entitlements XML: %w", err)
	}
	return entitlements, nil
}

// ExecutableEntitlements reads the entitlements embedded in a Mach-O
// executable's code signature. Fat binaries use the first slice.
func ExecutableEntitlements(binaryPath string) (map[string]interface{}, error) {
	data, err := os.ReadFile(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read binary: %w", err)
	}

	m, err := macho.NewFile(bytes.NewReader(data))
	if err != nil {
		// Try as fat binary
		fat, ferr := macho.NewFatFile(bytes.NewReader(data))
		if ferr != nil {
			return nil, fmt.Errorf("failed to parse Mach-O: %w", err)
		}
		defer fat.Close()
		if len(fat.Arches) == 0 {
			return nil, fmt.Errorf("fat binary has no architectures")
		}
		arch := fat.Arches[0]
		archData := data[arch.Offset : uint64(arch.Offset)+uint64(arch.Size)]
		m, err = macho.NewFile(bytes.NewReader(archData))
		if err != nil {
			return nil, fmt.Errorf("failed to parse fat slice: %w", err)
		}
	}
	defer m.Close()

	for _, load := range m.Loads {
		if cs, ok := load.(*macho.CodeSignature); ok {
			if cs.Entitlements == "" {
				return nil, fmt.Errorf("code signature has no entitlements")
			}
			return ParseEntitlementsXML([]byte(cs.Entitlements))
		}
	}

	return nil, fmt.Errorf("no code signature found")
}
