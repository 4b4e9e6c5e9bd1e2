// Package main provides the ipa-utilities CLI for diagnosing iOS signing
// artifacts.
//
// For the library API, see the ipautil subpackage:
//
//	import "github.com/zdavison/ipa-utilities/pkg/ipautil"
//
// # Installation
//
// Install the CLI:
//
//	go install github.com/zdavison/ipa-utilities@latest
package main
