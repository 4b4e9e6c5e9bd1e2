// Package ipautil verifies the mutual consistency of iOS signing artifacts.
//
// It parses the three artifacts involved in a device install - the app
// bundle, its provisioning profile, and (optionally) a push-notification
// certificate - and runs a set of pairwise consistency checks over them:
// bundle identifier match, push environment match, and device enrollment.
//
// # Basic Usage
//
// To verify an app against its embedded profile:
//
//	bundle, cleanup, err := ipautil.OpenBundle("MyApp.ipa")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
//	profile, err := bundle.EmbeddedProfile()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report := ipautil.Verify(ipautil.VerifyOptions{Bundle: bundle, Profile: profile})
//
// Each check yields a tri-state result (Pass, Fail, NotApplicable); a check
// whose precondition does not hold (for example an app without push
// entitlements) reports NotApplicable rather than failing. Checks never
// return errors - all parse failures surface when the artifacts are loaded,
// before any check runs.
package ipautil
