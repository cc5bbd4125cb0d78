// Package manifest provides types and utilities for loading and validating
// extraction manifest files. A manifest defines multiple round targets with
// per-target overrides, enabling batch extraction runs.
//
// # Manifest Format
//
// Manifests can be written in YAML or JSON format:
//
//	targets:
//	  - country: england
//	    competition: premier-league
//	    round: "12"
//	  - country: spain
//	    competition: la-liga
//	    round: "12"
//	    form_depth: 10
//	    strict: true
//	options:
//	  continue_on_error: true
//	  output: ./extractions
//
// # Usage
//
// Load a manifest file:
//
//	loader := manifest.NewLoader()
//	cfg, err := loader.Load("rounds.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, target := range cfg.Targets {
//	    // Extract each target
//	}
//
// # Error Handling
//
// The package defines sentinel errors for common failure cases:
//   - ErrNoTargets: manifest has no targets defined
//   - ErrIncompleteTarget: target is missing country, competition, or round
//   - ErrInvalidFormat: file is not valid YAML/JSON
//   - ErrFileNotFound: manifest file does not exist
//   - ErrUnsupportedExt: unsupported file extension
package manifest
