// Package common holds identifiers shared across Clue-FHE binaries.
package common

// PackageName is the canonical name used for metrics namespacing and logs.
const PackageName = "clue-fhe"

// Version is overridden at build time via -ldflags.
var Version = "dev"
