package tsserver

import (
	"github.com/Masterminds/semver/v3"
)

// Protocol milestones that change how the adapter talks to tsserver.
var (
	// APIv340 introduced the batched updateOpen command.
	APIv340 = semver.MustParse("3.4.0")
	// APIv440 made geterr usable without semantic support.
	APIv440 = semver.MustParse("4.4.0")
)

var defaultAPIVersion = semver.MustParse("4.9.0")

// Capability describes one class of functionality a tsserver instance offers.
type Capability uint8

const (
	// CapabilitySyntax covers operations computable from a lone file.
	CapabilitySyntax Capability = 1 << iota

	// CapabilityEnhancedSyntax covers syntax operations backed by a partial
	// project view.
	CapabilityEnhancedSyntax

	// CapabilitySemantic covers whole-project analysis, including
	// project-wide diagnostics.
	CapabilitySemantic
)

// Capabilities is a set of Capability values.
type Capabilities uint8

func (c Capabilities) Has(cap Capability) bool {
	return uint8(c)&uint8(cap) != 0
}

func (c Capabilities) With(cap Capability) Capabilities {
	return Capabilities(uint8(c) | uint8(cap))
}

// Config carries the adapter-level settings the buffer sync core consults.
type Config struct {
	EnableProjectDiagnostics bool
}
