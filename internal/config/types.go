// Package config holds the reference mapping configuration for reffix and
// loads it from JSON or YAML files.
package config

import "errors"

// ErrInvalidConfig is returned for unreadable, malformed or incomplete configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the run configuration: where to look and what to rewrite.
type Config struct {
	// Include lists the root directories to scan
	Include []string `koanf:"include"`
	// Exclude lists directories that are skipped during the project scan
	Exclude []string `koanf:"exclude"`
	// References maps project references to assembly references
	References []ReferenceConfig `koanf:"referencesConfig"`
}

// ReferenceConfig maps one referenced project file to the assembly that replaces it.
type ReferenceConfig struct {
	// ProjectReference is the file name of the referenced project (e.g. "Core.csproj")
	ProjectReference string `koanf:"projectReference"`
	// AssemblyReference is the name of the replacing assembly reference
	AssemblyReference string `koanf:"assemblyReference"`
	// RequiredTargetFramework is copied verbatim into the new reference when set
	RequiredTargetFramework string `koanf:"requiredTargetFramework"`
	// HintPath is the directory holding the assembly; made relative to each project
	HintPath string `koanf:"hintPath"`
	// SpecificVersion is written only when set
	SpecificVersion *bool `koanf:"specificVersion"`
}

func (r ReferenceConfig) String() string {
	return r.ProjectReference
}
