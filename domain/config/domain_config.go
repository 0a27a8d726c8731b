package config

// DomainConfig holds the configurable business limits for a workspace.
type DomainConfig struct {
	// Workspace constraints
	MaxNodesPerWorkspace int

	// Node constraints
	MaxFilesPerNode       int
	MaxConnectionsPerNode int
	MaxNodeNameLength     int
	DefaultNodeName       string

	// File constraints
	MaxFileContentBytes int
	MaxFileNameLength   int

	// Assistant context assembly
	ContextPrefixBytes int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNodesPerWorkspace: 500,

		MaxFilesPerNode:       1000,
		MaxConnectionsPerNode: 100,
		MaxNodeNameLength:     120,
		DefaultNodeName:       "Untitled Project",

		MaxFileContentBytes: 4 << 20, // 4 MiB per file in memory
		MaxFileNameLength:   255,

		ContextPrefixBytes: 8 << 10,
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	return nil
}
