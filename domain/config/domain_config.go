package config

// DomainConfig holds tunable business rules for canvas graphs
type DomainConfig struct {
	MaxNodesPerCanvas       int
	MaxConnectionsPerCanvas int
	AllowSelfConnections    bool
	AllowDuplicateEdges     bool
}

// DefaultDomainConfig returns the default business rule configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNodesPerCanvas:       10000,
		MaxConnectionsPerCanvas: 50000,
		AllowSelfConnections:    false,
		AllowDuplicateEdges:     true,
	}
}
