package stores

// Metadata keys secretctl sets on backend objects. Listings filter on these
// instead of parsing object names, which keeps group membership authoritative
// even when a backend's name separator can appear inside a namespace.
const (
	namespaceLabel = "secretctl-namespace"
	groupLabel     = "secretctl-group"
)
