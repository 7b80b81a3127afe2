package entity

// GeneratedFile is one marker block extracted from the agent output.
type GeneratedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// PathPolicy controls what happens when a generated path resolves outside the
// session workspace.
type PathPolicy string

const (
	PathPolicyWarn   PathPolicy = "warn"
	PathPolicyReject PathPolicy = "reject"
)

func (p PathPolicy) Valid() bool {
	return p == PathPolicyWarn || p == PathPolicyReject
}
