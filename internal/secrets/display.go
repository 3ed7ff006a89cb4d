package secrets

import "fmt"

// GroupGuidance is the line rendered when a display request names a secret
// without saying which group it belongs to.
const GroupGuidance = "please specify which secrets group the secret belongs to."

// ErrGroupRequired rejects a display request that names a secret but no
// group. The qualified name cannot be composed without the group, so the
// request is refused before any store traffic happens.
var ErrGroupRequired = fmt.Errorf("a secret name requires a group")

// DisplayRequest selects what Display renders: every secret in a namespace,
// one group's secrets, or a single secret. Construct values through the
// DisplayAll, DisplayGroup, and DisplayOne constructors or, when mapping
// optional CLI flags, through NewDisplayRequest.
type DisplayRequest struct {
	namespace string
	group     string
	name      string
}

// DisplayAll requests every secret in the namespace.
func DisplayAll(namespace string) DisplayRequest {
	return DisplayRequest{namespace: namespace}
}

// DisplayGroup requests the secrets belonging to one group.
func DisplayGroup(namespace, group string) DisplayRequest {
	return DisplayRequest{namespace: namespace, group: group}
}

// DisplayOne requests a single secret identified by group and short name.
func DisplayOne(namespace, group, name string) DisplayRequest {
	return DisplayRequest{namespace: namespace, group: group, name: name}
}

// NewDisplayRequest maps optional group and name values onto a request
// variant. A name without a group is ambiguous and returns ErrGroupRequired;
// callers turn that into the GroupGuidance line without querying the store.
func NewDisplayRequest(namespace, group, name string) (DisplayRequest, error) {
	switch {
	case name != "" && group == "":
		return DisplayRequest{}, ErrGroupRequired
	case name != "":
		return DisplayOne(namespace, group, name), nil
	case group != "":
		return DisplayGroup(namespace, group), nil
	default:
		return DisplayAll(namespace), nil
	}
}

// Namespace returns the namespace the request targets.
func (r DisplayRequest) Namespace() string { return r.namespace }

// Group returns the group filter, empty for all groups.
func (r DisplayRequest) Group() string { return r.group }

// Name returns the requested short name, empty for listing requests.
func (r DisplayRequest) Name() string { return r.name }
