package github

// Repository is the descriptor for an organization repository, reduced to the
// fields a sync run needs.
type Repository struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	DefaultBranch string `json:"default_branch"`
	Fork          bool   `json:"fork"`
}

// Merge outcomes reported by the merge-upstream endpoint.
const (
	MergeTypeFastForward = "fast-forward"
	MergeTypeMerge       = "merge"
	MergeTypeNone        = "none"
)

// MergeResult is the response of a merge-upstream call.
type MergeResult struct {
	Message    string `json:"message"`
	MergeType  string `json:"merge_type"`
	BaseBranch string `json:"base_branch"`
}

// FastForwarded reports whether the merge pulled new commits without
// divergent history.
func (m *MergeResult) FastForwarded() bool {
	return m.MergeType == MergeTypeFastForward
}

// FileContents is a file fetched through the contents API. Content is already
// base64-decoded.
type FileContents struct {
	Path    string
	SHA     string
	Content string
}
