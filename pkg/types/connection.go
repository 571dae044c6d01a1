package types

// Status is the verdict of a connection check.
type Status string

// Connection check verdicts.
const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ConnectionResult holds the outcome of probing a registry or image endpoint.
type ConnectionResult struct {
	Status   Status   `json:"status"`
	Messages []string `json:"messages"`
}

// NewConnectionResult builds a result carrying the given status and messages.
func NewConnectionResult(status Status, messages ...string) ConnectionResult {
	if messages == nil {
		messages = []string{}
	}

	return ConnectionResult{Status: status, Messages: messages}
}

// Success reports whether the check succeeded.
func (r ConnectionResult) Success() bool {
	return r.Status == StatusSuccess
}
