// Package deps resolves the external document tools spines shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names a tool and the command configured for it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement after PATH resolution. Path is empty when the
// command could not be found.
type Status struct {
	Requirement
	Path   string
	Detail string
}

// Available reports whether the command resolved.
func (s Status) Available() bool { return s.Path != "" }

// CheckBinaries resolves each requirement's command on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		st := Status{Requirement: req}
		switch path, err := exec.LookPath(req.Command); {
		case req.Command == "":
			st.Detail = "command not configured"
		case err != nil:
			st.Detail = fmt.Sprintf("binary %q not found", req.Command)
		default:
			st.Path = path
		}
		results = append(results, st)
	}
	return results
}

// MissingRequired returns the names of unavailable non-optional tools.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, st := range statuses {
		if !st.Available() && !st.Optional {
			missing = append(missing, st.Name)
		}
	}
	return missing
}
