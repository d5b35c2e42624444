package backend

// Server connection states reported in ServerStatus.
const (
	StatusConnected = "connected"
	StatusFailed    = "failed"
)

// ServerStatus reports how mounting a single tool server went.
type ServerStatus struct {
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Tools  []string `json:"tools,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Status reports the outcome of a Mount.
type Status struct {
	Servers []ServerStatus `json:"servers"`
}

// Failed returns the servers that could not be mounted.
func (s Status) Failed() []ServerStatus {
	var out []ServerStatus

	for _, srv := range s.Servers {
		if srv.Status == StatusFailed {
			out = append(out, srv)
		}
	}

	return out
}
