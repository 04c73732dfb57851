package entities

// ServerStatus is a snapshot of the receiver server state
type ServerStatus struct {
	Running bool   `json:"running"`
	Port    int    `json:"port,omitempty"`
	Address string `json:"address,omitempty"`
}

// State returns "running" or "stopped"
func (s ServerStatus) State() string {
	if s.Running {
		return "running"
	}
	return "stopped"
}
