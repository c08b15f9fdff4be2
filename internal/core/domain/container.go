package domain

// ManagedContainer is a daemon-side view of one container this tool owns,
// as reported by a label-scoped listing.
type ManagedContainer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

// ContainerSpec is everything the lifecycle manager needs to create an
// app container: image, identity, routing labels, environment, network
// attachment and the direct host-port publications.
type ContainerSpec struct {
	Name        string
	Image       string
	Labels      map[string]string
	Env         []string
	NetworkID   string
	DirectPorts []AllocatedPort
}
