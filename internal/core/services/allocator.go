package services

import (
	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

// Host ports for direct-mapped TCP/UDP services are drawn from this fixed
// inclusive range.
const (
	PortRangeStart = 40000
	PortRangeEnd   = 49999
)

// AllocateHostPorts returns count distinct host ports from the allocation
// range that are not in used, in ascending order. The scan is first-fit
// ascending, so the result is deterministic for a given used set. Returns
// a PortCapacityError if fewer than count ports remain; no partial list is
// produced.
func AllocateHostPorts(used []int, count int) ([]int, error) {
	taken := make(map[int]bool, len(used))
	for _, p := range used {
		taken[p] = true
	}

	allocated := make([]int, 0, count)
	for port := PortRangeStart; port <= PortRangeEnd && len(allocated) < count; port++ {
		if !taken[port] {
			allocated = append(allocated, port)
		}
	}

	if len(allocated) < count {
		return nil, &domain.PortCapacityError{Requested: count, Available: len(allocated)}
	}
	return allocated, nil
}

// AllocateDirectPorts pairs each declared TCP/UDP port of the app with a
// freshly allocated host port.
func AllocateDirectPorts(app *domain.App, used []int) ([]domain.AllocatedPort, error) {
	direct := app.DirectPorts()
	if len(direct) == 0 {
		return nil, nil
	}

	hostPorts, err := AllocateHostPorts(used, len(direct))
	if err != nil {
		return nil, err
	}

	out := make([]domain.AllocatedPort, len(direct))
	for i, p := range direct {
		out[i] = domain.AllocatedPort{
			ContainerPort: p.Port,
			HostPort:      hostPorts[i],
			Protocol:      p.Protocol,
			Label:         p.Label,
		}
	}
	return out, nil
}
