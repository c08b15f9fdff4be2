package services

import (
	"fmt"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

// RoutingLabels derives the reverse-proxy configuration for an app's HTTP
// ports as container labels, plus the hostnames they resolve to. The first
// declared port uses the bare app name as subdomain; every later port uses
// <name>-<port> to avoid collisions. TCP/UDP ports never appear here; they
// are published directly to host ports instead.
//
// The proxy reads these labels by watching container metadata, so keys and
// hostnames are reproducible byte-for-byte for the same input.
func RoutingLabels(app *domain.App, dom string, https bool) (map[string]string, []string) {
	labels := map[string]string{
		domain.OwnerLabel: app.Name,
	}

	var hostnames []string
	for i, port := range app.Ports {
		if !port.IsHTTP() {
			continue
		}

		router := app.Name
		if i != 0 {
			router = fmt.Sprintf("%s-%d", app.Name, port.Port)
		}

		hostname := fmt.Sprintf("%s.%s", router, dom)
		hostnames = append(hostnames, hostname)

		labels[fmt.Sprintf("traefik.http.routers.%s.rule", router)] = fmt.Sprintf("Host(`%s`)", hostname)
		labels[fmt.Sprintf("traefik.http.routers.%s.entrypoints", router)] = "web"
		labels[fmt.Sprintf("traefik.http.routers.%s.service", router)] = router
		labels[fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port", router)] = fmt.Sprintf("%d", port.Port)

		if https {
			secure := router + "-secure"
			labels[fmt.Sprintf("traefik.http.routers.%s.rule", secure)] = fmt.Sprintf("Host(`%s`)", hostname)
			labels[fmt.Sprintf("traefik.http.routers.%s.entrypoints", secure)] = "websecure"
			labels[fmt.Sprintf("traefik.http.routers.%s.tls", secure)] = "true"
			labels[fmt.Sprintf("traefik.http.routers.%s.service", secure)] = router
		}
	}

	// Routing is allow-list based: only containers that opt in are
	// discovered by the proxy. Apps with no HTTP ports stay out of the
	// list entirely.
	if len(hostnames) > 0 {
		labels["traefik.enable"] = "true"
	}

	return labels, hostnames
}
