package output

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
	"github.com/vulnpkg/vulnpkg/internal/core/services"
)

type appInfo struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Image       string   `json:"image"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Ports       []int    `json:"ports"`
	Installed   bool     `json:"installed"`
	Running     bool     `json:"running"`
}

func makeAppInfo(app *domain.App, st *domain.AppState) appInfo {
	ports := make([]int, len(app.Ports))
	for i, p := range app.Ports {
		ports[i] = p.Port
	}
	info := appInfo{
		Name:        app.Name,
		Version:     app.Version,
		Image:       app.EffectiveImage(),
		Description: app.Description,
		Tags:        app.Tags,
		Ports:       ports,
	}
	if st != nil {
		info.Installed = st.Installed
		info.Running = st.Running
	}
	return info
}

// ListApps renders the manifest catalog with per-app install/run status.
func (p *Printer) ListApps(apps []domain.App, states map[string]*domain.AppState) {
	if p.json {
		infos := make([]appInfo, len(apps))
		for i := range apps {
			infos[i] = makeAppInfo(&apps[i], states[apps[i].Name])
		}
		p.JSON(infos)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Version", "Status", "Image", "Ports", "Tags"})
	for i := range apps {
		app := &apps[i]
		st := states[app.Name]
		status := text.Faint.Sprint("available")
		switch {
		case st != nil && st.Running:
			status = text.FgGreen.Sprint("running")
		case st != nil && st.Installed:
			status = text.FgBlue.Sprint("installed")
		}
		t.AppendRow(table.Row{
			app.Name, app.Version, status, app.EffectiveImage(),
			formatPorts(app.Ports), formatList(app.Tags),
		})
	}
	t.Render()
}

// SearchResults renders the apps matching a query.
func (p *Printer) SearchResults(query string, apps []domain.App, states map[string]*domain.AppState) {
	if !p.json && len(apps) == 0 {
		fmt.Fprintf(p.w, "No applications match %q\n", query)
		return
	}
	p.ListApps(apps, states)
}

// Status renders the per-instance liveness report.
func (p *Printer) Status(rows []services.InstanceStatus) {
	if p.json {
		p.JSON(rows)
		return
	}
	if len(rows) == 0 {
		fmt.Fprintln(p.w, "No vuln-pkg applications are currently managed.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "State", "Container", "Endpoints"})
	for _, row := range rows {
		state := text.FgRed.Sprint("stopped")
		if row.Running {
			state = text.FgGreen.Sprint("running")
		}
		t.AppendRow(table.Row{row.Name, state, shortID(row.ContainerID), formatEndpoints(row.Hostnames, row.Ports, false)})
	}
	t.Render()
}

// ManifestInfo shows a manifest's provenance before the trust decision.
func (p *Printer) ManifestInfo(url string, m *domain.Manifest) {
	if p.json {
		return
	}
	fmt.Fprintf(p.w, "\n%s\n", text.Bold.Sprint("Manifest: ")+url)
	if m.Meta.Author != "" {
		fmt.Fprintf(p.w, "  Author:      %s\n", m.Meta.Author)
	}
	if m.Meta.Email != "" {
		fmt.Fprintf(p.w, "  Email:       %s\n", m.Meta.Email)
	}
	if m.Meta.URL != "" {
		fmt.Fprintf(p.w, "  URL:         %s\n", m.Meta.URL)
	}
	if m.Meta.Description != "" {
		fmt.Fprintf(p.w, "  Description: %s\n", m.Meta.Description)
	}
	fmt.Fprintf(p.w, "  Apps:        %d\n", len(m.Apps))
}

// ShowManifestYAML dumps the raw manifest for review.
func (p *Printer) ShowManifestYAML(yaml string) {
	if !p.json {
		fmt.Fprintln(p.w, yaml)
	}
}

// AppInstalled reports a completed install.
func (p *Printer) AppInstalled(app *domain.App) {
	if p.json {
		p.JSON(map[string]string{"status": "installed", "app": app.Name, "image": app.EffectiveImage()})
		return
	}
	p.Success(fmt.Sprintf("Installed %s (%s)", app.Name, app.EffectiveImage()))
}

// AppRunning reports a started instance and where to reach it.
func (p *Printer) AppRunning(app *domain.App, res *services.RunResult, https bool) {
	if p.json {
		p.JSON(map[string]any{
			"status":    "running",
			"app":       app.Name,
			"hostnames": res.Hostnames,
			"ports":     res.Ports,
			"https":     https,
		})
		return
	}
	p.Success(fmt.Sprintf("Started %s", app.Name))
	fmt.Fprintln(p.w)
	scheme := "http"
	if https {
		scheme = "https"
	}
	for _, hostname := range res.Hostnames {
		fmt.Fprintf(p.w, "  %s %s\n", text.FgGreen.Sprint("->"), text.FgCyan.Sprintf("%s://%s", scheme, hostname))
	}
	for _, port := range res.Ports {
		label := ""
		if port.Label != "" {
			label = fmt.Sprintf(" (%s)", port.Label)
		}
		fmt.Fprintf(p.w, "  %s %s%s\n", text.FgGreen.Sprint("->"),
			text.FgCyan.Sprintf("%s://localhost:%d", port.Protocol, port.HostPort), label)
	}
	fmt.Fprintln(p.w)
}

// AppStopped reports a stopped instance.
func (p *Printer) AppStopped(name string) {
	if p.json {
		p.JSON(map[string]string{"status": "stopped", "app": name})
		return
	}
	p.Success(fmt.Sprintf("Stopped %s", name))
}

// AppRemoved reports a removed instance.
func (p *Printer) AppRemoved(name string) {
	if p.json {
		p.JSON(map[string]string{"status": "removed", "app": name})
		return
	}
	p.Success(fmt.Sprintf("Removed %s", name))
}

// AcceptedManifests lists the remembered trust decisions.
func (p *Printer) AcceptedManifests(accepted map[string]domain.AcceptedManifest) {
	if p.json {
		p.JSON(accepted)
		return
	}
	if len(accepted) == 0 {
		fmt.Fprintln(p.w, "No manifests have been accepted.")
		return
	}

	urls := make([]string, 0, len(accepted))
	for url := range accepted {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"URL", "Author", "Accepted At"})
	for _, url := range urls {
		rec := accepted[url]
		t.AppendRow(table.Row{url, rec.Author, rec.AcceptedAt})
	}
	t.Render()
}

func formatPorts(ports []domain.PortConfig) string {
	out := ""
	for i, p := range ports {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%d", p.Port)
		if p.Protocol != domain.ProtocolHTTP {
			out += "/" + string(p.Protocol)
		}
	}
	return out
}

func formatList(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}

func formatEndpoints(hostnames []string, ports []domain.AllocatedPort, https bool) string {
	scheme := "http"
	if https {
		scheme = "https"
	}
	out := ""
	for _, h := range hostnames {
		if out != "" {
			out += "\n"
		}
		out += fmt.Sprintf("%s://%s", scheme, h)
	}
	for _, p := range ports {
		if out != "" {
			out += "\n"
		}
		out += fmt.Sprintf("%s://localhost:%d", p.Protocol, p.HostPort)
	}
	return out
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
