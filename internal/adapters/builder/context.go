package builder

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
)

// mergeContext rewrites a remote build-context archive so the fetched
// Dockerfile always wins: every entry except an existing Dockerfile is
// re-emitted, then the fetched Dockerfile is appended. The input may be a
// plain tar or gzip-compressed; the output is always plain tar.
func mergeContext(archive []byte, dockerfile string) (io.Reader, error) {
	var src io.Reader = bytes.NewReader(archive)
	if isGzip(archive) {
		gz, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("bad gzip context archive: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	tr := tar.NewReader(src)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bad context archive: %w", err)
		}
		if isDockerfileEntry(hdr.Name) {
			continue
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("failed to copy context entry %q: %w", hdr.Name, err)
		}
		if _, err := io.Copy(tw, tr); err != nil {
			return nil, fmt.Errorf("failed to copy context entry %q: %w", hdr.Name, err)
		}
	}

	hdr := &tar.Header{
		Name: "Dockerfile",
		Mode: 0644,
		Size: int64(len(dockerfile)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("failed to inject Dockerfile: %w", err)
	}
	if _, err := tw.Write([]byte(dockerfile)); err != nil {
		return nil, fmt.Errorf("failed to inject Dockerfile: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close merged context: %w", err)
	}
	return &buf, nil
}

func isDockerfileEntry(name string) bool {
	return strings.TrimPrefix(name, "./") == "Dockerfile"
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}
