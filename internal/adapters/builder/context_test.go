package builder

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTar(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(body)),
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func readTar(t *testing.T, r io.Reader) map[string]string {
	t.Helper()
	out := make(map[string]string)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		out[hdr.Name] = string(body)
	}
	return out
}

func TestMergeContextFetchedDockerfileWins(t *testing.T) {
	archive := makeTar(t, map[string]string{
		"Dockerfile": "FROM stale",
		"app.py":     "print('hi')",
	})

	merged, err := mergeContext(archive, "FROM fresh")
	require.NoError(t, err)

	entries := readTar(t, merged)
	require.Len(t, entries, 2)
	assert.Equal(t, "FROM fresh", entries["Dockerfile"])
	assert.Equal(t, "print('hi')", entries["app.py"])
}

func TestMergeContextDotSlashDockerfileReplaced(t *testing.T) {
	archive := makeTar(t, map[string]string{
		"./Dockerfile": "FROM stale",
	})

	merged, err := mergeContext(archive, "FROM fresh")
	require.NoError(t, err)

	entries := readTar(t, merged)
	require.Len(t, entries, 1)
	assert.Equal(t, "FROM fresh", entries["Dockerfile"])
}

func TestMergeContextGzipInput(t *testing.T) {
	archive := gzipBytes(t, makeTar(t, map[string]string{
		"src/main.c": "int main(){}",
	}))

	merged, err := mergeContext(archive, "FROM gcc")
	require.NoError(t, err)

	entries := readTar(t, merged)
	assert.Equal(t, "int main(){}", entries["src/main.c"])
	assert.Equal(t, "FROM gcc", entries["Dockerfile"])
}

func TestMergeContextAddsDockerfileWhenAbsent(t *testing.T) {
	archive := makeTar(t, map[string]string{
		"index.php": "<?php phpinfo();",
	})

	merged, err := mergeContext(archive, "FROM php:8")
	require.NoError(t, err)

	entries := readTar(t, merged)
	require.Len(t, entries, 2)
	assert.Equal(t, "FROM php:8", entries["Dockerfile"])
}

func TestMergeContextKeepsNestedDockerfiles(t *testing.T) {
	// Only the top-level Dockerfile is replaced; nested ones are part of
	// the application's own content.
	archive := makeTar(t, map[string]string{
		"sub/Dockerfile": "FROM nested",
	})

	merged, err := mergeContext(archive, "FROM fresh")
	require.NoError(t, err)

	entries := readTar(t, merged)
	assert.Equal(t, "FROM nested", entries["sub/Dockerfile"])
	assert.Equal(t, "FROM fresh", entries["Dockerfile"])
}

func TestMergeContextRejectsGarbage(t *testing.T) {
	_, err := mergeContext([]byte{0x1f, 0x8b, 0x00}, "FROM x")
	assert.Error(t, err)
}

func TestSanitizeRepoURL(t *testing.T) {
	assert.Equal(t,
		"https___github_com_user_vuln-app_git",
		sanitizeRepoURL("https://github.com/user/vuln-app.git"))
}
