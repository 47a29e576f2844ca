package build

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/pkgmodel"
)

func TestSourceBuilderCollectLocal(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.c"), []byte("int main(){return 0;}"), 0o644))

	work := t.TempDir()
	b := &SourceBuilder{Objects: graph.NewMemoryStore(), Payloads: newTestPayloadStore()}
	sources := []pkgmodel.SourceEntry{{Kind: pkgmodel.SourceLocal, Local: src}}

	require.NoError(t, b.Collect(context.Background(), sources, work))

	got, err := os.ReadFile(filepath.Join(work, "main.c"))
	require.NoError(t, err)
	assert.Equal(t, "int main(){return 0;}", string(got))
}

func TestSourceBuilderCollectLocalRespectsSubdir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0o644))

	work := t.TempDir()
	b := &SourceBuilder{Objects: graph.NewMemoryStore(), Payloads: newTestPayloadStore()}
	sources := []pkgmodel.SourceEntry{{Kind: pkgmodel.SourceLocal, Local: src, Subdir: "vendor/a"}}

	require.NoError(t, b.Collect(context.Background(), sources, work))

	got, err := os.ReadFile(filepath.Join(work, "vendor", "a", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
}

func TestSourceBuilderCollectTarGz(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := []byte("package main\n")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "hello.go", Mode: 0o644, Size: int64(len(content))}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	archive := filepath.Join(t.TempDir(), "src.tar.gz")
	require.NoError(t, os.WriteFile(archive, buf.Bytes(), 0o644))

	work := t.TempDir()
	b := &SourceBuilder{Objects: graph.NewMemoryStore(), Payloads: newTestPayloadStore()}
	sources := []pkgmodel.SourceEntry{{Kind: pkgmodel.SourceTar, Tar: archive}}

	require.NoError(t, b.Collect(context.Background(), sources, work))

	got, err := os.ReadFile(filepath.Join(work, "hello.go"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSourceBuilderCollectScript(t *testing.T) {
	work := t.TempDir()
	b := &SourceBuilder{Objects: graph.NewMemoryStore(), Payloads: newTestPayloadStore()}
	sources := []pkgmodel.SourceEntry{{Kind: pkgmodel.SourceScript, Script: []string{"echo generated > note.txt"}}}

	require.NoError(t, b.Collect(context.Background(), sources, work))

	got, err := os.ReadFile(filepath.Join(work, "note.txt"))
	require.NoError(t, err)
	assert.Equal(t, "generated\n", string(got))
}

func TestSourceBuilderCollectUnknownKind(t *testing.T) {
	work := t.TempDir()
	b := &SourceBuilder{Objects: graph.NewMemoryStore(), Payloads: newTestPayloadStore()}
	sources := []pkgmodel.SourceEntry{{Kind: pkgmodel.SourceKind(99)}}

	err := b.Collect(context.Background(), sources, work)
	assert.Error(t, err)
}

func TestSourceBuilderCommitProducesLayer(t *testing.T) {
	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, "file.txt"), []byte("data"), 0o644))

	objects := graph.NewMemoryStore()
	b := &SourceBuilder{Objects: objects, Payloads: newTestPayloadStore()}

	d, err := b.Commit(work)
	require.NoError(t, err)

	obj, err := objects.ReadObject(d)
	require.NoError(t, err)
	_, ok := obj.(graph.Layer)
	assert.True(t, ok)
}
