package bitsvg

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, squareLogo()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestExecute_Directory(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0755))
	writePNG(t, filepath.Join(src, "a.png"))
	writePNG(t, filepath.Join(src, "nested", "b.PNG"))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("skip me"), 0644))

	dst := filepath.Join(t.TempDir(), "out")
	p := newTestProcessor(t)
	err := p.Execute(context.Background(), &Ops{
		Src:      src,
		Dst:      dst,
		PipeName: "-",
		Workers:  2,
		Status:   io.Discard,
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"a.svg", "b.svg"}, names)

	data, err := os.ReadFile(filepath.Join(dst, "a.svg"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<svg"))
}

func TestExecute_DirectoryReportsFailures(t *testing.T) {
	src := t.TempDir()
	writePNG(t, filepath.Join(src, "good.png"))
	require.NoError(t, os.WriteFile(filepath.Join(src, "broken.png"), []byte("garbage"), 0644))

	dst := t.TempDir()
	var status bytes.Buffer
	p := newTestProcessor(t)
	err := p.Execute(context.Background(), &Ops{Src: src, Dst: dst, PipeName: "-", Workers: 1, Status: &status})
	assert.Error(t, err)

	assert.FileExists(t, filepath.Join(dst, "good.svg"))
	assert.NoFileExists(t, filepath.Join(dst, "broken.svg"))
	assert.Contains(t, status.String(), "broken.svg")
}

func TestExecute_SingleFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "logo.png")
	out := filepath.Join(dir, "logo.svg")
	writePNG(t, in)
	// A longer previous file must be truncated.
	require.NoError(t, os.WriteFile(out, bytes.Repeat([]byte("x"), 4096), 0644))

	var status bytes.Buffer
	p := newTestProcessor(t)
	require.NoError(t, p.Execute(context.Background(), &Ops{Src: in, Dst: out, PipeName: "-", Status: &status}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "</svg>"))
	assert.Contains(t, status.String(), "logo.svg")
	assert.Contains(t, status.String(), "Execution time")
}

func TestExecute_URL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, squareLogo()))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "remote.svg")
	p := newTestProcessor(t)
	require.NoError(t, p.Execute(context.Background(), &Ops{Src: srv.URL + "/logo.png", Dst: out, PipeName: "-", Status: io.Discard}))
	assert.FileExists(t, out)
}

func TestExecute_Errors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "logo.png")
	writePNG(t, in)
	p := newTestProcessor(t)
	ctx := context.Background()

	err := p.Execute(ctx, &Ops{Src: in, Dst: filepath.Join(dir, "logo.png.out"), PipeName: "-", Status: io.Discard})
	assert.ErrorContains(t, err, "must be an .svg file")

	err = p.Execute(ctx, &Ops{Src: filepath.Join(dir, "missing.png"), Dst: filepath.Join(dir, "x.svg"), PipeName: "-", Status: io.Discard})
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0644))
	err = p.Execute(ctx, &Ops{Src: bad, Dst: filepath.Join(dir, "bad.svg"), PipeName: "-", Status: io.Discard})
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "bad.svg"))
}

func TestWalkDir_Cancelled(t *testing.T) {
	src := t.TempDir()
	for _, n := range []string{"a.png", "b.png", "c.png"} {
		writePNG(t, filepath.Join(src, n))
	}
	ctx, cancel := context.WithCancel(context.Background())
	paths, errc := walkDir(ctx, src, validExtensions)
	<-paths
	cancel()
	assert.Error(t, <-errc)
}

func TestWorkerCount(t *testing.T) {
	assert.Equal(t, 3, workerCount(3))
	assert.Equal(t, maxWorkers, workerCount(maxWorkers+50))
	assert.Equal(t, min(runtime.NumCPU(), maxWorkers), workerCount(0))
	assert.Equal(t, min(runtime.NumCPU(), maxWorkers), workerCount(-2))
}
