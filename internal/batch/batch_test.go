package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/30Piraten/fmtcf/internal/resolver"
	"github.com/30Piraten/fmtcf/internal/source"
	"github.com/30Piraten/fmtcf/internal/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func envResolver(env map[string]string) *resolver.Resolver {
	set := source.NewSet([]source.Source{source.NewEnv(func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	})})
	return resolver.New(set)
}

func TestDiscoverTagged(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "config.json.fmtcf"), "{}")
	write(t, filepath.Join(root, "nested", "app.yaml.fmtcf"), "a: b")
	write(t, filepath.Join(root, "readme.md"), "x")
	write(t, filepath.Join(root, ".git", "HEAD.fmtcf"), "x")
	write(t, filepath.Join(root, "node_modules", "pkg", "x.fmtcf"), "x")

	files, err := Discover(root, resolver.Tagged, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "config.json.fmtcf"),
		filepath.Join(root, "nested", "app.yaml.fmtcf"),
	}, files)
}

func TestDiscoverBareInclude(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "index.html"), "x")
	write(t, filepath.Join(root, "js", "app.js"), "x")
	write(t, filepath.Join(root, "img", "logo.png"), "x")

	files, err := Discover(root, resolver.Bare, []string{"*.html", "*.js"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "index.html"),
		filepath.Join(root, "js", "app.js"),
	}, files)

	all, err := Discover(root, resolver.Bare, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = Discover(root, resolver.Bare, []string{"[bad"})
	assert.Error(t, err)
}

func TestRunTaggedContinuesPastFailures(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "good.conf.fmtcf")
	bad := filepath.Join(root, "bad.conf.fmtcf")
	plain := filepath.Join(root, "plain.conf")
	write(t, good, "v=ENV::V")
	write(t, bad, "v=ENV::MISSING")
	write(t, plain, "v=1")

	d := New(envResolver(map[string]string{"V": "42"}), Options{Mode: resolver.Tagged, Workers: 2}, nil)
	report, err := d.Run(context.Background(), []string{good, bad, plain})
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrNotFound)
	assert.Contains(t, err.Error(), bad)

	assert.Equal(t, []Output{{Input: good, Output: filepath.Join(root, "good.conf")}}, report.Processed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, bad, report.Failed[0].Path)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, resolver.NoTemplateSuffix, report.Skipped[0].Reason)

	out, err := os.ReadFile(filepath.Join(root, "good.conf"))
	require.NoError(t, err)
	assert.Equal(t, "v=42", string(out))
	_, err = os.Stat(filepath.Join(root, "bad.conf"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunFailFastStopsScheduling(t *testing.T) {
	root := t.TempDir()
	var files []string
	files = append(files, filepath.Join(root, "a-bad.fmtcf"))
	write(t, files[0], "ENV::MISSING")
	for _, name := range []string{"b.fmtcf", "c.fmtcf", "d.fmtcf"} {
		p := filepath.Join(root, name)
		write(t, p, "ENV::V")
		files = append(files, p)
	}

	d := New(envResolver(map[string]string{"V": "1"}), Options{Mode: resolver.Tagged, Workers: 1, FailFast: true}, nil)
	report, err := d.Run(context.Background(), files)
	require.Error(t, err)

	require.Len(t, report.Failed, 1)
	assert.Empty(t, report.Processed)
	assert.Equal(t, files[1:], report.Cancelled)
}

func TestRunAllSucceed(t *testing.T) {
	root := t.TempDir()
	var files []string
	for _, name := range []string{"a.fmtcf", "b.fmtcf", "c.fmtcf", "d.fmtcf", "e.fmtcf"} {
		p := filepath.Join(root, name)
		write(t, p, "x=ENV::V")
		files = append(files, p)
	}

	d := New(envResolver(map[string]string{"V": "ok"}), Options{Mode: resolver.Tagged, Workers: 3}, nil)
	report, err := d.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Len(t, report.Processed, len(files))
	assert.Nil(t, report.Err())
}

func TestRunBareToOutDir(t *testing.T) {
	root := t.TempDir()
	outDir := t.TempDir()
	index := filepath.Join(root, "index.html")
	app := filepath.Join(root, "js", "app.js")
	logo := filepath.Join(root, "logo.png")
	write(t, index, "<a href=\"__api_endpoint__\">__api_endpoint__</a>")
	write(t, app, "const api = '__api_endpoint__';")
	write(t, logo, "\x89PNG\x00\x00")

	r := resolver.New(nil, resolver.WithValues(values.Table{"api_endpoint": "https://x"}))
	d := New(r, Options{Mode: resolver.Bare, Root: root, OutDir: outDir}, nil)
	report, err := d.Run(context.Background(), []string{index, app, logo})
	require.NoError(t, err)

	assert.Equal(t, []Output{
		{Input: index, Output: filepath.Join(outDir, "index.html")},
		{Input: app, Output: filepath.Join(outDir, "js", "app.js")},
	}, report.Processed)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, resolver.Binary, report.Skipped[0].Reason)

	out, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<a href=\"https://x\">https://x</a>", string(out))

	orig, err := os.ReadFile(index)
	require.NoError(t, err)
	assert.Contains(t, string(orig), "__api_endpoint__", "input untouched when writing to a target")
}

func TestRunOutsideRoot(t *testing.T) {
	root := t.TempDir()
	other := filepath.Join(t.TempDir(), "x.html")
	write(t, other, "x")

	r := resolver.New(nil)
	d := New(r, Options{Mode: resolver.Bare, Root: root, OutDir: t.TempDir()}, nil)
	report, err := d.Run(context.Background(), []string{other})
	require.Error(t, err)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, other, report.Failed[0].Path)
}

func TestRunCancelledContext(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "a.fmtcf")
	write(t, p, "ENV::V")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(envResolver(map[string]string{"V": "1"}), Options{Mode: resolver.Tagged}, nil)
	report, err := d.Run(ctx, []string{p})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{p}, report.Cancelled)
}
