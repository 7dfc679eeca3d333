package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/30Piraten/fmtcf/internal/source"
	"github.com/30Piraten/fmtcf/internal/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapSource is an in-memory Source that counts lookups.
type mapSource struct {
	kind   source.Kind
	values map[string]string
	calls  map[string]int
}

func newMapSource(kind source.Kind, values map[string]string) *mapSource {
	return &mapSource{kind: kind, values: values, calls: map[string]int{}}
}

func (m *mapSource) Kind() source.Kind { return m.kind }

func (m *mapSource) Lookup(_ context.Context, name string) (string, error) {
	m.calls[name]++
	v, ok := m.values[name]
	if !ok {
		return "", source.ErrNotFound
	}
	return v, nil
}

func fixtureSet(env map[string]string) (*source.Set, *mapSource, *mapSource) {
	params := newMapSource(source.ParameterStore, map[string]string{"db-user": "param-user", "shared": "param"})
	secrets := newMapSource(source.SecretStore, map[string]string{"db-pass": "secret-pass", "shared": "secret"})
	envSrc := source.NewEnv(func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	})
	return source.NewSet([]source.Source{params, secrets, envSrc}), params, secrets
}

func TestResolveWithoutTokensIsIdentity(t *testing.T) {
	set, _, _ := fixtureSet(nil)
	r := New(set)

	for _, mode := range []Mode{Tagged, Bare} {
		in := []byte("plain text: with a colon, a :: pair and one _underscore_\n")
		out, err := r.Resolve(context.Background(), mode, in)
		require.NoError(t, err)
		assert.Equal(t, in, out, mode.String())
	}
}

func TestResolveEnv(t *testing.T) {
	set, _, _ := fixtureSet(map[string]string{"FOO": "bar"})
	r := New(set)

	out, err := r.Resolve(context.Background(), Tagged, []byte("value=ENV::FOO"))
	require.NoError(t, err)
	assert.Equal(t, "value=bar", string(out))

	_, err = r.Resolve(context.Background(), Tagged, []byte("value=ENV::MISSING"))
	var lookupErr *source.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "environment", lookupErr.Source)
	assert.Equal(t, "MISSING", lookupErr.Name)
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestResolveRoutesByPrefix(t *testing.T) {
	set, params, secrets := fixtureSet(nil)
	r := New(set)

	out, err := r.Resolve(context.Background(), Tagged,
		[]byte("user=AWS-PARAMETER::db-user pass=AWS-SECRET::db-pass a=AWS-PARAMETER::shared b=AWS-SECRET::shared"))
	require.NoError(t, err)
	assert.Equal(t, "user=param-user pass=secret-pass a=param b=secret", string(out))

	assert.Equal(t, map[string]int{"db-user": 1, "shared": 1}, params.calls)
	assert.Equal(t, map[string]int{"db-pass": 1, "shared": 1}, secrets.calls)
}

func TestResolveUnknownPrefix(t *testing.T) {
	set, params, _ := fixtureSet(nil)
	r := New(set)

	_, err := r.Resolve(context.Background(), Tagged, []byte("a=AWS-PARAMETER::db-user\nb=FOO::bar\n"))
	var unknown *UnknownSourceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "FOO", unknown.Prefix)
	assert.Equal(t, "FOO::bar", unknown.Token)
	assert.Equal(t, 2, unknown.Line)
	assert.Empty(t, params.calls, "no lookups happen once an unknown prefix is seen")
}

func TestResolveLeavesCloudFormationSyntax(t *testing.T) {
	set, _, _ := fixtureSet(map[string]string{"STAGE": "prod"})
	r := New(set)
	in := []byte(`Resources:
  Bucket:
    Type: AWS::S3::Bucket
    Properties:
      BucketName: !Sub "app-ENV::STAGE.${AWS::Region}.${AWS::AccountId}"
  Skill:
    Type: Alexa::ASK::Skill
  Cluster:
    Type: AWSQS::EKS::Cluster
`)

	out, err := r.Resolve(context.Background(), Tagged, in)
	require.NoError(t, err)
	assert.Contains(t, string(out), `BucketName: !Sub "app-prod.${AWS::Region}.${AWS::AccountId}"`)
	assert.Contains(t, string(out), "Type: AWS::S3::Bucket")
	assert.Contains(t, string(out), "Type: Alexa::ASK::Skill")
	assert.Contains(t, string(out), "Type: AWSQS::EKS::Cluster")
}

func TestResolveUnknownPrefixNextToCloudFormationSyntax(t *testing.T) {
	set, _, _ := fixtureSet(nil)
	r := New(set)

	_, err := r.Resolve(context.Background(), Tagged, []byte("region=${AWS::Region}\nx=FOO::bar\n"))
	var unknown *UnknownSourceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "FOO", unknown.Prefix)
	assert.Equal(t, 2, unknown.Line)
}

func TestResolveCachesRepeatedTokens(t *testing.T) {
	set, params, _ := fixtureSet(nil)
	r := New(set)

	out, err := r.Resolve(context.Background(), Tagged,
		[]byte("AWS-PARAMETER::db-user / AWS-PARAMETER::db-user / AWS-PARAMETER::db-user"))
	require.NoError(t, err)
	assert.Equal(t, "param-user / param-user / param-user", string(out))
	assert.Equal(t, 1, params.calls["db-user"])
}

func TestResolveIsDeterministic(t *testing.T) {
	set, _, _ := fixtureSet(map[string]string{"V": "42"})
	r := New(set)
	in := []byte(`{"a": "ENV::V", "b": "AWS-SECRET::db-pass", "c": "AWS-PARAMETER::db-user"}`)

	first, err := r.Resolve(context.Background(), Tagged, in)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), Tagged, in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveDoesNotRescanValues(t *testing.T) {
	set, _, _ := fixtureSet(map[string]string{"A": "ENV::B", "B": "nope"})
	r := New(set)

	out, err := r.Resolve(context.Background(), Tagged, []byte("ENV::A"))
	require.NoError(t, err)
	assert.Equal(t, "ENV::B", string(out))
}

func TestResolveBare(t *testing.T) {
	r := New(nil, WithValues(values.Table{"api_endpoint": "https://x"}))
	in := []byte(`<a href="__api_endpoint__/login">x</a><script>fetch("__api_endpoint__")</script>`)

	out, err := r.Resolve(context.Background(), Bare, in)
	require.NoError(t, err)
	assert.Equal(t, `<a href="https://x/login">x</a><script>fetch("https://x")</script>`, string(out))
}

func TestResolveBareIgnoresTaggedSyntax(t *testing.T) {
	r := New(nil, WithValues(values.Table{"name": "v"}))

	out, err := r.Resolve(context.Background(), Bare, []byte("ENV::FOO __name__"))
	require.NoError(t, err)
	assert.Equal(t, "ENV::FOO v", string(out))
}

func TestResolveBareMissingValue(t *testing.T) {
	r := New(nil, WithValues(values.Table{}))

	_, err := r.Resolve(context.Background(), Bare, []byte("x\n__missing__"))
	var tokenErr *TokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, "__missing__", tokenErr.Token)
	assert.Equal(t, 2, tokenErr.Line)
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestResolveBareIgnoredNames(t *testing.T) {
	r := New(nil,
		WithValues(values.Table{"api_endpoint": "https://x", "name": "site"}),
		WithIgnoredNames(RuntimeNames...))
	in := []byte(`var api="__api_endpoint__";function __webpack_require__(id){return __webpack_modules__[id]}` +
		`var o={}.__proto__;var n="__name__";`)

	out, err := r.Resolve(context.Background(), Bare, in)
	require.NoError(t, err)
	assert.Equal(t, `var api="https://x";function __webpack_require__(id){return __webpack_modules__[id]}`+
		`var o={}.__proto__;var n="site";`, string(out))
}

func TestResolveBareIgnoredNamesStillFailOthers(t *testing.T) {
	r := New(nil, WithIgnoredNames(RuntimeNames...))

	_, err := r.Resolve(context.Background(), Bare, []byte("__webpack_require__ __missing__"))
	var tokenErr *TokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, "__missing__", tokenErr.Token)
}

func TestResolveTaggedWithoutSources(t *testing.T) {
	r := New(nil)

	_, err := r.Resolve(context.Background(), Tagged, []byte("ENV::FOO"))
	assert.ErrorIs(t, err, source.ErrNoSource)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"config.json.fmtcf", "config.json", true},
		{filepath.Join("a", "b", "app.yaml.fmtcf"), filepath.Join("a", "b", "app.yaml"), true},
		{"settings.fmtcf", "settings", true},
		{"config.json", "", false},
		{".fmtcf", "", false},
		{"config.fmtcf.bak", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := OutputPath(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsBinary(t *testing.T) {
	assert.False(t, IsBinary([]byte("hello\n")))
	assert.True(t, IsBinary([]byte{'P', 'K', 0x03, 0x04, 0x00}))

	late := make([]byte, sniffLen+10)
	for i := range late {
		late[i] = 'a'
	}
	late[sniffLen+5] = 0
	assert.False(t, IsBinary(late), "only the first block is inspected")
}

func TestProcessFileTagged(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "config.json.fmtcf")
	require.NoError(t, os.WriteFile(in, []byte(`{"k": "ENV::V"}`), 0o640))

	set, _, _ := fixtureSet(map[string]string{"V": "42"})
	require.NoError(t, New(set).ProcessFile(context.Background(), Tagged, in, ""))

	out, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"k": "42"}`, string(out))

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestProcessFileUnknownPrefixWritesNothing(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "app.conf.fmtcf")
	require.NoError(t, os.WriteFile(in, []byte("a=FOO::bar"), 0o644))

	set, _, _ := fixtureSet(nil)
	err := New(set).ProcessFile(context.Background(), Tagged, in, "")

	var fileErr *FileError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, in, fileErr.Path)
	var unknown *UnknownSourceError
	assert.ErrorAs(t, err, &unknown)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the template remains")
}

func TestProcessFileSkips(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(plain, []byte("{}"), 0o644))
	bin := filepath.Join(dir, "logo.png.fmtcf")
	require.NoError(t, os.WriteFile(bin, []byte{0x89, 'P', 'N', 'G', 0x00}, 0o644))

	r := New(nil)

	var skip *SkipError
	err := r.ProcessFile(context.Background(), Tagged, plain, "")
	require.ErrorAs(t, err, &skip)
	assert.Equal(t, NoTemplateSuffix, skip.Reason)

	err = r.ProcessFile(context.Background(), Tagged, bin, "")
	require.ErrorAs(t, err, &skip)
	assert.Equal(t, Binary, skip.Reason)
}

func TestProcessFileBareInPlaceAndToTarget(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(in, []byte("<p>__api_endpoint__</p>"), 0o644))
	r := New(nil, WithValues(values.Table{"api_endpoint": "https://x"}))

	target := filepath.Join(dir, "dist", "index.html")
	require.NoError(t, r.ProcessFile(context.Background(), Bare, in, target))
	out, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "<p>https://x</p>", string(out))

	require.NoError(t, r.ProcessFile(context.Background(), Bare, in, ""))
	out, err = os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, "<p>https://x</p>", string(out))
}

func TestProcessFileMissingInput(t *testing.T) {
	err := New(nil).ProcessFile(context.Background(), Tagged, filepath.Join(t.TempDir(), "nope.fmtcf"), "")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
