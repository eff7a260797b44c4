package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemResolver_ReadMain(t *testing.T) {
	r := NewMemResolver(map[string][]byte{"main.til": []byte("x := 1")})
	data, err := r.ReadMain("main.til")
	require.NoError(t, err)
	assert.Equal(t, "x := 1", string(data))
}

func TestMemResolver_ReadMainMissingFile(t *testing.T) {
	r := NewMemResolver(map[string][]byte{})
	_, err := r.ReadMain("missing.til")
	assert.Error(t, err)
}

func TestMemResolver_ResolveRelativeToImportingFile(t *testing.T) {
	r := NewMemResolver(map[string][]byte{
		"lib/helper.til": []byte("y := 2"),
	})
	path, data, err := r.Resolve("lib/main.til", "helper")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("lib", "helper.til"), path)
	assert.Equal(t, "y := 2", string(data))
}

func TestMemResolver_ResolveUnderLibraryRoot(t *testing.T) {
	r := NewMemResolver(map[string][]byte{
		"src/foo/bar.til": []byte("z := 3"),
	})
	path, _, err := r.Resolve("main.til", "foo/bar")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("src", "foo", "bar.til"), path)
}

func TestMemResolver_ResolveUnresolvableImportIsError(t *testing.T) {
	r := NewMemResolver(map[string][]byte{})
	_, _, err := r.Resolve("main.til", "nonexistent")
	assert.Error(t, err)
}

func TestOSResolver_ReadMain(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.til")
	require.NoError(t, os.WriteFile(mainPath, []byte("x := 1"), 0644))

	r := NewOSResolver(dir)
	data, err := r.ReadMain(mainPath)
	require.NoError(t, err)
	assert.Equal(t, "x := 1", string(data))
}

func TestOSResolver_ResolveRelativeToImportingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helper.til"), []byte("y := 2"), 0644))

	r := NewOSResolver(dir)
	mainPath := filepath.Join(dir, "main.til")
	path, data, err := r.Resolve(mainPath, "helper")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "helper.til"), path)
	assert.Equal(t, "y := 2", string(data))
}

func TestOSResolver_ResolveFallsBackToLibraryRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "foo"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "foo", "bar.til"), []byte("z := 3"), 0644))

	r := NewOSResolver(dir)
	mainPath := filepath.Join(dir, "main.til")
	path, _, err := r.Resolve(mainPath, "foo/bar")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "src", "foo", "bar.til"), path)
}

func TestOSResolver_ResolveUnresolvableImportIsError(t *testing.T) {
	dir := t.TempDir()
	r := NewOSResolver(dir)
	_, _, err := r.Resolve(filepath.Join(dir, "main.til"), "nonexistent")
	assert.Error(t, err)
}

// countingResolver counts Resolve calls so the cache can be verified to
// short-circuit repeated lookups.
type countingResolver struct {
	inner Resolver
	calls int
}

func (c *countingResolver) ReadMain(path string) ([]byte, error) { return c.inner.ReadMain(path) }
func (c *countingResolver) Resolve(fromFile, importPath string) (string, []byte, error) {
	c.calls++
	return c.inner.Resolve(fromFile, importPath)
}

func TestCachedResolver_CachesRepeatedResolves(t *testing.T) {
	mem := NewMemResolver(map[string][]byte{"helper.til": []byte("y := 2")})
	counting := &countingResolver{inner: mem}
	cached := NewCachedResolver(counting, 8)

	_, _, err := cached.Resolve("main.til", "helper")
	require.NoError(t, err)
	_, _, err = cached.Resolve("main.til", "helper")
	require.NoError(t, err)

	assert.Equal(t, 1, counting.calls)
}

func TestCachedResolver_PropagatesResolveErrorsWithoutCaching(t *testing.T) {
	mem := NewMemResolver(map[string][]byte{})
	counting := &countingResolver{inner: mem}
	cached := NewCachedResolver(counting, 8)

	_, _, err := cached.Resolve("main.til", "missing")
	assert.Error(t, err)
	assert.Equal(t, 1, counting.calls)
}

func TestCachedResolver_ReadMainDelegatesToInner(t *testing.T) {
	mem := NewMemResolver(map[string][]byte{"main.til": []byte("x := 1")})
	cached := NewCachedResolver(mem, 8)
	data, err := cached.ReadMain("main.til")
	require.NoError(t, err)
	assert.Equal(t, "x := 1", string(data))
}

func TestCachedResolver_EvictsLeastRecentlyUsedPastCapacity(t *testing.T) {
	mem := NewMemResolver(map[string][]byte{
		"a.til": []byte("a"),
		"b.til": []byte("b"),
		"c.til": []byte("c"),
	})
	counting := &countingResolver{inner: mem}
	cached := NewCachedResolver(counting, 2)

	_, _, _ = cached.Resolve("main.til", "a")
	_, _, _ = cached.Resolve("main.til", "b")
	_, _, _ = cached.Resolve("main.til", "c") // evicts "a"
	counting.calls = 0

	_, _, _ = cached.Resolve("main.til", "a") // cache miss, re-resolved
	assert.Equal(t, 1, counting.calls)
}
