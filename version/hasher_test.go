package version

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-hookcache/types"
)

func newFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestFingerprint(t *testing.T) {
	fs := newFs(t, map[string]string{
		"package.json":      `{"name":"app"}`,
		"package-lock.json": `{"lockfileVersion":3}`,
	})
	h := NewHasher(fs)

	t.Run("matches sha256 of per-file digests", func(t *testing.T) {
		got, err := h.Fingerprint([]string{"package.json", "package-lock.json"})
		require.NoError(t, err)

		sum := sha256.Sum256([]byte(sha256Hex(`{"name":"app"}`) + sha256Hex(`{"lockfileVersion":3}`)))
		assert.Equal(t, hex.EncodeToString(sum[:]), got)
		assert.Len(t, got, 64)
	})

	t.Run("order matters", func(t *testing.T) {
		forward, err := h.Fingerprint([]string{"package.json", "package-lock.json"})
		require.NoError(t, err)
		backward, err := h.Fingerprint([]string{"package-lock.json", "package.json"})
		require.NoError(t, err)
		assert.NotEqual(t, forward, backward)
	})

	t.Run("idempotent", func(t *testing.T) {
		first, err := h.Fingerprint([]string{"package.json", "package-lock.json"})
		require.NoError(t, err)
		second, err := h.Fingerprint([]string{"package.json", "package-lock.json"})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("one byte change changes the hash", func(t *testing.T) {
		before, err := h.Fingerprint([]string{"package.json"})
		require.NoError(t, err)

		require.NoError(t, afero.WriteFile(fs, "package.json", []byte(`{"name":"apq"}`), 0o644))
		defer func() {
			_ = afero.WriteFile(fs, "package.json", []byte(`{"name":"app"}`), 0o644)
		}()

		after, err := h.Fingerprint([]string{"package.json"})
		require.NoError(t, err)
		assert.NotEqual(t, before, after)
	})

	t.Run("empty list", func(t *testing.T) {
		got, err := h.Fingerprint(nil)
		require.NoError(t, err)

		sum := sha256.Sum256(nil)
		assert.Equal(t, hex.EncodeToString(sum[:]), got)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := h.Fingerprint([]string{"package.json", "yarn.lock"})
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrDependencyMissing)
		assert.Contains(t, err.Error(), "yarn.lock")
	})
}

func TestFingerprintKeepsFileBoundaries(t *testing.T) {
	before, err := NewHasher(newFs(t, map[string]string{
		"package.json": `{"a":1}x`,
		"yarn.lock":    "",
	})).Fingerprint([]string{"package.json", "yarn.lock"})
	require.NoError(t, err)

	after, err := NewHasher(newFs(t, map[string]string{
		"package.json": `{"a":1}`,
		"yarn.lock":    "x",
	})).Fingerprint([]string{"package.json", "yarn.lock"})
	require.NoError(t, err)

	assert.NotEqual(t, before, after, "moving a byte into the next file changes the hash")
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestExisting(t *testing.T) {
	fs := newFs(t, map[string]string{
		"package.json": "{}",
		"yarn.lock":    "# yarn",
	})
	h := NewHasher(fs)

	got := h.Existing([]string{"package.json", "package-lock.json", "yarn.lock"})
	assert.Equal(t, []string{"package.json", "yarn.lock"}, got)
	assert.Empty(t, h.Existing([]string{"missing"}))
}

func TestItemVersion(t *testing.T) {
	base := "0f1e2d3c"

	sum := sha256.Sum256([]byte(base + "const a = 1"))
	assert.Equal(t, hex.EncodeToString(sum[:]), ItemVersion(base, []byte("const a = 1")))

	assert.Equal(t, ItemVersion(base, []byte("abc")), ItemVersion(base, []byte("abc")))
	assert.NotEqual(t, ItemVersion(base, []byte("abc")), ItemVersion(base, []byte("abd")))
	assert.NotEqual(t, ItemVersion(base, []byte("abc")), ItemVersion("0f1e2d3d", []byte("abc")))
}
