// Package version computes the fingerprints that gate cache entries.
//
// A fingerprint is a sha256 digest over the per-file digests of an ordered
// list of dependency files (manifests, lockfiles and configured extras).
// Digesting each file on its own keeps file boundaries in the result: moving
// bytes from one file to the next changes the fingerprint. Item versions
// fold per call content, such as the source handed to a transform hook, into a
// base fingerprint.
package version

import (
	"io"
	"os"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/afero"

	"github.com/saiset-co/sai-hookcache/types"
)

// Hasher reads dependency files through an afero file system.
type Hasher struct {
	fs afero.Fs
}

// NewHasher returns a Hasher over fs, or over the OS file system when fs is nil.
func NewHasher(fs afero.Fs) *Hasher {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Hasher{fs: fs}
}

// Fingerprint digests each file, then digests the hex encoded file digests in
// the given order and returns the hex encoded sum. A missing file is an error.
func (h *Hasher) Fingerprint(files []string) (string, error) {
	digester := digest.Canonical.Digester()

	for _, file := range files {
		fileDigest, err := h.digestFile(file)
		if err != nil {
			return "", err
		}
		_, _ = io.WriteString(digester.Hash(), fileDigest.Encoded())
	}

	return digester.Digest().Encoded(), nil
}

// Existing returns the files that exist, keeping their order.
func (h *Hasher) Existing(files []string) []string {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		ok, err := afero.Exists(h.fs, file)
		if err == nil && ok {
			existing = append(existing, file)
		}
	}
	return existing
}

func (h *Hasher) digestFile(file string) (digest.Digest, error) {
	f, err := h.fs.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return "", types.Errorf(types.ErrDependencyMissing, "file: %s", file)
		}
		return "", types.Errorf(types.ErrDependencyRead, "file: %s: %v", file, err)
	}
	defer f.Close()

	fileDigest, err := digest.Canonical.FromReader(f)
	if err != nil {
		return "", types.Errorf(types.ErrDependencyRead, "file: %s: %v", file, err)
	}

	return fileDigest, nil
}

// ItemVersion derives the version of a single item from the base fingerprint
// and the item's content.
func ItemVersion(base string, content []byte) string {
	digester := digest.Canonical.Digester()
	hash := digester.Hash()
	_, _ = io.WriteString(hash, base)
	_, _ = hash.Write(content)
	return digester.Digest().Encoded()
}
