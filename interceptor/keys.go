package interceptor

import (
	"strconv"
	"strings"
)

const (
	hookResolveID = "resolveId"
	hookLoad      = "load"
	hookTransform = "transform"
)

// CachedName is the name a wrapped plugin reports to the host.
func CachedName(name string) string {
	return "cached(" + name + ")"
}

// ResolveIDKey keys a resolution by module id and importer, since the same
// specifier can resolve differently per importer. The id is length prefixed
// so that separators inside either part cannot make two pairs share a key.
func ResolveIDKey(id, importer string) string {
	return hookResolveID + ":" + strconv.Itoa(len(id)) + ":" + id + "," + importer
}

func LoadKey(id string) string {
	return hookLoad + ":" + id
}

func TransformKey(id string) string {
	return hookTransform + ":" + id
}

// trimOutDir keeps the part of id after the last occurrence of outDir. Ids
// that do not contain outDir are used as they are.
func trimOutDir(id, outDir string) string {
	if outDir == "" {
		return id
	}

	if idx := strings.LastIndex(id, outDir); idx >= 0 {
		return id[idx+len(outDir):]
	}
	return id
}
