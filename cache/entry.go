package cache

import (
	"encoding/json"
	"strings"

	"github.com/saiset-co/sai-hookcache/types"
	"github.com/saiset-co/sai-hookcache/utils"
)

var nullValue = json.RawMessage("null")

const keySeparator = ":"

// validateNamespace rejects namespaces that would make the full key ambiguous.
// Keys may contain the separator; the namespace is always the first segment.
func validateNamespace(namespace string) error {
	if namespace == "" {
		return types.ErrNamespaceEmpty
	}
	if strings.Contains(namespace, keySeparator) {
		return types.Errorf(types.ErrNamespaceInvalid, "namespace %q contains %q", namespace, keySeparator)
	}
	return nil
}

func buildFullKey(prefix, namespace, key string) string {
	if prefix != "" {
		return prefix + keySeparator + namespace + keySeparator + key
	}
	return namespace + keySeparator + key
}

func encodeEntry(version string, value interface{}) ([]byte, error) {
	return utils.Marshal(&types.CacheEntry{Version: version, Value: value})
}

// decodeEntry returns the stored value when the envelope's version matches.
// A record that is not an envelope is reported as corrupt.
func decodeEntry(key string, data []byte, version string) (json.RawMessage, bool, error) {
	var entry types.StoredEntry
	if err := utils.Unmarshal(data, &entry); err != nil {
		return nil, false, types.Wrapf(types.ErrCacheEntryCorrupt, err, "key: %s", key)
	}

	if entry.Version == nil {
		return nil, false, types.Errorf(types.ErrCacheEntryCorrupt, "key: %s: missing version", key)
	}

	if *entry.Version != version {
		return nil, false, nil
	}

	if utils.IsNullJSON(entry.Value) {
		return nullValue, true, nil
	}

	return entry.Value, true, nil
}
