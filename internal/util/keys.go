package util

import "strings"

const (
	keyScheme = "task"
	keySep    = ":"
)

// TaskKey maps a task id into the backend keyspace owned by the store:
// "task:<ns>:<id>". The mapping is deterministic and collision-free as long
// as the namespace itself contains no separator, which ValidNamespace
// enforces at construction time.
func TaskKey(ns, id string) string {
	return keyScheme + keySep + ns + keySep + id
}

// NamespacePrefix is the prefix shared by every key TaskKey produces for ns.
// Backend prefix scans with this prefix enumerate exactly the namespace.
func NamespacePrefix(ns string) string {
	return keyScheme + keySep + ns + keySep
}

// TaskID recovers the task id from a backend key produced by TaskKey.
// Returns false for keys outside the namespace.
func TaskID(ns, key string) (string, bool) {
	p := NamespacePrefix(ns)
	if !strings.HasPrefix(key, p) {
		return "", false
	}
	return key[len(p):], true
}

// ValidNamespace rejects namespaces that would break the key scheme.
func ValidNamespace(ns string) bool {
	return ns != "" && !strings.Contains(ns, keySep)
}
