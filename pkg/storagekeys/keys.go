package storagekeys

import "strings"

// Prefix marks every key owned by SecureStorage.
const Prefix = "trektoo_"

const (
	// LegacyAuthToken and LegacyAuthUser were written without the prefix by earlier
	// releases and still belong to SecureStorage for Clear/Cleanup/Stats.
	LegacyAuthToken = "authToken"
	LegacyAuthUser  = "authUser"
)

// Namespaced returns the store key for a caller-facing key.
func Namespaced(key string) string {
	return Prefix + key
}

// Owned reports whether a raw store key belongs to the SecureStorage namespace.
func Owned(storeKey string) bool {
	return strings.HasPrefix(storeKey, Prefix) ||
		storeKey == LegacyAuthToken ||
		storeKey == LegacyAuthUser
}

// Filter returns the owned keys of keys, preserving order.
func Filter(keys []string) []string {
	owned := make([]string, 0, len(keys))
	for _, k := range keys {
		if Owned(k) {
			owned = append(owned, k)
		}
	}
	return owned
}
