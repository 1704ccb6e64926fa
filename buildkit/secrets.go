package buildkit

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
)

// BuildKitSecretStore holds secret values for the build session. BuildKit
// receives only the values through the secrets provider; the hash of the
// values is what participates in layer caching.
type BuildKitSecretStore struct {
	secrets map[string]string
}

func NewBuildKitSecretStore() *BuildKitSecretStore {
	return &BuildKitSecretStore{
		secrets: make(map[string]string),
	}
}

func (s *BuildKitSecretStore) GetAllSecrets() map[string][]byte {
	secrets := make(map[string][]byte)
	for k, v := range s.secrets {
		secrets[k] = []byte(v)
	}
	return secrets
}

func (s *BuildKitSecretStore) SetSecret(key, value string) {
	s.secrets[key] = value
}

func (s *BuildKitSecretStore) GetSecret(key string) (string, bool) {
	value, ok := s.secrets[key]
	return value, ok
}

// hashSecretValues digests the secrets in sorted key order so equal sets of
// secrets always produce the same hash. Returns "" when there are none, which
// disables the secret invalidation mounts.
func hashSecretValues(secrets map[string]string) string {
	if len(secrets) == 0 {
		return ""
	}

	h := sha256.New()
	for _, k := range slices.Sorted(maps.Keys(secrets)) {
		h.Write([]byte(k))
		h.Write([]byte("="))
		h.Write([]byte(secrets[k]))
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}
