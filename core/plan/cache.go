package plan

const (
	CacheTypeShared = "shared"

	// Locked caches serialize access for package managers that cannot
	// tolerate concurrent writers (e.g. apt)
	CacheTypeLocked = "locked"
)

type Cache struct {
	Directory string `json:"directory,omitempty" jsonschema:"description=The directory to persist between builds"`
	Type      string `json:"type,omitempty" jsonschema:"description=The type of the cache (shared or locked)"`
}

func NewCache(directory string) Cache {
	return Cache{Directory: directory, Type: CacheTypeShared}
}

func NewLockedCache(directory string) Cache {
	return Cache{Directory: directory, Type: CacheTypeLocked}
}
