package config

type StorageConfig interface {
	GetStorageBackend() string
	GetSQLitePath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetStorageKeyPrefix() string
	GetSealKey() string
}

type Storage struct {
	file *fileConfig
}

var _ StorageConfig = Storage{}

// GetStorageBackend is one of "memory", "sqlite" or "redis".
func (s Storage) GetStorageBackend() string {
	return lookup("IMAGEN_STORAGE", s.file.Storage.Backend, "sqlite")
}

func (s Storage) GetSQLitePath() string {
	return lookup("IMAGEN_SQLITE_PATH", s.file.Storage.SQLitePath, EnvVars(s).GetDataFolder()+"/session.db")
}

func (s Storage) GetRedisAddr() string {
	return lookup("IMAGEN_REDIS_ADDR", s.file.Storage.RedisAddr, "localhost:6379")
}

func (s Storage) GetRedisPassword() string {
	return lookup("IMAGEN_REDIS_PASSWORD", s.file.Storage.RedisPassword, "")
}

func (s Storage) GetRedisDB() int {
	return lookupInt("IMAGEN_REDIS_DB", s.file.Storage.RedisDB, 0)
}

func (s Storage) GetStorageKeyPrefix() string {
	return lookup("IMAGEN_STORAGE_PREFIX", s.file.Storage.KeyPrefix, "imagen")
}

// GetSealKey enables at-rest sealing of persisted values when non-empty.
func (s Storage) GetSealKey() string {
	return lookup("IMAGEN_SEAL_KEY", s.file.Storage.SealKey, "")
}
