package storage

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"aihttpanalyzer/internal/core"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const (
	preferencesRedisKey = "aihttpanalyzer:" + core.PreferenceNamespace
	redisOpTimeout      = 3 * time.Second
)

// MemoryStorage keeps preferences in process memory
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]any)}
}

func (ms *MemoryStorage) GetBool(key string, def bool) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if v, ok := ms.values[key].(bool); ok {
		return v
	}
	return def
}

func (ms *MemoryStorage) GetString(key, def string) string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if v, ok := ms.values[key].(string); ok {
		return v
	}
	return def
}

func (ms *MemoryStorage) PutBool(key string, value bool) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.values[key] = value
	return nil
}

func (ms *MemoryStorage) PutString(key, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.values[key] = value
	return nil
}

func (ms *MemoryStorage) Close() error {
	return nil
}

// FileStorage implements persistence using a JSON file, one object per namespace
type FileStorage struct {
	filePath  string
	namespace string
	mu        sync.Mutex
}

func NewFileStorage(filePath string) *FileStorage {
	if filePath == "" {
		filePath = core.DefaultSettingsFilePath
	}
	return &FileStorage{filePath: filePath, namespace: core.PreferenceNamespace}
}

// readAll returns every namespace in the file. A missing file is an empty document.
func (fs *FileStorage) readAll() (map[string]map[string]any, error) {
	doc := make(map[string]map[string]any)

	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return doc, nil
	}

	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (fs *FileStorage) get(key string) (any, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readAll()
	if err != nil {
		return nil, false
	}
	v, ok := doc[fs.namespace][key]
	return v, ok
}

func (fs *FileStorage) put(key string, value any) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readAll()
	if err != nil {
		return err
	}
	if doc[fs.namespace] == nil {
		doc[fs.namespace] = make(map[string]any)
	}
	doc[fs.namespace][key] = value

	data, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fs.filePath, data, core.FilePermissionReadWrite)
}

func (fs *FileStorage) GetBool(key string, def bool) bool {
	if v, ok := fs.get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func (fs *FileStorage) GetString(key, def string) string {
	if v, ok := fs.get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (fs *FileStorage) PutBool(key string, value bool) error {
	return fs.put(key, value)
}

func (fs *FileStorage) PutString(key, value string) error {
	return fs.put(key, value)
}

func (fs *FileStorage) Close() error {
	return nil
}

// RedisStorage implements persistence using a Redis hash
type RedisStorage struct {
	client *redis.Client
	key    string
}

// RedisStorageConfig Redis storage config
type RedisStorageConfig struct {
	URL string
	Key string
}

func NewRedisStorage(config RedisStorageConfig) (*RedisStorage, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, err
	}

	key := config.Key
	if key == "" {
		key = preferencesRedisKey
	}

	return &RedisStorage{client: client, key: key}, nil
}

func (rs *RedisStorage) hget(field string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := rs.client.HGet(ctx, rs.key, field).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (rs *RedisStorage) hset(field, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return rs.client.HSet(ctx, rs.key, field, value).Err()
}

func (rs *RedisStorage) GetBool(key string, def bool) bool {
	val, ok := rs.hget(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

func (rs *RedisStorage) GetString(key, def string) string {
	if val, ok := rs.hget(key); ok {
		return val
	}
	return def
}

func (rs *RedisStorage) PutBool(key string, value bool) error {
	return rs.hset(key, strconv.FormatBool(value))
}

func (rs *RedisStorage) PutString(key, value string) error {
	return rs.hset(key, value)
}

func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}

// InitStorage picks Redis when REDIS_URL is set, otherwise the settings file
func InitStorage(settingsPath string, logger core.Logger) (core.PreferenceStore, error) {
	redisURL := os.Getenv("REDIS_URL")

	if redisURL != "" {
		redisStorage, err := NewRedisStorage(RedisStorageConfig{
			URL: redisURL,
			Key: preferencesRedisKey,
		})
		if err != nil {
			logger.Warn("Failed to initialize Redis storage: %v, falling back to file storage", err)
			return NewFileStorage(settingsPath), nil
		}
		logger.Info("Using Redis storage")
		return redisStorage, nil
	}

	fileStorage := NewFileStorage(settingsPath)
	logger.Info("Using file storage: %s", fileStorage.filePath)
	return fileStorage, nil
}
