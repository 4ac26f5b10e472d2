package payload

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrCacheWrite marks a failed cache store; the accompanying payload is still valid.
var ErrCacheWrite = errors.New("payload cache write failed")

// Current schema version - increment when cacheEntry format changes
const cacheSchemaVersion uint16 = 1

// Key identifies one encoding of one input.
type Key [sha256.Size]byte

// KeyFor hashes the input together with the encoding options.
func KeyFor(data []byte, level, wrap int) (Key, error) {
	l, err := safecast.Conv[uint8](level)
	if err != nil {
		return Key{}, fmt.Errorf("level: %w", err)
	}
	w, err := safecast.Conv[uint32](wrap)
	if err != nil {
		return Key{}, fmt.Errorf("wrap: %w", err)
	}
	h := sha256.New()
	var opts [5]byte
	opts[0] = l
	binary.LittleEndian.PutUint32(opts[1:], w)
	h.Write(opts[:])
	h.Write(data)
	var k Key
	copy(k[:], h.Sum(nil))
	return k, nil
}

// Cache stores encoded payloads on disk so repeated generation for the same
// binary skips compression. Thread-safe for concurrent access.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type cacheEntry struct {
	Schema         uint16
	Level          uint8
	WrapWidth      uint32
	RawSize        int
	CompressedSize int
	Text           string
}

// OpenCache initializes and returns a cache at the standard location.
func OpenCache(app string) (*Cache, error) {
	dir, err := CacheDir(app)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// CacheDir returns $XDG_CACHE_HOME/<app>/payloads (or ~/.cache/...).
func CacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app, "payloads"), nil
}

// Dir returns the directory entries are stored in.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Key) string {
	return filepath.Join(c.dir, hex.EncodeToString(key[:])+".mp")
}

// Put serializes and writes an encoded payload.
func (c *Cache) Put(key Key, level int, enc Encoded) error {
	if c == nil || enc.Source != Embedded {
		return nil
	}
	l, err := safecast.Conv[uint8](level)
	if err != nil {
		return err
	}
	w, err := safecast.Conv[uint32](enc.WrapWidth)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	entry := cacheEntry{
		Schema:         cacheSchemaVersion,
		Level:          l,
		WrapWidth:      w,
		RawSize:        enc.RawSize,
		CompressedSize: enc.CompressedSize,
		Text:           enc.Text,
	}
	if err := msgpack.NewEncoder(f).Encode(&entry); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Get reads an encoded payload. A missing or stale entry is a miss, not an error.
func (c *Cache) Get(key Key) (Encoded, bool, error) {
	if c == nil {
		return Encoded{}, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Encoded{}, false, nil
		}
		return Encoded{}, false, err
	}
	defer f.Close()

	var entry cacheEntry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return Encoded{}, false, err
	}
	if entry.Schema != cacheSchemaVersion {
		return Encoded{}, false, nil
	}
	return Encoded{
		Text:           entry.Text,
		WrapWidth:      int(entry.WrapWidth),
		Source:         Embedded,
		RawSize:        entry.RawSize,
		CompressedSize: entry.CompressedSize,
	}, true, nil
}

// DropAll removes every cached entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// EncodeCached is Encode with a read-through cache. c may be nil. When only
// the store fails, the payload is returned together with ErrCacheWrite.
func EncodeCached(c *Cache, data []byte, level, wrap int) (Encoded, bool, error) {
	if err := CheckOptions(level, wrap); err != nil {
		return Encoded{}, false, err
	}
	if c == nil {
		enc, err := Encode(data, level, wrap)
		return enc, false, err
	}
	key, err := KeyFor(data, level, wrap)
	if err != nil {
		return Encoded{}, false, err
	}
	if enc, ok, err := c.Get(key); err == nil && ok {
		return enc, true, nil
	}
	enc, err := Encode(data, level, wrap)
	if err != nil {
		return Encoded{}, false, err
	}
	if err := c.Put(key, level, enc); err != nil {
		return enc, false, fmt.Errorf("%w: %v", ErrCacheWrite, err)
	}
	return enc, false, nil
}
