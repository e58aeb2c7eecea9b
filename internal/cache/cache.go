package cache

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Entry is one cached request/response pair: status, headers and body,
// keyed by request URL within a generation. Overwritten on re-store of the
// same URL in the same generation.
type Entry struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// Key layout: "generation/<name>" marks a generation as existing, and
// "entry/<name>\x00<url>" holds one cached response. The NUL separator
// keeps URL contents from colliding with the generation segment.
const (
	genKeyPrefix   = "generation/"
	entryKeyPrefix = "entry/"
	keySep         = "\x00"
)

func genKey(name string) []byte {
	return []byte(genKeyPrefix + name)
}

func entryKey(generation, url string) []byte {
	return []byte(entryKeyPrefix + generation + keySep + url)
}

func entryPrefix(generation string) []byte {
	return []byte(entryKeyPrefix + generation + keySep)
}

// Cache is the badger-backed response cache shared by every generation.
// The underlying database is opened once and reused for the process
// lifetime.
type Cache struct {
	db     *badger.DB
	prefix string
	now    func() time.Time // swappable in tests
}

// Open opens (or creates) the response cache at dir. prefix namespaces the
// generations this cache manages; an empty prefix uses DefaultPrefix.
func Open(dir, prefix string) (*Cache, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	opts := badger.DefaultOptions(dir).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	return &Cache{db: db, prefix: prefix, now: time.Now}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// CurrentGeneration returns the name of today's generation.
func (c *Cache) CurrentGeneration() string {
	return GenerationName(c.prefix, c.now())
}

// EnsureGeneration marks the named generation as existing.
func (c *Cache) EnsureGeneration(name string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(genKey(name), []byte(c.now().UTC().Format(dateLayout)))
	})
}

// Generations enumerates every known generation name.
func (c *Cache) Generations() ([]string, error) {
	var names []string
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(genKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return names, nil
}

// DropGeneration deletes a generation and every entry stored under it.
func (c *Cache) DropGeneration(name string) error {
	if err := c.db.DropPrefix(entryPrefix(name), genKey(name)); err != nil {
		return fmt.Errorf("drop generation %s: %w", name, err)
	}
	return nil
}

// Match looks up a cached response by exact URL within a generation.
// Returns (nil, nil) on a miss.
func (c *Cache) Match(generation, url string) (*Entry, error) {
	var entry *Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(generation, url))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			entry = &Entry{}
			return json.Unmarshal(val, entry)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", url, err)
	}
	return entry, nil
}

// Put stores a response under the generation, creating the generation if
// needed. An existing entry for the same URL is overwritten.
func (c *Cache) Put(generation, url string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(genKey(generation), []byte(c.now().UTC().Format(dateLayout))); err != nil {
			return err
		}
		return txn.Set(entryKey(generation, url), data)
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", url, err)
	}
	return nil
}
