package sourcecache

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLCache is the file-backed Cache implementation, used when the
// deployment sets db_name to a path rather than ":memory:". Large raw
// height arrays keep the Go allocator fragmented if held entirely
// in-process; spilling them to SQLite keeps steady-state memory flat at
// the cost of a serialize/deserialize pass per access.
type SQLCache struct {
	db  *sql.DB
	ttl time.Duration

	writeMu sync.Mutex
	writing bool
	rerun   bool
	pending map[Key]Payload

	changed chan []Key
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS source_tiles (
	fingerprint INTEGER PRIMARY KEY,
	value       BLOB NOT NULL,
	timestamp   REAL NOT NULL
)`

// OpenSQLCache opens (creating if absent) a SQLite-backed cache at path.
// Pass ":memory:" for a process-local, non-durable instance.
func OpenSQLCache(path string, ttl time.Duration) (*SQLCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sourcecache: open %q: %w", path, err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sourcecache: create table: %w", err)
	}

	return &SQLCache{
		db:      db,
		ttl:     ttl,
		pending: make(map[Key]Payload),
		changed: make(chan []Key, 64),
	}, nil
}

func encodePayload(p Payload) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return Payload{}, err
	}
	return p, nil
}

func (c *SQLCache) Get(keys []Key) map[Key]Payload {
	out := make(map[Key]Payload, len(keys))
	for _, k := range keys {
		var data []byte
		err := c.db.QueryRow(`SELECT value FROM source_tiles WHERE fingerprint = ?`, k.Fingerprint()).Scan(&data)
		if err != nil {
			continue
		}
		p, err := decodePayload(data)
		if err != nil {
			continue
		}
		out[k] = p
	}
	return out
}

func (c *SQLCache) KnownKeys(keys []Key) map[Key]bool {
	out := make(map[Key]bool, len(keys))
	for _, k := range keys {
		var exists int
		err := c.db.QueryRow(`SELECT 1 FROM source_tiles WHERE fingerprint = ?`, k.Fingerprint()).Scan(&exists)
		out[k] = err == nil
	}
	return out
}

func (c *SQLCache) Add(key Key, payload Payload) {
	c.writeMu.Lock()
	c.pending[key] = payload

	if c.writing {
		c.rerun = true
		c.writeMu.Unlock()
		return
	}
	c.writing = true
	c.writeMu.Unlock()

	c.runBatches()
}

func (c *SQLCache) runBatches() {
	for {
		c.writeMu.Lock()
		batch := c.pending
		c.pending = make(map[Key]Payload)
		c.writeMu.Unlock()

		c.commit(batch)

		c.writeMu.Lock()
		if c.rerun {
			c.rerun = false
			c.writeMu.Unlock()
			continue
		}
		c.writing = false
		c.writeMu.Unlock()
		return
	}
}

func (c *SQLCache) commit(batch map[Key]Payload) {
	if len(batch) == 0 {
		return
	}

	tx, err := c.db.Begin()
	if err != nil {
		return
	}

	now := float64(time.Now().UnixNano()) / 1e9
	newKeys := make([]Key, 0, len(batch))
	for k, p := range batch {
		data, err := encodePayload(p)
		if err != nil {
			continue
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO source_tiles (fingerprint, value, timestamp) VALUES (?, ?, ?)`,
			k.Fingerprint(), data, now); err != nil {
			continue
		}
		newKeys = append(newKeys, k)
	}
	tx.Commit()

	select {
	case c.changed <- newKeys:
	default:
	}
}

func (c *SQLCache) ClearExpired(pinned map[Key]bool) {
	cutoff := float64(time.Now().Add(-c.ttl).UnixNano()) / 1e9

	rows, err := c.db.Query(`SELECT fingerprint FROM source_tiles WHERE timestamp < ?`, cutoff)
	if err != nil {
		return
	}
	var stale []uint64
	for rows.Next() {
		var fp uint64
		if rows.Scan(&fp) == nil {
			stale = append(stale, fp)
		}
	}
	rows.Close()

	pinnedFingerprints := make(map[uint64]bool, len(pinned))
	for k := range pinned {
		pinnedFingerprints[k.Fingerprint()] = true
	}

	for _, fp := range stale {
		if pinnedFingerprints[fp] {
			continue
		}
		c.db.Exec(`DELETE FROM source_tiles WHERE fingerprint = ?`, fp)
	}
}

func (c *SQLCache) Changed() <-chan []Key { return c.changed }

func (c *SQLCache) Len() int {
	var n int
	c.db.QueryRow(`SELECT COUNT(*) FROM source_tiles`).Scan(&n)
	return n
}

func (c *SQLCache) Close() error {
	return c.db.Close()
}

var _ Cache = (*SQLCache)(nil)
