// Package bbolt implements ports.TokenCache using bbolt (embedded B+ tree).
// One bucket per tokenization mode; keys are
// "{lang}:{grammar}:{sha256(source)}" and
// values are the 12-byte token records, so a cached list decodes to exactly
// what the tokenizer returned. Writes are transactional: a crash mid-write
// cannot corrupt previously committed entries.
package bbolt

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
	"gitlab.com/tozd/go/errors"

	"github.com/corey/tsgateway/internal/domain/token"
	"github.com/corey/tsgateway/internal/ports"
)

var _ ports.TokenCache = (*Store)(nil)

// Store implements ports.TokenCache backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// cacheKey is "{lang}:{grammar}:{hex sha256 of source}".
func cacheKey(lang int, grammar string, src []byte) []byte {
	sum := sha256.Sum256(src)
	key := make([]byte, 0, 8+len(grammar)+2+hex.EncodedLen(len(sum)))
	key = strconv.AppendInt(key, int64(lang), 10)
	key = append(key, ':')
	key = append(key, grammar...)
	key = append(key, ':')
	return hex.AppendEncode(key, sum[:])
}

// Get returns the cached tokens for src, or ok=false on a miss.
func (s *Store) Get(mode string, lang int, grammar string, src []byte) ([]token.Token, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(mode))
		if b == nil {
			return nil
		}
		if v := b.Get(cacheKey(lang, grammar, src)); v != nil {
			// bbolt values are only valid inside the transaction.
			data = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.Errorf("cache get: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}
	tokens, err := token.Decode(data)
	if err != nil {
		return nil, false, errors.Errorf("cache entry %s/%d: %w", mode, lang, err)
	}
	return tokens, true, nil
}

// Put stores tokens for src, replacing any previous entry.
func (s *Store) Put(mode string, lang int, grammar string, src []byte, tokens []token.Token) error {
	value := token.Encode(tokens)
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(mode))
		if err != nil {
			return err
		}
		return b.Put(cacheKey(lang, grammar, src), value)
	})
}

// Len returns the number of entries cached for mode.
func (s *Store) Len(mode string) (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(mode)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// Purge drops every cached entry for all modes.
func (s *Store) Purge() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var names [][]byte
		if err := tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, append([]byte{}, name...))
			return nil
		}); err != nil {
			return err
		}
		for _, name := range names {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}
