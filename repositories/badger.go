package repositories

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

// OpenBadger opens the embedded store. An empty path keeps everything in memory.
func OpenBadger(path string) (*badger.DB, error) {
	options := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		options = options.WithInMemory(true)
	}
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at '%s': %w", path, err)
	}
	return db, nil
}

// Key layout. Locks hold the id of the active record for a canonical pair;
// idx entries are empty values whose key carries user and record ids.
const (
	userPrefix      = "user:"
	matchPrefix     = "match:"
	requestPrefix   = "request:"
	roomPrefix      = "room:"
	messagePrefix   = "msg:"
	postPrefix      = "post:"
	postIndexPrefix = "postidx:"
	replyPrefix     = "reply:"

	matchLockPrefix   = "lock:match:"
	requestLockPrefix = "lock:request:"
	roomLockPrefix    = "lock:room:"

	matchUserIndexPrefix   = "idx:match:"
	requestUserIndexPrefix = "idx:request:"
	roomUserIndexPrefix    = "idx:room:"
)

// userIndexScan is the scan prefix of one user's idx entries. The length
// prefix keeps a user id from being a prefix of another user's entries.
func userIndexScan(prefix, userID string) string {
	return prefix + strconv.Itoa(len(userID)) + ":" + userID + ":"
}

func userIndexKey(prefix, userID, recordID string) []byte {
	return []byte(userIndexScan(prefix, userID) + recordID)
}

func getRecord[T any](txn *badger.Txn, key string) (*T, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var record T
	if err := item.Value(func(value []byte) error {
		return unmarshal(value, &record)
	}); err != nil {
		return nil, fmt.Errorf("failed to decode '%s': %w", key, err)
	}
	return &record, nil
}

func putRecord(txn *badger.Txn, key string, record any) error {
	bytes, err := marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode '%s': %w", key, err)
	}
	return txn.Set([]byte(key), bytes)
}

// getLock returns the record id held by a pair lock, or "" when the pair is free.
func getLock(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// releaseLock deletes a pair lock only while it still points at recordID.
func releaseLock(txn *badger.Txn, key, recordID string) error {
	holder, err := getLock(txn, key)
	if err != nil {
		return err
	}
	if holder != recordID {
		return nil
	}
	return txn.Delete([]byte(key))
}

// reacquireLock takes the pair lock back for recordID when a terminal record
// becomes active again. It fails with ErrDuplicate if another record holds it.
func reacquireLock(txn *badger.Txn, key, recordID string) error {
	holder, err := getLock(txn, key)
	if err != nil {
		return err
	}
	if holder != "" && holder != recordID {
		return ErrDuplicate
	}
	return txn.Set([]byte(key), []byte(recordID))
}

// scanKeySuffixes returns what follows prefix in every matching key.
func scanKeySuffixes(txn *badger.Txn, prefix string) []string {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	options.Prefix = []byte(prefix)
	it := txn.NewIterator(options)
	defer it.Close()

	var suffixes []string
	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		suffixes = append(suffixes, string(it.Item().Key()[len(prefix):]))
	}
	return suffixes
}

// scanValues collects raw values under prefix. Reverse walks newest-first for
// time-sorted keys. A limit of zero or less means no limit.
func scanValues(txn *badger.Txn, prefix string, reverse bool, limit int) ([][]byte, error) {
	options := badger.DefaultIteratorOptions
	options.Reverse = reverse
	options.Prefix = []byte(prefix)
	it := txn.NewIterator(options)
	defer it.Close()

	seekKey := []byte(prefix)
	if reverse {
		seekKey = append([]byte(prefix), 0xFF)
	}

	var values [][]byte
	for it.Seek(seekKey); it.ValidForPrefix([]byte(prefix)); it.Next() {
		if limit > 0 && len(values) == limit {
			break
		}
		value, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

func decodeAll[T any](values [][]byte) ([]T, error) {
	records := make([]T, 0, len(values))
	for _, value := range values {
		var record T
		if err := unmarshal(value, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// commitErr turns a badger write conflict into the domain error the caller expects.
func commitErr(err, onConflict error) error {
	if errors.Is(err, badger.ErrConflict) {
		return onConflict
	}
	return err
}

// compensationAttempts bounds retries of idempotent cleanup writes that lose a conflict.
const compensationAttempts = 3

func updateWithRetry(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < compensationAttempts; attempt++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
