// Package storage persists client state snapshots under fixed keys.
package storage

import (
	"encoding/json"

	"github.com/go-faster/errors"
)

// Keys under which the stores persist their snapshots.
const (
	KeyAuth     = "auth-storage"
	KeyCart     = "cart-storage"
	KeyWishlist = "wishlist-storage"
)

// ErrNotFound is returned by Get when no value is stored under a key.
var ErrNotFound = errors.New("storage key not found")

// Storage is a durable key/value store for serialized snapshots.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// LoadJSON decodes the snapshot stored under key into v. It reports false
// without error when nothing is stored yet.
func LoadJSON(s Storage, key string, v any) (bool, error) {
	data, err := s.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, errors.Wrapf(err, "get %s", key)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "decode %s", key)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(s Storage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := s.Set(key, data); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	return nil
}
