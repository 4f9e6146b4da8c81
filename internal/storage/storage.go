// Package storage provides the snapshot backends behind the ledger: an
// in-memory map, a directory of JSON files and a SQLite table.
//
// Every backend stores one opaque snapshot per key. Reading a key that was
// never written returns core.ErrNotFound; any other failure wraps
// core.ErrStorageUnavailable.
package storage

import (
	"fmt"
	"regexp"

	"glow/internal/core"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateKey rejects keys that could escape a data directory or be
// confusing as a row key.
func ValidateKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid snapshot key %q", key)
	}
	return nil
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", core.ErrStorageUnavailable, op, key, err)
}
