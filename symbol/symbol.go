// Package symbol implements name interning for the Fur compiler and runtime.
//
// A Symbol is a unique, pointer-stable identity for a name: the Table returns
// the same *Symbol for every request with the same bytes, so name equality
// anywhere downstream is a pointer comparison. Symbols live as long as the
// table that produced them.
package symbol

import (
	"errors"
	"fmt"
)

// MaxNameLength is the longest name a symbol can hold. The length is stored
// in one byte.
const MaxNameLength = 255

// ErrNameTooLong is returned for names longer than MaxNameLength bytes.
var ErrNameTooLong = errors.New("symbol name exceeds 255 bytes")

// Symbol is an interned name. Two symbols from the same Table are equal if
// and only if they are the same pointer.
type Symbol struct {
	// Hash is the FNV-1a hash of the name bytes.
	Hash uint32

	// Name is the interned name. Immutable after construction.
	Name string
}

func (s *Symbol) String() string { return s.Name }

const (
	fnvOffsetBasis = 2166136261
	fnvPrime       = 16777619
)

// hash computes the FNV-1a hash of the name bytes.
func hash(name string) uint32 {
	var result uint32 = fnvOffsetBasis
	for i := 0; i < len(name); i++ {
		result ^= uint32(name[i])
		result *= fnvPrime
	}
	return result
}

const (
	initialCapacity = 64
	maxLoad         = 0.75
)

// Table is an interning table: open addressing with linear probing, doubling
// when the load factor would pass 0.75. A Table is not safe for concurrent
// use; compilation treats it as append-only, and a multi-threaded runtime
// would synchronize around it.
type Table struct {
	items []*Symbol
	load  int
}

// NewTable creates an empty interning table.
func NewTable() *Table {
	return &Table{}
}

// Count returns the number of distinct symbols interned.
func (t *Table) Count() int { return t.load }

// GetSymbol returns the interned symbol for name, installing it on first
// use. It is idempotent: the same bytes always yield the same pointer.
func (t *Table) GetSymbol(name string) (*Symbol, error) {
	if len(name) > MaxNameLength {
		return nil, fmt.Errorf("%w: %q", ErrNameTooLong, name[:16]+"...")
	}

	/*
	 * If the symbol is already interned we never need to expand, because
	 * we're just going to return it. If the table is at the load limit we
	 * expand without checking whether that's actually necessary: probing
	 * first to find out would cost more in the common case than the rare
	 * unneeded expansion does.
	 */
	if t.items == nil {
		t.items = make([]*Symbol, initialCapacity)
	} else if float64(t.load+1)/float64(len(t.items)) > maxLoad {
		t.expand()
	}

	h := hash(name)
	index := int(h) & (len(t.items) - 1)

	for {
		item := t.items[index]
		if item == nil {
			s := &Symbol{Hash: h, Name: name}
			t.items[index] = s
			t.load++
			return s, nil
		}
		if item.Hash == h && item.Name == name {
			return item, nil
		}
		index = (index + 1) & (len(t.items) - 1)
	}
}

// expand doubles the table and rehashes every installed symbol.
func (t *Table) expand() {
	oldItems := t.items
	t.items = make([]*Symbol, len(oldItems)*2)

	for _, item := range oldItems {
		if item == nil {
			continue
		}
		index := int(item.Hash) & (len(t.items) - 1)
		for t.items[index] != nil {
			index = (index + 1) & (len(t.items) - 1)
		}
		t.items[index] = item
	}
}
