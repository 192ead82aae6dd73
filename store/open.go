// Package store selects and opens one of the expense.Store backends.
package store

import (
	"fmt"

	"github.com/warp/household-ledger/config"
	"github.com/warp/household-ledger/expense"
	"github.com/warp/household-ledger/store/bolt"
	"github.com/warp/household-ledger/store/memory"
	"github.com/warp/household-ledger/store/sqlite"
)

// Handle is an open store plus the function that releases it. Store keeps
// its concrete type, so TxStore and Resetter assertions still see it.
type Handle struct {
	Store expense.Store
	close func() error
}

func (h *Handle) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// Open opens the backend named by kind (see config.Store*). The memory
// backend ignores dbPath and is transactional.
func Open(kind, dbPath string) (*Handle, error) {
	switch kind {
	case config.StoreMemory:
		return &Handle{Store: memory.NewTxMemory()}, nil
	case config.StoreSQLite:
		s, err := sqlite.New(dbPath)
		if err != nil {
			return nil, err
		}
		return &Handle{Store: s, close: s.Close}, nil
	case config.StoreBolt:
		s, err := bolt.New(dbPath)
		if err != nil {
			return nil, err
		}
		return &Handle{Store: s, close: s.Close}, nil
	}
	return nil, fmt.Errorf("unknown store %q", kind)
}
