package memory_test

import (
	"testing"

	"github.com/warp/household-ledger/expense"
	"github.com/warp/household-ledger/expense/storetest"
	"github.com/warp/household-ledger/store/memory"
)

func TestMemory_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) expense.Store { return memory.NewMemory() })
}

func TestTxMemory_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) expense.Store { return memory.NewTxMemory() })
	storetest.RunTx(t, func(t *testing.T) expense.TxStore { return memory.NewTxMemory() })
}
