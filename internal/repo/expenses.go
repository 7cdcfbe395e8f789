package repo

import (
	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
	"github.com/rentora/rentora/internal/remote"
	"github.com/rentora/rentora/internal/store"
)

// Expenses is the expense repository, the plain generic skeleton with no
// dependent rows.
type Expenses struct {
	*Repository[*model.Expense]
}

// NewExpenses wires the expense repository.
func NewExpenses(st *store.Store, client *remote.Client, logger *zap.Logger) *Expenses {
	local := Local[*model.Expense]{
		ListActive:  st.ListActiveExpenses,
		ListTrashed: st.ListTrashedExpenses,
		Get:         st.GetExpense,
		Upsert:      st.UpsertExpense,
		SoftDelete:  st.SoftDeleteExpense,
		HardDelete:  st.HardDeleteExpense,
	}
	rem := Remote[*model.Expense]{
		List:   client.ListExpenses,
		Insert: client.InsertExpense,
		Upsert: client.UpsertExpenses,
		Delete: client.DeleteExpense,
	}
	return &Expenses{
		Repository: New("expenses", store.TableExpenses, st, st.Feed(), local, rem, logger),
	}
}
