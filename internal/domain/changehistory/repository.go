package changehistory

import (
	"context"

	"github.com/flexprice/planshift/internal/types"
)

type Repository interface {
	// Append assigns the next sequence, links the entry to the current head of
	// the chain and stores it. Appends are serialized.
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter *types.ChangeHistoryFilter) ([]*Entry, error)
	Count(ctx context.Context, filter *types.ChangeHistoryFilter) (int, error)
	// ListAll returns the whole chain in sequence order
	ListAll(ctx context.Context) ([]*Entry, error)
}
