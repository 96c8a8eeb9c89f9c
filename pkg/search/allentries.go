package search

import (
	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/entry"
	"github.com/KevoDB/dircore/pkg/store"
)

// NewAllEntriesCursor returns a cursor over every entry of st in master table
// order. It is the base cursor for searches no index can narrow.
func NewAllEntriesCursor(st store.Store, opts ...cursor.Option) (*EntryCursor[entry.ID], error) {
	o := cursor.NewOptions(opts...)
	scan, err := st.MasterScan(
		cursor.WithLogger(o.Logger),
		cursor.WithMetrics(o.Metrics),
		cursor.WithContext(o.Context),
	)
	if err != nil {
		return nil, err
	}
	return NewEntryCursor[entry.ID](scan, st, opts...), nil
}
