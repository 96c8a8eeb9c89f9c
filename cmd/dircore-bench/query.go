package main

import (
	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/cursor/composite"
	"github.com/KevoDB/dircore/pkg/search"
	"github.com/KevoDB/dircore/pkg/store"
)

// orCursor answers (|(attr=v1)(attr=v2)...) by chaining one equality cursor
// per value. Matches come back grouped by value in the order given.
func orCursor(st store.Store, attr string, values []string, opts ...cursor.Option) (*composite.Cursor[storeEntry], error) {
	members := make([]cursor.Cursor[storeEntry], 0, len(values))
	for _, v := range values {
		c, err := search.NewEqualityCursor(st, attr, v, opts...)
		if err != nil {
			for _, m := range members {
				_ = m.Close()
			}
			return nil, err
		}
		members = append(members, c)
	}
	return composite.New(members, opts...), nil
}
