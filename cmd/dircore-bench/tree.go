package main

import (
	"fmt"

	"github.com/KevoDB/dircore/pkg/entry"
	"github.com/KevoDB/dircore/pkg/store"
	"github.com/KevoDB/dircore/pkg/store/memstore"
)

type (
	storeEntry      = store.IndexEntry[string]
	descendantEntry = store.IndexEntry[entry.ID]
)

const baseDN = "dc=bench"

// benchTree records the ids of a generated directory tree.
type benchTree struct {
	root   entry.ID
	groups []entry.ID
	users  []entry.ID
}

// buildTree adds a context entry, fanout groups below it and n users spread
// over the groups.
func buildTree(st *memstore.Store, n, fanout int) (*benchTree, error) {
	if fanout < 1 {
		fanout = 1
	}

	root := entry.New(entry.ID{}, baseDN)
	root.SetString("objectClass", "domain")
	rootID, err := st.AddContextEntry(root)
	if err != nil {
		return nil, fmt.Errorf("add context entry: %w", err)
	}

	tree := &benchTree{root: rootID}
	for g := 0; g < fanout; g++ {
		ou := entry.New(entry.ID{}, groupDN(g))
		ou.SetString("objectClass", "organizationalUnit")
		id, err := st.Add(ou)
		if err != nil {
			return nil, fmt.Errorf("add group %d: %w", g, err)
		}
		tree.groups = append(tree.groups, id)
	}

	for i := 0; i < n; i++ {
		id, err := st.Add(user(i, fanout))
		if err != nil {
			return nil, fmt.Errorf("add user %d: %w", i, err)
		}
		tree.users = append(tree.users, id)
	}

	return tree, nil
}

func groupDN(g int) string {
	return fmt.Sprintf("ou=group%04d,%s", g, baseDN)
}

func user(i, fanout int) *entry.Entry {
	uid := fmt.Sprintf("user%08d", i)
	e := entry.New(entry.ID{}, fmt.Sprintf("uid=%s,%s", uid, groupDN(i%fanout)))
	e.SetString("objectClass", "person", "inetOrgPerson")
	e.SetString("uid", uid)
	e.SetString("cn", fmt.Sprintf("User %d", i))
	e.SetString("sn", fmt.Sprintf("Surname%d", i%97))
	if i%3 != 0 {
		e.SetString("mail", uid+"@bench.example")
	}
	return e
}
