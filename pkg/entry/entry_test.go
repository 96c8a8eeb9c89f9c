package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryAttributes(t *testing.T) {
	e := New(NewID(), "uid=alice,ou=users,dc=example")
	e.SetString("CN", "Alice")
	e.Add("mail", []byte("alice@example.com"))
	e.Add("Mail", []byte("a@example.com"))

	assert.True(t, e.Has("cn"))
	assert.Equal(t, "Alice", e.GetString("cn"))
	assert.Len(t, e.Get("MAIL"), 2)
	assert.Equal(t, []string{"cn", "mail"}, e.AttributeNames())

	e.Remove("CN")
	assert.False(t, e.Has("cn"))
	assert.Equal(t, "", e.GetString("cn"))
}

func TestEntryCloneIsDeep(t *testing.T) {
	e := New(NewID(), "cn=x")
	e.SetString("description", "original")

	clone := e.Clone()
	clone.Get("description")[0][0] = 'O'
	clone.SetString("cn", "x")

	assert.Equal(t, "original", e.GetString("description"))
	assert.False(t, e.Has("cn"))
	assert.Equal(t, e.ID, clone.ID)

	var nilEntry *Entry
	assert.Nil(t, nilEntry.Clone())
}

func TestParseDN(t *testing.T) {
	dn, err := ParseDN(" UID=alice , OU=Users,dc=example ")
	require.NoError(t, err)
	assert.Equal(t, []string{"uid=alice", "ou=Users", "dc=example"}, dn.RDNs)
	assert.Equal(t, "uid=alice", dn.RDN())
	assert.Equal(t, "ou=Users,dc=example", dn.Parent().String())
	assert.Equal(t, "uid=alice,ou=users,dc=example", dn.Normalized())
	assert.Equal(t, 3, dn.Len())

	escaped, err := ParseDN(`cn=Smith\, John,dc=example`)
	require.NoError(t, err)
	assert.Equal(t, []string{`cn=Smith\, John`, "dc=example"}, escaped.RDNs)

	root := MustParseDN("dc=example")
	assert.True(t, root.Parent().IsEmpty())
	assert.True(t, dn.IsDescendantOf(root))
	assert.False(t, root.IsDescendantOf(root))
	assert.False(t, root.IsDescendantOf(dn))
	assert.True(t, dn.IsDescendantOf(MustParseDN("OU=users,DC=Example")))
}

func TestParseDNErrors(t *testing.T) {
	_, err := ParseDN("   ")
	assert.ErrorIs(t, err, ErrEmptyDN)

	_, err = ParseDN("novalue,dc=example")
	assert.ErrorIs(t, err, ErrInvalidRDN)

	_, err = ParseDN("=x")
	assert.ErrorIs(t, err, ErrInvalidRDN)

	_, err = ParseDN(",,")
	assert.ErrorIs(t, err, ErrInvalidDN)
}

func TestParseID(t *testing.T) {
	id := NewID()
	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	fromBytes, err := IDFromBytes(id[:])
	require.NoError(t, err)
	assert.Equal(t, id, fromBytes)

	_, err = IDFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "alice smith", NormalizeValue([]byte("  Alice SMITH ")))
	assert.Equal(t, "", NormalizeValue(nil))
	assert.Equal(t, "cn", NormalizeAttributeName(" CN "))
}
