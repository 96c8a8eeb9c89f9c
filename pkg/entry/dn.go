package entry

import (
	"errors"
	"strings"
)

var (
	ErrEmptyDN    = errors.New("DN cannot be empty")
	ErrInvalidDN  = errors.New("invalid DN format")
	ErrInvalidRDN = errors.New("invalid RDN format")
)

// DN is a parsed distinguished name. RDNs are held leaf first, so
// "uid=alice,ou=users,dc=example" has RDNs ["uid=alice", "ou=users", "dc=example"].
type DN struct {
	RDNs []string
}

// ParseDN splits a DN into its RDNs, honouring backslash-escaped commas and
// lower-casing each attribute type.
func ParseDN(s string) (DN, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DN{}, ErrEmptyDN
	}

	parts := splitDN(s)
	if len(parts) == 0 {
		return DN{}, ErrInvalidDN
	}

	rdns := make([]string, len(parts))
	for i, part := range parts {
		rdn, err := normalizeRDNType(part)
		if err != nil {
			return DN{}, err
		}
		rdns[i] = rdn
	}
	return DN{RDNs: rdns}, nil
}

// MustParseDN is ParseDN for literals known to be valid. It panics on error.
func MustParseDN(s string) DN {
	dn, err := ParseDN(s)
	if err != nil {
		panic(err)
	}
	return dn
}

func splitDN(s string) []string {
	var (
		parts   []string
		current strings.Builder
		escaped bool
	)

	flush := func() {
		if part := strings.TrimSpace(current.String()); part != "" {
			parts = append(parts, part)
		}
		current.Reset()
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == ',':
			flush()
			continue
		}
		current.WriteByte(c)
	}
	flush()

	return parts
}

func normalizeRDNType(rdn string) (string, error) {
	eq := strings.IndexByte(rdn, '=')
	if eq <= 0 {
		return "", ErrInvalidRDN
	}

	attrType := strings.ToLower(strings.TrimSpace(rdn[:eq]))
	if attrType == "" {
		return "", ErrInvalidRDN
	}
	return attrType + "=" + strings.TrimSpace(rdn[eq+1:]), nil
}

// NormalizeRDN returns the form of an RDN used for index keys: type and value
// both lower-cased so sibling lookups are case-insensitive.
func NormalizeRDN(rdn string) string {
	return strings.ToLower(rdn)
}

// String joins the RDNs back into a DN string.
func (d DN) String() string {
	return strings.Join(d.RDNs, ",")
}

// Len returns the number of RDNs.
func (d DN) Len() int {
	return len(d.RDNs)
}

// IsEmpty reports whether the DN has no RDNs.
func (d DN) IsEmpty() bool {
	return len(d.RDNs) == 0
}

// RDN returns the leaf RDN, or "" for an empty DN.
func (d DN) RDN() string {
	if len(d.RDNs) == 0 {
		return ""
	}
	return d.RDNs[0]
}

// Parent returns the DN with its leaf RDN removed.
func (d DN) Parent() DN {
	if len(d.RDNs) <= 1 {
		return DN{}
	}
	return DN{RDNs: d.RDNs[1:]}
}

// Normalized returns the DN with every RDN normalized.
func (d DN) Normalized() string {
	return NormalizeRDN(d.String())
}

// IsDescendantOf reports whether d lies strictly below ancestor.
func (d DN) IsDescendantOf(ancestor DN) bool {
	if len(d.RDNs) <= len(ancestor.RDNs) {
		return false
	}
	offset := len(d.RDNs) - len(ancestor.RDNs)
	for i, rdn := range ancestor.RDNs {
		if NormalizeRDN(d.RDNs[offset+i]) != NormalizeRDN(rdn) {
			return false
		}
	}
	return true
}
