package assistant

import (
	"crypto/subtle"
	"strings"
)

// AdminSet decides who may add material to the knowledge source: a fixed set
// of sender ids plus a shared secret presented when arming an upload.
type AdminSet struct {
	ids    map[string]struct{}
	secret string
}

// NewAdminSet creates an admin set. An empty secret disables uploads.
func NewAdminSet(ids []string, secret string) *AdminSet {
	set := &AdminSet{ids: make(map[string]struct{}, len(ids)), secret: secret}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set.ids[id] = struct{}{}
		}
	}
	return set
}

// ParseAdminIDs splits a comma separated id list.
func ParseAdminIDs(list string) []string {
	var ids []string
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsPrivileged reports whether sender may ingest documents.
func (a *AdminSet) IsPrivileged(sender string) bool {
	if a == nil {
		return false
	}
	_, ok := a.ids[sender]
	return ok
}

// CheckSecret compares secret against the configured one in constant time.
func (a *AdminSet) CheckSecret(secret string) bool {
	if a == nil || a.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.secret), []byte(secret)) == 1
}
