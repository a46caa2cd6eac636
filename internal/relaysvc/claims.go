package relaysvc

import "github.com/puzpuzpuz/xsync/v3"

// claimTable guarantees that no two links ever hold the same device node
// at the same time, even when several identifiers select the same source.
type claimTable struct {
	m *xsync.MapOf[string, *Link]
}

func newClaimTable() *claimTable {
	return &claimTable{m: xsync.NewMapOf[string, *Link]()}
}

func (t *claimTable) claim(path string, l *Link) bool {
	_, loaded := t.m.LoadOrStore(path, l)
	return !loaded
}

func (t *claimTable) release(path string, l *Link) {
	t.m.Compute(path, func(owner *Link, ok bool) (*Link, bool) {
		if !ok || owner != l {
			return owner, !ok
		}
		return nil, true
	})
}

func (t *claimTable) claimed(path string) bool {
	_, ok := t.m.Load(path)
	return ok
}
