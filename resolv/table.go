package resolv

import (
	"sort"
	"sync"

	"github.com/birkland/drs"
)

// table holds the prefix registry and the host index.  Clients are shared by
// reference between both maps.
type table struct {
	sync.RWMutex
	prefixes map[string]drs.Client
	hosts    map[string]drs.Client
}

func newTable() *table {
	return &table{
		prefixes: make(map[string]drs.Client),
		hosts:    make(map[string]drs.Client),
	}
}

func (t *table) prefix(p string) (drs.Client, bool) {
	t.RLock()
	defer t.RUnlock()
	c, ok := t.prefixes[p]
	return c, ok
}

func (t *table) host(h string) (drs.Client, bool) {
	t.RLock()
	defer t.RUnlock()
	c, ok := t.hosts[h]
	return c, ok
}

// register adds (or overwrites) every prefix alias and the host of each descriptor
// in a single critical section.
func (t *table) register(descs ...drs.Descriptor) {
	t.Lock()
	defer t.Unlock()

	for _, d := range descs {
		for _, p := range d.Prefixes {
			if p != "" {
				t.prefixes[p] = d.Client
			}
		}
		t.hosts[d.Host] = d.Client
	}
}

// upsertHost returns the client for a host, building and inserting one with
// build if there is none yet.  created tells whether this call inserted it.
func (t *table) upsertHost(h string, build func() (drs.Client, error)) (c drs.Client, created bool, err error) {
	if c, ok := t.host(h); ok {
		return c, false, nil
	}

	t.Lock()
	defer t.Unlock()

	// Somebody may have inserted it between our read and write locks
	if c, ok := t.hosts[h]; ok {
		return c, false, nil
	}

	c, err = build()
	if err != nil {
		return nil, false, err
	}
	t.hosts[h] = c
	return c, true, nil
}

func (t *table) prefixKeys() []string {
	t.RLock()
	defer t.RUnlock()
	return sortedKeys(t.prefixes)
}

func (t *table) hostKeys() []string {
	t.RLock()
	defer t.RUnlock()
	return sortedKeys(t.hosts)
}

func sortedKeys(m map[string]drs.Client) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
