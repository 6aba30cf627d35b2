package playlist

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"avplay/internal/metrics"
	"avplay/internal/workers"
)

// maxConcurrentLoads caps LoadAll regardless of CPU count.
const maxConcurrentLoads = 16

// Manager holds named playlists. It is safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	playlists map[string]*Playlist
	registry  *Registry
	client    *http.Client
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{playlists: make(map[string]*Playlist)}
}

// SetRegistry sets the codec registry for playlists the manager creates or
// loads.
func (m *Manager) SetRegistry(r *Registry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry = r
}

// SetHTTPClient sets the client used for URL sources.
func (m *Manager) SetHTTPClient(c *http.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.client = c
}

func (m *Manager) newPlaylist(title string) *Playlist {
	p := New(title)
	p.registry = m.registry
	p.client = m.client
	return p
}

// Create stores a new empty playlist under name, replacing any existing one.
// An empty title uses the name.
func (m *Manager) Create(name, title string) *Playlist {
	if title == "" {
		title = name
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.newPlaylist(title)
	m.playlists[name] = p
	return p
}

// Get returns the playlist stored under name. The returned value is shared;
// use With or View when other goroutines may touch it.
func (m *Manager) Get(name string) (*Playlist, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.playlists[name]
	return p, ok
}

// Put stores p under name, replacing any existing playlist.
func (m *Manager) Put(name string, p *Playlist) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playlists[name] = p
}

// Remove deletes the playlist and reports whether it existed.
func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playlists[name]; !ok {
		return false
	}
	delete(m.playlists, name)
	return true
}

// Names returns the stored names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.playlists))
	for name := range m.playlists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored playlists.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.playlists)
}

// With runs fn on the named playlist while holding the write lock.
func (m *Manager) With(name string, fn func(*Playlist) error) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.playlists[name]
	if !ok {
		return false, nil
	}
	return true, fn(p)
}

// View runs fn on the named playlist while holding the read lock. fn must
// not modify the playlist.
func (m *Manager) View(name string, fn func(*Playlist)) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.playlists[name]
	if ok {
		fn(p)
	}
	return ok
}

// Load reads source into a new playlist and stores it under name. The name
// is only bound if the load succeeds. The playlist keeps DefaultTitle unless
// the source carries a title of its own.
func (m *Manager) Load(ctx context.Context, name, source string, opts LoadOptions) (*Playlist, error) {
	m.mu.RLock()
	p := m.newPlaylist("")
	m.mu.RUnlock()

	if err := p.Load(ctx, source, opts); err != nil {
		return nil, err
	}
	m.Put(name, p)
	return p, nil
}

// LoadAll loads every name to source pair concurrently and returns the
// failures keyed by name. Successful loads are stored even when others fail.
func (m *Manager) LoadAll(ctx context.Context, sources map[string]string, opts LoadOptions) map[string]error {
	var (
		mu       sync.Mutex
		failures = make(map[string]error)
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForIO(maxConcurrentLoads))

	for name, source := range sources {
		g.Go(func() error {
			if _, err := m.Load(ctx, name, source, opts); err != nil {
				mu.Lock()
				failures[name] = err
				mu.Unlock()
				logger.Warn("load %s from %s: %v", name, source, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}

// Save writes the named playlist to path.
func (m *Manager) Save(name, path string, opts SaveOptions) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.playlists[name]
	if !ok {
		return false, nil
	}
	return true, p.Save(path, opts)
}

// Merge concatenates the sources, in order, into a new playlist stored under
// name. It returns nil and stores nothing when sources is empty or any source
// is missing. The result never aliases a source.
func (m *Manager) Merge(name string, sources []string, title string) *Playlist {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(sources) == 0 {
		return nil
	}
	found := make([]*Playlist, 0, len(sources))
	for _, src := range sources {
		p, ok := m.playlists[src]
		if !ok {
			return nil
		}
		found = append(found, p)
	}

	merged := found[0].Clone()
	for _, p := range found[1:] {
		merged = merged.Merge(p)
	}
	if title != "" {
		merged.Title = title
	}
	m.playlists[name] = merged
	return merged
}

// Sort sorts the named playlist in place.
func (m *Manager) Sort(name, field string, reverse bool) (bool, error) {
	return m.With(name, func(p *Playlist) error {
		return p.Sort(field, reverse)
	})
}

// Filter stores a filtered copy of source under target and returns it, or nil
// when source does not exist. An empty title keeps the source title.
func (m *Manager) Filter(source, target string, keep func(Entry) bool, title string) *Playlist {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.playlists[source]
	if !ok {
		return nil
	}
	out := p.Filter(keep)
	if title != "" {
		out.Title = title
	}
	m.playlists[target] = out
	return out
}

// RemoveDuplicates deduplicates the named playlist in place and returns the
// number removed, or 0 when the playlist does not exist.
func (m *Manager) RemoveDuplicates(name, field string) (int, error) {
	removed := 0
	_, err := m.With(name, func(p *Playlist) error {
		n, err := p.RemoveDuplicates(field)
		removed = n
		return err
	})
	return removed, err
}

// FilterByExtension filters the named playlist in place and returns the
// number removed.
func (m *Manager) FilterByExtension(name string, exts []string, include bool) int {
	removed := 0
	m.With(name, func(p *Playlist) error {
		removed = p.FilterByExtension(exts, include)
		return nil
	})
	return removed
}

// Stats reports the number of playlists and entries held.
func (m *Manager) Stats() metrics.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := metrics.Stats{Playlists: len(m.playlists)}
	for _, p := range m.playlists {
		s.Entries += p.Len()
	}
	return s
}

// Snapshot captures every playlist.
func (m *Manager) Snapshot() map[string]Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Snapshot, len(m.playlists))
	for name, p := range m.playlists {
		out[name] = p.Snapshot()
	}
	return out
}

// Restore replaces the named playlists with the snapshots. Playlists not in
// snaps are left alone.
func (m *Manager) Restore(snaps map[string]Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, s := range snaps {
		p := FromSnapshot(s)
		p.registry = m.registry
		p.client = m.client
		m.playlists[name] = p
	}
}

// Describe returns a short summary of the named playlist.
func (m *Manager) Describe(name string) (string, bool) {
	var desc string
	ok := m.View(name, func(p *Playlist) {
		desc = fmt.Sprintf("%s (%d entries, %s)", p.Title, p.Len(), p.FormatName())
	})
	return desc, ok
}
