package pack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/qda-labs/funnel/internal/domain"
)

// Store loads packs from a directory of JSON documents, one pack per file,
// named <pack>.json. Parsed packs are cached; the cache is read-mostly and
// safe for concurrent use across requests.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*Pack
}

// NewStore creates a pack store over the given directory.
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: make(map[string]*Pack),
	}
}

// Names enumerates the available pack names in sorted order.
func (s *Store) Names() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}

// Load returns the named pack, reading and caching it on first use.
// Unknown names fail with a not-found condition; this is fatal for the
// request that needed the pack.
func (s *Store) Load(name string) (*Pack, error) {
	s.mu.RLock()
	if p, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return p, nil
	}
	s.mu.RUnlock()

	path := filepath.Join(s.dir, name+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound(fmt.Sprintf("unknown domain pack: %s", name))
		}
		return nil, fmt.Errorf("read pack %s: %w", name, err)
	}

	var p Pack
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse pack %s: %w", name, err)
	}
	if p.Refinements == nil {
		p.Refinements = make(map[string][]FacetDef)
	}

	s.mu.Lock()
	s.cache[name] = &p
	s.mu.Unlock()
	return &p, nil
}
