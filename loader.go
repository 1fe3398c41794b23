package cartconf

import (
	"os"
	"path/filepath"
	"sync"
)

// Loader resolves an `include` target to source text. Targets are whatever
// string follows the `include` keyword; a FileLoader treats them as paths
// relative to a base directory, but callers needing named in-memory
// sources (tests, embedded bundles) can supply their own.
type Loader interface {
	Load(target string) (string, error)
}

// FileLoader resolves include targets as filesystem paths relative to Dir,
// caching each file's contents the first time it is read so a source
// included from multiple places is only stat'd and read once.
type FileLoader struct {
	Dir string

	mu    sync.RWMutex
	cache map[string]string
}

// NewFileLoader builds a FileLoader rooted at dir.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{Dir: dir, cache: make(map[string]string)}
}

// Load implements Loader.
func (f *FileLoader) Load(target string) (string, error) {
	path := target
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.Dir, target)
	}

	f.mu.RLock()
	if src, ok := f.cache[path]; ok {
		f.mu.RUnlock()
		return src, nil
	}
	f.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	src := string(data)

	f.mu.Lock()
	f.cache[path] = src
	f.mu.Unlock()
	return src, nil
}

// MapLoader resolves include targets from an in-memory set of named
// sources. Useful for tests and for callers assembling a configuration
// from fragments that never touch disk.
type MapLoader map[string]string

// Load implements Loader.
func (m MapLoader) Load(target string) (string, error) {
	src, ok := m[target]
	if !ok {
		return "", &IncludeError{Target: target, Reason: "no such source"}
	}
	return src, nil
}

// includeCache memoizes the parsed Block for each include target, so a
// config included from several branches of the tree is only lexed and
// parsed once. It is keyed on the target name alone; NewParser creates one
// cache per top-level parse, shared only with that parse's include
// sub-parsers, which all use the same Loader.
type includeCache struct {
	mu    sync.Mutex
	byKey map[string]*Block
}

func newIncludeCache() *includeCache {
	return &includeCache{byKey: make(map[string]*Block)}
}

func (c *includeCache) get(key string) (*Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.byKey[key]
	return b, ok
}

func (c *includeCache) set(key string, b *Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[key] = b
}
