package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"foreman/pkg/logging"
)

// Context is the shared state of a run, handed between agents. Values are
// kept in insertion order and backed by a workspace directory so every
// artifact an agent produces is also a file a later agent (or a human) can
// discover.
//
// A Context belongs to the engine goroutine and is not safe for concurrent
// use. The only cross-goroutine state is the staleness set fed by the
// optional directory watcher, which has its own lock.
type Context struct {
	dir     string
	keep    bool
	created bool

	values map[string]any
	order  []string

	staleMu sync.Mutex
	stale   map[string]struct{}

	watcher *watcher
}

// New creates a run context rooted at dir. An empty dir allocates a
// temporary workspace that Cleanup removes unless keep is set.
func New(dir string, keep bool) (*Context, error) {
	created := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "foreman-")
		if err != nil {
			return nil, fmt.Errorf("failed to create workspace: %w", err)
		}
		dir = tmp
		created = true
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create workspace %s: %w", dir, err)
		}
	}

	return &Context{
		dir:     dir,
		keep:    keep,
		created: created,
		values:  make(map[string]any),
		stale:   make(map[string]struct{}),
	}, nil
}

// Dir returns the workspace directory.
func (c *Context) Dir() string {
	return c.dir
}

// Keep reports whether the workspace survives Cleanup.
func (c *Context) Keep() bool {
	return c.keep
}

// Set stores a value under key, preserving first-insertion order.
func (c *Context) Set(key string, value any) {
	if _, ok := c.values[key]; !ok {
		c.order = append(c.order, key)
	}
	c.values[key] = value
}

// Delete removes a key from the context. The on-disk artifact, if any,
// stays; a later Get resolves it again.
func (c *Context) Delete(key string) {
	if _, ok := c.values[key]; !ok {
		return
	}
	delete(c.values, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Get returns the value for key. Missing keys fall through to the workspace
// directory: the first file under <dir>/<key>/ is read and decoded by
// extension (.json and .yaml/.yml structurally, everything else as text).
func (c *Context) Get(key string) (any, bool) {
	if c.consumeStale(key) {
		c.Delete(key)
	}
	if v, ok := c.values[key]; ok {
		return v, true
	}
	return c.Resolve(key)
}

// GetString returns the value for key when it is text, or "" otherwise.
func (c *Context) GetString(key string) string {
	v, ok := c.Get(key)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

// GetBool returns the value for key interpreted as a boolean. Missing keys
// and non-boolean values are false.
func (c *Context) GetBool(key string) bool {
	v, ok := c.Get(key)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	default:
		return false
	}
}

// GetInt returns the value for key as an int, or fallback when the key is
// missing or not numeric. JSON decoding produces float64, so that shape is
// accepted too.
func (c *Context) GetInt(key string, fallback int) int {
	v, ok := c.Get(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return fallback
		}
		return parsed
	default:
		return fallback
	}
}

// GetRequired returns the value for key or an error naming the missing key.
func (c *Context) GetRequired(key string) (any, error) {
	v, ok := c.Get(key)
	if !ok {
		return nil, fmt.Errorf("context key %q is required but missing", key)
	}
	return v, nil
}

// Resolve loads key from the workspace directory without consulting the
// in-memory value. Successful loads are cached.
func (c *Context) Resolve(key string) (any, bool) {
	keyDir := filepath.Join(c.dir, key)
	entries, err := os.ReadDir(keyDir)
	if err != nil || len(entries) == 0 {
		return nil, false
	}

	// Directory order is not stable; sort so repeated resolves agree.
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, false
	}
	sort.Strings(names)

	path := filepath.Join(keyDir, names[0])
	content, err := os.ReadFile(path)
	if err != nil {
		logging.Warn("Workspace", "failed to read artifact %s: %v", path, err)
		return nil, false
	}

	value := decodeArtifact(names[0], content)
	c.Set(key, value)
	return value, true
}

// Save persists one artifact file under <dir>/<key>/<filename> and caches
// the decoded value under key.
func (c *Context) Save(key, filename string, content []byte) error {
	keyDir := filepath.Join(c.dir, key)
	if err := os.MkdirAll(keyDir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory %s: %w", keyDir, err)
	}
	path := filepath.Join(keyDir, filename)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	c.Set(key, decodeArtifact(filename, content))
	return nil
}

// SaveString is Save for text artifacts.
func (c *Context) SaveString(key, filename, content string) error {
	return c.Save(key, filename, []byte(content))
}

// Reset clears the transient step-result keys (return code and result) so
// the next step starts clean. Accumulated state, including any error
// message a follow-up attempt needs, is preserved.
func (c *Context) Reset() {
	c.Delete(KeyReturnCode)
	c.Delete(KeyResult)
}

// Keys returns the context keys in insertion order.
func (c *Context) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Snapshot returns a shallow copy of the current values, for rendering into
// prompts or summaries.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Cleanup stops the watcher and removes the workspace unless keep is set.
// It is safe to call more than once.
func (c *Context) Cleanup() error {
	if c.watcher != nil {
		c.watcher.close()
		c.watcher = nil
	}
	if c.keep {
		logging.Info("Workspace", "keeping workspace %s", c.dir)
		return nil
	}
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", c.dir, err)
	}
	return nil
}

func (c *Context) markStale(key string) {
	c.staleMu.Lock()
	defer c.staleMu.Unlock()
	c.stale[key] = struct{}{}
}

func (c *Context) consumeStale(key string) bool {
	c.staleMu.Lock()
	defer c.staleMu.Unlock()
	if _, ok := c.stale[key]; !ok {
		return false
	}
	delete(c.stale, key)
	return true
}

// decodeArtifact interprets file content by extension. Structural decode
// failures degrade to the raw text so a malformed artifact never hides.
func decodeArtifact(filename string, content []byte) any {
	switch {
	case strings.HasSuffix(filename, ".json"):
		var v any
		if err := json.Unmarshal(content, &v); err != nil {
			logging.Warn("Workspace", "artifact %s is not valid JSON, keeping raw text: %v", filename, err)
			return string(content)
		}
		return v
	case strings.HasSuffix(filename, ".yaml"), strings.HasSuffix(filename, ".yml"):
		var v any
		if err := yaml.Unmarshal(content, &v); err != nil {
			logging.Warn("Workspace", "artifact %s is not valid YAML, keeping raw text: %v", filename, err)
			return string(content)
		}
		return v
	default:
		return string(content)
	}
}
