package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	dirtyPrefix     = "*"
	suffixSeparator = " | "
)

// Registry maps unique display keys to open sessions, keeping insertion order.
// It is not safe for concurrent use.
type Registry struct {
	keys     []string
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers session under its name, suffixing " | N" with the smallest
// free N when the name is taken.
func (r *Registry) Add(session *Session) (string, error) {
	if session == nil {
		return "", ErrInvalidSession
	}
	key := session.Name()
	if _, taken := r.sessions[key]; taken {
		for n := 1; ; n++ {
			candidate := key + suffixSeparator + strconv.Itoa(n)
			if _, taken := r.sessions[candidate]; !taken {
				key = candidate
				break
			}
		}
	}
	r.keys = append(r.keys, key)
	r.sessions[key] = session
	return key, nil
}

// Remove evicts key and renumbers same-base entries with a higher suffix
// so suffixes stay dense.
func (r *Registry) Remove(key string) error {
	key = stripDirty(key)
	if _, ok := r.sessions[key]; !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	base, removedIndex := splitKey(key)

	keys := make([]string, 0, len(r.keys)-1)
	sessions := make(map[string]*Session, len(r.sessions)-1)
	for _, k := range r.keys {
		if k == key {
			continue
		}
		s := r.sessions[k]
		if b, idx := splitKey(k); b == base && idx > removedIndex {
			k = joinKey(base, idx-1)
		}
		keys = append(keys, k)
		sessions[k] = s
	}
	r.keys = keys
	r.sessions = sessions
	return nil
}

// Get resolves a key, ignoring a leading dirty marker.
func (r *Registry) Get(key string) (*Session, error) {
	s, ok := r.sessions[stripDirty(key)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return s, nil
}

// KeyOf returns the key under which session is registered.
func (r *Registry) KeyOf(session *Session) (string, bool) {
	for _, k := range r.keys {
		if r.sessions[k] == session {
			return k, true
		}
	}
	return "", false
}

// MarkDirty flags the session under key as modified.
func (r *Registry) MarkDirty(key string) error {
	s, err := r.Get(key)
	if err != nil {
		return err
	}
	s.SetDirty(true)
	return nil
}

// MarkClean clears the modified flag.
func (r *Registry) MarkClean(key string) error {
	s, err := r.Get(key)
	if err != nil {
		return err
	}
	s.SetDirty(false)
	return nil
}

// Keys lists display keys in insertion order, dirty ones prefixed with "*".
func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.keys))
	for _, k := range r.keys {
		if r.sessions[k].Dirty() {
			out = append(out, dirtyPrefix+k)
			continue
		}
		out = append(out, k)
	}
	return out
}

// Unsaved lists the bare keys of dirty sessions.
func (r *Registry) Unsaved() []string {
	var out []string
	for _, k := range r.keys {
		if r.sessions[k].Dirty() {
			out = append(out, k)
		}
	}
	return out
}

// Neighbour returns the key that should become active once key is closed:
// the entry to its left, else the one to its right.
func (r *Registry) Neighbour(key string) (string, bool) {
	key = stripDirty(key)
	for i, k := range r.keys {
		if k != key {
			continue
		}
		if i > 0 {
			return r.keys[i-1], true
		}
		if i+1 < len(r.keys) {
			return r.keys[i+1], true
		}
		return "", false
	}
	return "", false
}

func (r *Registry) Len() int      { return len(r.keys) }
func (r *Registry) IsEmpty() bool { return len(r.keys) == 0 }

func stripDirty(key string) string {
	return strings.TrimPrefix(key, dirtyPrefix)
}

// splitKey returns the base name and suffix index; the bare name is index 0.
func splitKey(key string) (string, int) {
	i := strings.LastIndex(key, suffixSeparator)
	if i < 0 {
		return key, 0
	}
	n, err := strconv.Atoi(key[i+len(suffixSeparator):])
	if err != nil || n < 1 {
		return key, 0
	}
	return key[:i], n
}

func joinKey(base string, index int) string {
	if index == 0 {
		return base
	}
	return base + suffixSeparator + strconv.Itoa(index)
}
