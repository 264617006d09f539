// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package journal

import (
	"context"
	"sync"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
)

type memoryState struct {
	dreams     []dream.Dream // newest first
	characters []dream.Character
	locations  []dream.Location
	flags      map[string]bool
}

func newMemoryState() memoryState {
	return memoryState{flags: map[string]bool{}}
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		dreams:     make([]dream.Dream, len(s.dreams)),
		characters: make([]dream.Character, len(s.characters)),
		locations:  make([]dream.Location, len(s.locations)),
		flags:      make(map[string]bool, len(s.flags)),
	}
	for i, d := range s.dreams {
		out.dreams[i] = d.Clone()
	}
	copy(out.characters, s.characters)
	copy(out.locations, s.locations)
	for k, v := range s.flags {
		out.flags[k] = v
	}
	return out
}

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

// memTx is the unlocked view handed to Atomic callbacks
type memTx struct {
	state *memoryState
}

func (m *MemoryStore) locked(fn func(v *memTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{state: &m.state})
}

// Atomic runs fn while holding the store lock and restores the prior state if fn fails
func (m *MemoryStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	return m.locked(func(v *memTx) error {
		return v.Atomic(ctx, fn)
	})
}

func (m *MemoryStore) ListDreams(ctx context.Context) (out []dream.Dream, err error) {
	err = m.locked(func(v *memTx) error {
		out, err = v.ListDreams(ctx)
		return err
	})
	return out, err
}

func (m *MemoryStore) GetDream(ctx context.Context, id string) (out dream.Dream, err error) {
	err = m.locked(func(v *memTx) error {
		out, err = v.GetDream(ctx, id)
		return err
	})
	return out, err
}

func (m *MemoryStore) UpsertDream(ctx context.Context, d dream.Dream) (out dream.Dream, err error) {
	err = m.locked(func(v *memTx) error {
		out, err = v.UpsertDream(ctx, d)
		return err
	})
	return out, err
}

func (m *MemoryStore) DeleteDream(ctx context.Context, id string) error {
	return m.locked(func(v *memTx) error { return v.DeleteDream(ctx, id) })
}

func (m *MemoryStore) AppendRelated(ctx context.Context, dreamID, relatedID string) error {
	return m.locked(func(v *memTx) error { return v.AppendRelated(ctx, dreamID, relatedID) })
}

func (m *MemoryStore) RemoveRelated(ctx context.Context, relatedID string) error {
	return m.locked(func(v *memTx) error { return v.RemoveRelated(ctx, relatedID) })
}

func (m *MemoryStore) ListCharacters(ctx context.Context) (out []dream.Character, err error) {
	err = m.locked(func(v *memTx) error {
		out, err = v.ListCharacters(ctx)
		return err
	})
	return out, err
}

func (m *MemoryStore) UpsertCharacter(ctx context.Context, c dream.Character) (out dream.Character, err error) {
	err = m.locked(func(v *memTx) error {
		out, err = v.UpsertCharacter(ctx, c)
		return err
	})
	return out, err
}

func (m *MemoryStore) DeleteCharacter(ctx context.Context, id string) error {
	return m.locked(func(v *memTx) error { return v.DeleteCharacter(ctx, id) })
}

func (m *MemoryStore) ListLocations(ctx context.Context) (out []dream.Location, err error) {
	err = m.locked(func(v *memTx) error {
		out, err = v.ListLocations(ctx)
		return err
	})
	return out, err
}

func (m *MemoryStore) UpsertLocation(ctx context.Context, l dream.Location) (out dream.Location, err error) {
	err = m.locked(func(v *memTx) error {
		out, err = v.UpsertLocation(ctx, l)
		return err
	})
	return out, err
}

func (m *MemoryStore) DeleteLocation(ctx context.Context, id string) error {
	return m.locked(func(v *memTx) error { return v.DeleteLocation(ctx, id) })
}

func (m *MemoryStore) HasFlag(ctx context.Context, key string) (ok bool, err error) {
	err = m.locked(func(v *memTx) error {
		ok, err = v.HasFlag(ctx, key)
		return err
	})
	return ok, err
}

func (m *MemoryStore) SetFlag(ctx context.Context, key string) error {
	return m.locked(func(v *memTx) error { return v.SetFlag(ctx, key) })
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	return m.locked(func(v *memTx) error { return v.Clear(ctx) })
}

func (v *memTx) Atomic(ctx context.Context, fn func(tx Store) error) error {
	snapshot := v.state.clone()
	if err := fn(v); err != nil {
		*v.state = snapshot
		return err
	}
	return nil
}

func (v *memTx) dreamIndex(id string) int {
	for i, d := range v.state.dreams {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (v *memTx) ListDreams(ctx context.Context) ([]dream.Dream, error) {
	out := make([]dream.Dream, len(v.state.dreams))
	for i, d := range v.state.dreams {
		out[i] = d.Clone()
	}
	return out, nil
}

func (v *memTx) GetDream(ctx context.Context, id string) (dream.Dream, error) {
	if i := v.dreamIndex(id); i >= 0 {
		return v.state.dreams[i].Clone(), nil
	}
	return dream.Dream{}, ErrNotFound
}

func (v *memTx) UpsertDream(ctx context.Context, d dream.Dream) (dream.Dream, error) {
	d = d.Clone()
	if i := v.dreamIndex(d.ID); i >= 0 {
		v.state.dreams[i] = d
	} else {
		v.state.dreams = append([]dream.Dream{d}, v.state.dreams...)
	}
	return d.Clone(), nil
}

func (v *memTx) DeleteDream(ctx context.Context, id string) error {
	i := v.dreamIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	v.state.dreams = append(v.state.dreams[:i:i], v.state.dreams[i+1:]...)
	return nil
}

func (v *memTx) AppendRelated(ctx context.Context, dreamID, relatedID string) error {
	i := v.dreamIndex(dreamID)
	if i < 0 || v.state.dreams[i].HasRelated(relatedID) {
		return nil
	}
	v.state.dreams[i].RelatedDreamIDs = append(v.state.dreams[i].RelatedDreamIDs, relatedID)
	return nil
}

func (v *memTx) RemoveRelated(ctx context.Context, relatedID string) error {
	for i, d := range v.state.dreams {
		if !d.HasRelated(relatedID) {
			continue
		}
		kept := make([]string, 0, len(d.RelatedDreamIDs)-1)
		for _, id := range d.RelatedDreamIDs {
			if id != relatedID {
				kept = append(kept, id)
			}
		}
		v.state.dreams[i].RelatedDreamIDs = kept
	}
	return nil
}

// referencing returns the ids of dreams whose ids(d) contains id, oldest first
func (v *memTx) referencing(id string, ids func(d dream.Dream) []string) []string {
	refs := []string{}
	for i := len(v.state.dreams) - 1; i >= 0; i-- {
		d := v.state.dreams[i]
		for _, ref := range ids(d) {
			if ref == id {
				refs = append(refs, d.ID)
				break
			}
		}
	}
	return refs
}

func (v *memTx) withCharacterRefs(c dream.Character) dream.Character {
	c.DreamIDs = v.referencing(c.ID, func(d dream.Dream) []string { return d.CharacterIDs })
	c.Appearances = len(c.DreamIDs)
	return c
}

func (v *memTx) withLocationRefs(l dream.Location) dream.Location {
	l.DreamIDs = v.referencing(l.ID, func(d dream.Dream) []string { return d.LocationIDs })
	l.Appearances = len(l.DreamIDs)
	return l
}

func (v *memTx) ListCharacters(ctx context.Context) ([]dream.Character, error) {
	out := make([]dream.Character, len(v.state.characters))
	for i, c := range v.state.characters {
		out[i] = v.withCharacterRefs(c)
	}
	return out, nil
}

func (v *memTx) UpsertCharacter(ctx context.Context, c dream.Character) (dream.Character, error) {
	c.DreamIDs, c.Appearances = nil, 0
	for i := range v.state.characters {
		if v.state.characters[i].ID == c.ID {
			v.state.characters[i] = c
			return v.withCharacterRefs(c), nil
		}
	}
	v.state.characters = append([]dream.Character{c}, v.state.characters...)
	return v.withCharacterRefs(c), nil
}

func (v *memTx) DeleteCharacter(ctx context.Context, id string) error {
	for i, c := range v.state.characters {
		if c.ID == id {
			v.state.characters = append(v.state.characters[:i:i], v.state.characters[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (v *memTx) ListLocations(ctx context.Context) ([]dream.Location, error) {
	out := make([]dream.Location, len(v.state.locations))
	for i, l := range v.state.locations {
		out[i] = v.withLocationRefs(l)
	}
	return out, nil
}

func (v *memTx) UpsertLocation(ctx context.Context, l dream.Location) (dream.Location, error) {
	l.DreamIDs, l.Appearances = nil, 0
	for i := range v.state.locations {
		if v.state.locations[i].ID == l.ID {
			v.state.locations[i] = l
			return v.withLocationRefs(l), nil
		}
	}
	v.state.locations = append([]dream.Location{l}, v.state.locations...)
	return v.withLocationRefs(l), nil
}

func (v *memTx) DeleteLocation(ctx context.Context, id string) error {
	for i, l := range v.state.locations {
		if l.ID == id {
			v.state.locations = append(v.state.locations[:i:i], v.state.locations[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (v *memTx) HasFlag(ctx context.Context, key string) (bool, error) {
	return v.state.flags[key], nil
}

func (v *memTx) SetFlag(ctx context.Context, key string) error {
	v.state.flags[key] = true
	return nil
}

func (v *memTx) Clear(ctx context.Context) error {
	flags := v.state.flags
	*v.state = newMemoryState()
	v.state.flags = flags
	return nil
}
