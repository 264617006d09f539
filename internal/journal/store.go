// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package journal

import (
	"context"
	"errors"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// FlagSeeded marks that the initial sample journal was written once
const FlagSeeded = "has_seeded"

// Store is the persistence collaborator of the journal.
//
// ListDreams returns dreams in insertion order, newest first; replacing a dream keeps its
// position. Character and location DreamIDs/Appearances are derived by the store from the
// dreams referencing them.
type Store interface {
	ListDreams(ctx context.Context) ([]dream.Dream, error)
	GetDream(ctx context.Context, id string) (dream.Dream, error)
	UpsertDream(ctx context.Context, d dream.Dream) (dream.Dream, error)
	DeleteDream(ctx context.Context, id string) error

	// AppendRelated adds relatedID to the related set of dreamID if absent.
	// A missing dreamID is not an error.
	AppendRelated(ctx context.Context, dreamID, relatedID string) error
	// RemoveRelated drops relatedID from every dream's related set
	RemoveRelated(ctx context.Context, relatedID string) error

	ListCharacters(ctx context.Context) ([]dream.Character, error)
	UpsertCharacter(ctx context.Context, c dream.Character) (dream.Character, error)
	DeleteCharacter(ctx context.Context, id string) error

	ListLocations(ctx context.Context) ([]dream.Location, error)
	UpsertLocation(ctx context.Context, l dream.Location) (dream.Location, error)
	DeleteLocation(ctx context.Context, id string) error

	HasFlag(ctx context.Context, key string) (bool, error)
	SetFlag(ctx context.Context, key string) error

	// Clear removes all dreams, characters and locations. Flags are kept.
	Clear(ctx context.Context) error

	// Atomic runs fn against a transactional view of the store.
	// Any error returned by fn rolls back every write made through the view.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}
