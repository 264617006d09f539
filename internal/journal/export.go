// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
)

// Export is the portable form of a whole journal
type Export struct {
	Dreams     []dream.Dream     `json:"dreams"`
	Characters []dream.Character `json:"characters"`
	Locations  []dream.Location  `json:"locations"`
}

// Snapshot reads the whole journal
func (s *Service) Snapshot(ctx context.Context) (Export, error) {
	var out Export
	var err error
	if out.Dreams, err = s.store.ListDreams(ctx); err != nil {
		return Export{}, fmt.Errorf("failed to list dreams: %w", err)
	}
	if out.Characters, err = s.store.ListCharacters(ctx); err != nil {
		return Export{}, fmt.Errorf("failed to list characters: %w", err)
	}
	if out.Locations, err = s.store.ListLocations(ctx); err != nil {
		return Export{}, fmt.Errorf("failed to list locations: %w", err)
	}
	return out, nil
}

// ExportJSON renders the journal as two-space indented JSON
func (s *Service) ExportJSON(ctx context.Context) ([]byte, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.JSON()
}

// JSON renders the export as two-space indented JSON
func (e Export) JSON() ([]byte, error) {
	if e.Dreams == nil {
		e.Dreams = []dream.Dream{}
	}
	if e.Characters == nil {
		e.Characters = []dream.Character{}
	}
	if e.Locations == nil {
		e.Locations = []dream.Location{}
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode journal: %w", err)
	}
	return data, nil
}
