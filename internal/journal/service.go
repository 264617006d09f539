// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
)

// Options configures a Service
type Options struct {
	// Location is the timezone used for calendar-day arithmetic. Defaults to time.Local.
	Location *time.Location
	// PruneLinksOnDelete removes a deleted dream from every related set
	PruneLinksOnDelete bool
	// Now overrides the clock, mainly for tests
	Now func() time.Time
}

// Service coordinates the journal store with the linker and aggregators
type Service struct {
	store  Store
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
	prune  bool
}

// NewService creates a journal service backed by store
func NewService(store Store, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:  store,
		logger: logger,
		loc:    opts.Location,
		now:    opts.Now,
		prune:  opts.PruneLinksOnDelete,
	}
}

// Location returns the timezone used for day boundaries
func (s *Service) Location() *time.Location {
	return s.loc
}

// Now returns the current time according to the service clock
func (s *Service) Now() time.Time {
	return s.now()
}

// SaveDream creates or fully replaces a dream.
// The related set is recomputed against the rest of the journal and every related dream
// gains a back-link to the saved one. The whole unit is atomic.
func (s *Service) SaveDream(ctx context.Context, d dream.Dream) (dream.Dream, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Type == "" {
		d.Type = dream.TypeNormal
	}

	var saved dream.Dream
	err := s.store.Atomic(ctx, func(tx Store) error {
		corpus, err := tx.ListDreams(ctx)
		if err != nil {
			return fmt.Errorf("failed to list dreams: %w", err)
		}

		d.RelatedDreamIDs = dream.ComputeRelated(d, corpus)

		saved, err = tx.UpsertDream(ctx, d)
		if err != nil {
			return fmt.Errorf("failed to upsert dream: %w", err)
		}

		for _, patch := range dream.Backlinks(saved.ID, saved.RelatedDreamIDs) {
			if err := tx.AppendRelated(ctx, patch.DreamID, patch.RelatedID); err != nil {
				return fmt.Errorf("failed to link dream %s: %w", patch.DreamID, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("save dream failed", zap.String("dream_id", d.ID), zap.Error(err))
		return dream.Dream{}, err
	}

	s.logger.Info("dream saved",
		zap.String("dream_id", saved.ID),
		zap.Strings("related", saved.RelatedDreamIDs))
	return saved, nil
}

// DeleteDream removes a dream by id. When pruning is enabled the id is also removed from
// every other dream's related set in the same transaction.
func (s *Service) DeleteDream(ctx context.Context, id string) error {
	err := s.store.Atomic(ctx, func(tx Store) error {
		if err := tx.DeleteDream(ctx, id); err != nil {
			return err
		}
		if s.prune {
			if err := tx.RemoveRelated(ctx, id); err != nil {
				return fmt.Errorf("failed to prune links: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("delete dream failed", zap.String("dream_id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("dream deleted", zap.String("dream_id", id), zap.Bool("pruned", s.prune))
	return nil
}

// GetDream returns one dream by id
func (s *Service) GetDream(ctx context.Context, id string) (dream.Dream, error) {
	return s.store.GetDream(ctx, id)
}

// ListDreams returns the dreams matching filter in store order
func (s *Service) ListDreams(ctx context.Context, filter Filter) ([]dream.Dream, error) {
	corpus, err := s.store.ListDreams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dreams: %w", err)
	}
	return filter.Apply(corpus), nil
}

// Related ranks the rest of the journal against an existing dream
func (s *Service) Related(ctx context.Context, id string) ([]dream.Match, error) {
	target, err := s.store.GetDream(ctx, id)
	if err != nil {
		return nil, err
	}
	corpus, err := s.store.ListDreams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dreams: %w", err)
	}
	return dream.RankRelated(target, corpus), nil
}

// Stats summarises the journal as of the service clock
func (s *Service) Stats(ctx context.Context) (dream.Stats, error) {
	corpus, err := s.store.ListDreams(ctx)
	if err != nil {
		return dream.Stats{}, fmt.Errorf("failed to list dreams: %w", err)
	}
	return dream.ComputeStats(corpus, s.now(), s.loc), nil
}

// Insights bundles the tag cloud, sentiment trend and calendar heatmap
type Insights struct {
	Tags      []dream.TagCount   `json:"tags,omitempty"`
	Sentiment []dream.TrendPoint `json:"sentiment,omitempty"`
	Heatmap   []dream.HeatmapDay `json:"heatmap,omitempty"`
}

// InsightOptions selects which insights to compute. Zero limits use the package defaults.
type InsightOptions struct {
	Tags        bool
	Sentiment   bool
	Heatmap     bool
	TagLimit    int
	TrendLimit  int
	HeatmapDays int
}

// AllInsights selects every insight with default limits
func AllInsights() InsightOptions {
	return InsightOptions{Tags: true, Sentiment: true, Heatmap: true}
}

// Insights computes the selected insights over the whole journal
func (s *Service) Insights(ctx context.Context, opts InsightOptions) (Insights, error) {
	corpus, err := s.store.ListDreams(ctx)
	if err != nil {
		return Insights{}, fmt.Errorf("failed to list dreams: %w", err)
	}

	var out Insights
	if opts.Tags {
		out.Tags = dream.TagFrequency(corpus, opts.TagLimit)
	}
	if opts.Sentiment {
		out.Sentiment = dream.SentimentTrend(corpus, opts.TrendLimit)
	}
	if opts.Heatmap {
		out.Heatmap = dream.CalendarHeatmap(corpus, s.now(), s.loc, opts.HeatmapDays)
	}
	return out, nil
}

// ListCharacters returns all characters with derived appearances
func (s *Service) ListCharacters(ctx context.Context) ([]dream.Character, error) {
	return s.store.ListCharacters(ctx)
}

// SaveCharacter creates or replaces a character
func (s *Service) SaveCharacter(ctx context.Context, c dream.Character) (dream.Character, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.FirstAppearance.IsZero() {
		c.FirstAppearance = s.now()
	}
	saved, err := s.store.UpsertCharacter(ctx, c)
	if err != nil {
		s.logger.Error("save character failed", zap.String("character_id", c.ID), zap.Error(err))
		return dream.Character{}, err
	}
	return saved, nil
}

// DeleteCharacter removes a character. Dreams keep their references.
func (s *Service) DeleteCharacter(ctx context.Context, id string) error {
	return s.store.DeleteCharacter(ctx, id)
}

// ListLocations returns all locations with derived appearances
func (s *Service) ListLocations(ctx context.Context) ([]dream.Location, error) {
	return s.store.ListLocations(ctx)
}

// SaveLocation creates or replaces a location
func (s *Service) SaveLocation(ctx context.Context, l dream.Location) (dream.Location, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	saved, err := s.store.UpsertLocation(ctx, l)
	if err != nil {
		s.logger.Error("save location failed", zap.String("location_id", l.ID), zap.Error(err))
		return dream.Location{}, err
	}
	return saved, nil
}

// DeleteLocation removes a location. Dreams keep their references.
func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	return s.store.DeleteLocation(ctx, id)
}

// ClearAll removes every dream, character and location. The seed flag survives so a
// cleared journal is not re-seeded.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("clear journal failed", zap.Error(err))
		return err
	}
	s.logger.Info("journal cleared")
	return nil
}
