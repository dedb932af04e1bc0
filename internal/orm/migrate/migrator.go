package migrate

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmodel/internal/orm/cache"
	"github.com/conduit-lang/docmodel/internal/orm/convert"
	"github.com/conduit-lang/docmodel/internal/orm/dynamic"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
)

// ModelResult reports what a migration did to one model
type ModelResult struct {
	Model     string
	Changes   []SchemaChange
	Rewritten int
}

// Report summarizes a migration run
type Report struct {
	Name    string
	Models  []ModelResult
	Dropped []string
}

// Changes returns every change of the run in model order
func (r *Report) Changes() []SchemaChange {
	var all []SchemaChange
	for _, m := range r.Models {
		all = append(all, m.Changes...)
	}
	for _, key := range r.Dropped {
		all = append(all, SchemaChange{Type: ChangeDropModel, Model: key, DataLoss: true})
	}
	return all
}

// Migrator brings stored documents and side documents in line with the registered models
type Migrator struct {
	cache    *cache.Cache
	tracker  *Tracker
	enricher *dynamic.Enricher
	logger   *zap.Logger
}

// Option configures a Migrator
type Option func(*Migrator)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Migrator) { m.logger = l }
}

// WithEnricher ensures dynamic side documents during a run
func WithEnricher(e *dynamic.Enricher) Option {
	return func(m *Migrator) { m.enricher = e }
}

// NewMigrator creates a migrator storing model states in the technical collection
func NewMigrator(c *cache.Cache, technical store.Collection, opts ...Option) *Migrator {
	m := &Migrator{
		cache:   c,
		tracker: NewTracker(technical),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tracker returns the state tracker
func (m *Migrator) Tracker() *Tracker {
	return m.tracker
}

// Plan computes the pending changes without touching any document
func (m *Migrator) Plan(ctx context.Context) ([]SchemaChange, error) {
	oldStates, err := m.tracker.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	newStates := make(map[string]*ModelState)
	for _, key := range m.cache.Registry().List() {
		meta, err := m.cache.Meta(ctx, key)
		if err != nil {
			return nil, err
		}
		newStates[key] = StateOf(meta)
	}

	return NewDiffer(oldStates, newStates).ComputeDiff(), nil
}

// Run migrates every registered model. Running it twice is a no-op the second time.
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	oldStates, err := m.tracker.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	keys := m.cache.Registry().List()
	registered := make(map[string]bool, len(keys))

	for _, key := range keys {
		registered[key] = true

		result, err := m.migrateModel(ctx, key, oldStates[key])
		if err != nil {
			return report, fmt.Errorf("migration of %s failed: %w", key, err)
		}
		report.Models = append(report.Models, result)
	}

	for key := range oldStates {
		if registered[key] {
			continue
		}
		// stored documents of a dropped model are left in place
		if err := m.tracker.Remove(ctx, key); err != nil {
			return report, err
		}
		report.Dropped = append(report.Dropped, key)
		m.logger.Warn("model no longer registered",
			zap.String("model", key),
			zap.String("collection", oldStates[key].Collection))
	}
	sort.Strings(report.Dropped)

	report.Name = GenerateMigrationName(report.Changes())
	m.logger.Info("migration complete",
		zap.String("name", report.Name),
		zap.Int("models", len(report.Models)),
		zap.Int("dropped", len(report.Dropped)))

	return report, nil
}

func (m *Migrator) migrateModel(ctx context.Context, key string, prev *ModelState) (ModelResult, error) {
	result := ModelResult{Model: key}

	mc, err := m.cache.GetOrInit(ctx, key)
	if err != nil {
		return result, err
	}
	meta := mc.Meta
	current := StateOf(meta)

	if prev == nil {
		result.Changes = []SchemaChange{{Type: ChangeAddModel, Model: key}}
	} else {
		result.Changes = DiffFields(prev, current)
	}

	if prev != nil && len(result.Changes) > 0 {
		n, err := m.rewrite(ctx, meta, mc.Collection, result.Changes)
		if err != nil {
			return result, err
		}
		result.Rewritten = n
	}

	if err := m.ensureDynamic(ctx, meta); err != nil {
		return result, err
	}

	if prev == nil || len(result.Changes) > 0 {
		if err := m.tracker.Record(ctx, current); err != nil {
			return result, err
		}
	}

	for _, c := range result.Changes {
		m.logger.Debug("schema change",
			zap.String("model", key),
			zap.String("change", c.String()),
			zap.Bool("data_loss", c.DataLoss))
	}

	return result, nil
}

// rewrite applies field changes to every stored document of a model
func (m *Migrator) rewrite(ctx context.Context, meta *schema.Meta, coll store.Collection, changes []SchemaChange) (int, error) {
	defaults := make(map[string]interface{})
	for _, c := range changes {
		if c.Type != ChangeAddField && c.Type != ChangeModifyField {
			continue
		}
		v, err := storedDefault(meta, c.Field)
		if err != nil {
			return 0, err
		}
		defaults[c.Field] = v
	}

	docs, err := coll.Find(ctx, store.Filter{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", coll.Name(), err)
	}

	rewritten := 0
	for _, doc := range docs {
		id, ok := doc.ID()
		if !ok {
			return rewritten, convert.ErrMissingID
		}

		for _, c := range changes {
			switch c.Type {
			case ChangeAddField:
				if _, present := doc[c.Field]; !present {
					doc[c.Field] = defaults[c.Field]
				}
			case ChangeModifyField:
				doc[c.Field] = defaults[c.Field]
			case ChangeDropField:
				delete(doc, c.Field)
			}
		}

		if _, err := coll.ReplaceOne(ctx, store.ByID(id), doc); err != nil {
			return rewritten, fmt.Errorf("failed to rewrite %s %s: %w", coll.Name(), id.Hex(), err)
		}
		rewritten++
	}

	m.logger.Info("documents rewritten",
		zap.String("model", meta.Key),
		zap.String("collection", coll.Name()),
		zap.Int("count", rewritten))

	return rewritten, nil
}

func (m *Migrator) ensureDynamic(ctx context.Context, meta *schema.Meta) error {
	if m.enricher == nil {
		return nil
	}

	var names []string
	for _, name := range meta.FieldNames {
		if meta.FieldTypes[name].Dynamic {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return m.enricher.EnsureDocument(ctx, meta.CollectionName, names)
}

// storedDefault returns the stored form of a field's declared default
func storedDefault(meta *schema.Meta, field string) (interface{}, error) {
	tag := meta.FieldTypes[field]
	v, err := schema.Coerce(tag, meta.Defaults[field])
	if err != nil {
		return nil, fmt.Errorf("default of %s: %w", field, err)
	}
	return convert.StoredValue(tag, v)
}
