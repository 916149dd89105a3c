package extract

import (
	"fmt"
	"log/slog"

	"pagesift/internal/config"
	"pagesift/internal/types"
)

// FieldLocator binds a schema field name to the rule that finds its
// source node within a container.
type FieldLocator struct {
	Name      string
	Locator   Locator
	Attribute string
}

// Extractor locates repeated containers in a page and extracts one
// fixed-schema record per container.
type Extractor struct {
	container Locator
	fields    []FieldLocator
	schema    types.Schema
	logger    *slog.Logger
}

// New builds an Extractor from the extraction configuration. All
// locator expressions are compiled up front so a bad expression fails
// the run before any page is fetched.
func New(cfg *config.ExtractConfig, logger *slog.Logger) (*Extractor, error) {
	container, err := NewLocator(cfg.Container, cfg.ContainerType)
	if err != nil {
		return nil, fmt.Errorf("container locator: %w", err)
	}

	fields := make([]FieldLocator, 0, len(cfg.Fields))
	schema := make(types.Schema, 0, len(cfg.Fields))
	for _, rule := range cfg.Fields {
		loc, err := NewLocator(rule.Selector, rule.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", rule.Name, err)
		}
		fields = append(fields, FieldLocator{
			Name:      rule.Name,
			Locator:   loc,
			Attribute: rule.Attribute,
		})
		schema = append(schema, rule.Name)
	}

	return &Extractor{
		container: container,
		fields:    fields,
		schema:    schema,
		logger:    logger.With("component", "extractor"),
	}, nil
}

// Schema returns the fixed field order of this extractor.
func (e *Extractor) Schema() types.Schema {
	return e.schema
}

// Extract produces one record per container in document order. A page
// with zero containers yields an empty slice and no error. A field
// that cannot be resolved is left unset on the record; the sink maps
// it to the Unknown placeholder, and extraction of the remaining
// fields and containers continues.
func (e *Extractor) Extract(page *types.Page) ([]*types.Record, error) {
	root, err := page.Root()
	if err != nil {
		return nil, fmt.Errorf("parse page %d: %w", page.Ref.Index, err)
	}

	containers := e.container.All(root)
	if len(containers) == 0 {
		e.logger.Debug("no containers matched",
			"page", page.Ref.Index,
			"container", e.container.String(),
		)
		return nil, nil
	}

	records := make([]*types.Record, 0, len(containers))
	for _, node := range containers {
		rec := types.NewRecord(page.Ref.Index)
		for _, field := range e.fields {
			match, ok := field.Locator.First(node)
			if !ok {
				e.logger.Debug("field not found",
					"page", page.Ref.Index,
					"field", field.Name,
					"locator", field.Locator.String(),
				)
				continue
			}
			rec.Set(field.Name, nodeValue(match, field.Attribute))
		}
		records = append(records, rec)
	}

	e.logger.Debug("extraction complete",
		"page", page.Ref.Index,
		"containers", len(containers),
		"records", len(records),
	)

	return records, nil
}
