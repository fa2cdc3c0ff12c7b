// Package project reshapes enriched chunk records into the vector store
// ingestion schema.
package project

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/poiesic/chunkline/core"
)

// Projector derives ProjectedRecords for one source namespace.
type Projector struct {
	namespace string
}

// New creates a Projector. The namespace prefixes every projected ID.
func New(namespace string) (*Projector, error) {
	if namespace == "" || strings.IndexFunc(namespace, unicode.IsSpace) >= 0 {
		return nil, ErrInvalidNamespace
	}
	return &Projector{namespace: namespace}, nil
}

// Namespace returns the ID prefix.
func (p *Projector) Namespace() string {
	return p.namespace
}

// ID returns the stable identifier for chunkIndex.
func (p *Projector) ID(chunkIndex int) string {
	return p.namespace + "_" + strconv.Itoa(chunkIndex)
}

// Project derives a new record from rec. rec is not modified and the result
// shares no mutable state with it.
func (p *Projector) Project(rec *core.ChunkRecord) (*core.ProjectedRecord, error) {
	if rec == nil {
		return nil, &ProjectionError{Err: core.ErrInvalidChunkRecord}
	}
	fail := func(field string, err error) (*core.ProjectedRecord, error) {
		return nil, &ProjectionError{Line: rec.Line, Field: field, Err: err}
	}

	if err := core.ValidateChunkIndex(rec); err != nil {
		return fail("chunk_index", err)
	}
	if err := core.ValidateContent(rec); err != nil {
		return fail("content", err)
	}
	if !rec.HasEmbedding() {
		return fail("embedding", core.ErrMissingEmbedding)
	}

	provenance := []struct {
		name  string
		value json.RawMessage
	}{
		{"source_title", rec.SourceTitle},
		{"author", rec.Author},
		{"year", rec.Year},
		{"genre", rec.Genre},
		{"structure_path", rec.StructurePath},
	}
	for _, f := range provenance {
		if f.value == nil {
			return fail(f.name, core.ErrMissingField)
		}
	}

	if rec.Metadata == nil {
		return fail("metadata", core.ErrMissingMetadata)
	}
	if missing := core.MissingMetadataField(rec.Metadata); missing != "" {
		return fail("metadata."+missing, core.ErrMissingMetadataField)
	}

	return &core.ProjectedRecord{
		ID:            p.ID(*rec.ChunkIndex),
		Content:       rec.Content,
		SourceTitle:   slices.Clone(rec.SourceTitle),
		Author:        slices.Clone(rec.Author),
		Year:          slices.Clone(rec.Year),
		Genre:         slices.Clone(rec.Genre),
		StructurePath: slices.Clone(rec.StructurePath),
		ChunkIndex:    *rec.ChunkIndex,
		Embedding:     slices.Clone(rec.Embedding),
		Metadata: core.ProjectedMetadata{
			SourceType:         slices.Clone(rec.Metadata[core.MetaSourceType]),
			SyntopiconTags:     slices.Clone(rec.Metadata[core.MetaSyntopiconTags]),
			RhetoricalFunction: slices.Clone(rec.Metadata[core.MetaRhetoricalFunction]),
			ScriptureRefs:      slices.Clone(rec.Metadata[core.MetaScriptureRefs]),
			Topics:             slices.Clone(rec.Metadata[core.MetaTopics]),
			Entities:           slices.Clone(rec.Metadata[core.MetaEntities]),
		},
	}, nil
}
