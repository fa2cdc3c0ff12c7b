package core

import (
	"encoding/binary"
	"encoding/json"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Required metadata fields. Projection keeps exactly these and drops the rest.
const (
	MetaSourceType         = "source_type"
	MetaSyntopiconTags     = "syntopicon_tags"
	MetaRhetoricalFunction = "rhetorical_function"
	MetaScriptureRefs      = "scripture_refs"
	MetaTopics             = "topics"
	MetaEntities           = "entities"
)

// MetadataFields lists the recognized metadata fields in output order.
var MetadataFields = []string{
	MetaSourceType,
	MetaSyntopiconTags,
	MetaRhetoricalFunction,
	MetaScriptureRefs,
	MetaTopics,
	MetaEntities,
}

// ChunkRecord is a single chunk of authored content read from a JSONL source.
//
// Provenance and metadata values are kept as raw JSON so they can be copied
// verbatim regardless of their shape. Top-level fields this package does not
// know about are preserved in Extra and written back out unchanged.
type ChunkRecord struct {
	ChunkIndex    *int
	Content       string
	SourceTitle   json.RawMessage
	Author        json.RawMessage
	Year          json.RawMessage
	Genre         json.RawMessage
	StructurePath json.RawMessage
	Embedding     Vector // nil until computed
	Metadata      map[string]json.RawMessage
	Extra         map[string]json.RawMessage

	Line int    // 1-based line number in the source, not serialized
	Raw  []byte // trimmed source line, not serialized
}

// HasEmbedding reports whether the record already carries an embedding.
// A JSON null embedding counts as absent.
func (r *ChunkRecord) HasEmbedding() bool {
	return r.Embedding != nil
}

// ProjectedMetadata is the metadata sub-object of a ProjectedRecord.
// Field order matches the ingestion schema.
type ProjectedMetadata struct {
	SourceType         json.RawMessage `json:"source_type"`
	SyntopiconTags     json.RawMessage `json:"syntopicon_tags"`
	RhetoricalFunction json.RawMessage `json:"rhetorical_function"`
	ScriptureRefs      json.RawMessage `json:"scripture_refs"`
	Topics             json.RawMessage `json:"topics"`
	Entities           json.RawMessage `json:"entities"`
}

// ProjectedRecord is a chunk reshaped for vector store ingestion.
type ProjectedRecord struct {
	ID            string            `json:"id"`
	Content       string            `json:"content"`
	SourceTitle   json.RawMessage   `json:"source_title"`
	Author        json.RawMessage   `json:"author"`
	Year          json.RawMessage   `json:"year"`
	Genre         json.RawMessage   `json:"genre"`
	StructurePath json.RawMessage   `json:"structure_path"`
	ChunkIndex    int               `json:"chunk_index"`
	Embedding     Vector            `json:"embedding"`
	Metadata      ProjectedMetadata `json:"metadata"`
}

// Outcome is the terminal classification of a record within a run.
type Outcome int

const (
	// OutcomeProcessed means the record was handled and written.
	OutcomeProcessed Outcome = iota + 1
	// OutcomeSkipped means the record already had an embedding.
	OutcomeSkipped
	// OutcomeErrored means the record was dropped.
	OutcomeErrored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeSkipped:
		return "skipped-existing"
	case OutcomeErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// UploadReceipt is the ingestion endpoint's response to a successful upload.
type UploadReceipt struct {
	SourceID       FlexibleID `json:"source_id"`
	ChunksCreated  int        `json:"chunks_created"`
	QdrantUploaded bool       `json:"qdrant_uploaded"`
	SourceTitle    string     `json:"source_title"`
	Author         string     `json:"author"`
}

// FlexibleID accepts either a JSON string or a JSON number.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}
