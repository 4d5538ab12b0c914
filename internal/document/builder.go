package document

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	dErrors "attest/pkg/domain-errors"
)

// Builder is a fluent accumulator for documents. It performs no validation
// while accumulating; structural checks run once at Build so incremental use
// stays cheap and a malformed document is still caught before rendering.
type Builder struct {
	doc Document
}

// NewBuilder starts a document with the given front matter.
func NewBuilder(meta Metadata) *Builder {
	return &Builder{doc: Document{Metadata: meta}}
}

// AddSection appends a narrative section.
func (b *Builder) AddSection(section Section) *Builder {
	b.doc.Sections = append(b.doc.Sections, section)
	return b
}

// AddEvidence appends one exhibit to the evidence registry.
func (b *Builder) AddEvidence(entry EvidenceEntry) *Builder {
	b.doc.Evidence = append(b.doc.Evidence, entry)
	return b
}

// AddEconomyLine appends one ledger row.
func (b *Builder) AddEconomyLine(line EconomyLine) *Builder {
	b.doc.EconomyLines = append(b.doc.EconomyLines, line)
	return b
}

// Build validates the accumulated document and returns it. Missing required
// metadata surfaces here as an invalid-document error, never earlier.
func (b *Builder) Build() (*Document, error) {
	meta := b.doc.Metadata
	err := validation.ValidateStruct(&meta,
		validation.Field(&meta.DocumentType, validation.Required),
		validation.Field(&meta.CaseNumber, validation.Required),
		validation.Field(&meta.ResponsibleParty, validation.Required),
		validation.Field(&meta.CreatedAt, validation.Required),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidDocument, "document metadata incomplete")
	}
	for _, section := range b.doc.Sections {
		if section.Title == "" {
			return nil, dErrors.New(dErrors.CodeInvalidDocument, "section title is required")
		}
		for _, block := range section.Blocks {
			switch block.Kind {
			case BlockParagraph, BlockList:
			default:
				return nil, dErrors.Newf(dErrors.CodeInvalidDocument, "unknown block kind %q", block.Kind)
			}
		}
	}
	for _, entry := range b.doc.Evidence {
		if entry.Code == "" {
			return nil, dErrors.New(dErrors.CodeInvalidDocument, "evidence entry code is required")
		}
	}

	doc := b.doc
	return &doc, nil
}
