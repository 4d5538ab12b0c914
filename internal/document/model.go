// Package document is the in-memory model of a structured legal report and
// its renderer. A Document is built once per render request from a report
// instance and its evidence snapshots, rendered, and discarded.
package document

import "time"

// Party names an involved party and the role it plays in the case.
type Party struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Metadata is the document front matter.
type Metadata struct {
	DocumentType     string    `json:"document_type"`
	CaseNumber       string    `json:"case_number"`
	ReferenceNumber  string    `json:"reference_number"`
	CreatedAt        time.Time `json:"created_at"`
	ResponsibleParty string    `json:"responsible_party"`
	InvolvedParties  []Party   `json:"involved_parties"`
	Status           string    `json:"status"`
}

// BlockKind discriminates the content block variants.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockList      BlockKind = "list"
)

// Block is one typed unit of section content.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Items []string  `json:"items,omitempty"`
}

// Paragraph builds a paragraph block.
func Paragraph(text string) Block {
	return Block{Kind: BlockParagraph, Text: text}
}

// List builds a list block.
func List(items ...string) Block {
	return Block{Kind: BlockList, Items: items}
}

// Section is an ordered run of blocks under one heading.
type Section struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

// EvidenceEntry is one exhibit in the document's evidence registry. Code is
// the citable label, typically the evidence number.
type EvidenceEntry struct {
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	Source      string    `json:"source"`
}

// EconomyLine is one row of the economic-loss ledger.
type EconomyLine struct {
	Description      string `json:"description"`
	AmountCents      int64  `json:"amount_cents"`
	ResponsibleParty string `json:"responsible_party"`
}

// Document is the complete logical report handed to the renderer. Narrative
// sections and the economy ledger form the main body; evidence entries are
// the exhibits, rendered last and split off first when size demands it.
type Document struct {
	Metadata     Metadata        `json:"metadata"`
	Sections     []Section       `json:"sections"`
	Evidence     []EvidenceEntry `json:"evidence"`
	EconomyLines []EconomyLine   `json:"economy_lines"`
}
