package document

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"html/template"

	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"

	dErrors "attest/pkg/domain-errors"
)

// DefaultSplitBytes is the per-file size threshold. Output that would grow
// past it is continued in a numbered part instead of truncated.
const DefaultSplitBytes = 8 << 20

// File is one rendered artifact with its integrity digest.
type File struct {
	Name   string
	Data   []byte
	Digest string
}

// Package is the full render result: the main document plus zero or more
// exhibit parts. Every file is a complete standalone document.
type Package struct {
	Main  File
	Parts []File
}

// Files returns main plus parts in order.
func (p *Package) Files() []File {
	out := make([]File, 0, 1+len(p.Parts))
	out = append(out, p.Main)
	out = append(out, p.Parts...)
	return out
}

// Renderer converts documents to HTML artifacts. It is stateless per call
// and safe for concurrent use across distinct documents.
type Renderer struct {
	splitBytes int
	tmpl       *template.Template
}

type RendererOption func(*Renderer)

// WithSplitBytes overrides the per-file size threshold.
func WithSplitBytes(n int) RendererOption {
	return func(r *Renderer) {
		if n > 0 {
			r.splitBytes = n
		}
	}
}

func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		splitBytes: DefaultSplitBytes,
		tmpl:       template.Must(template.New("report").Parse(reportTemplate)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces the document as a single file, exhibits included, with no
// splitting applied. Callers that need the size policy use RenderPackage.
func (r *Renderer) Render(doc *Document) ([]byte, error) {
	exhibits, err := r.renderExhibits(doc)
	if err != nil {
		return nil, err
	}
	return r.renderPage(pageData{
		Title:    pageTitle(doc, ""),
		Doc:      doc,
		Body:     true,
		Exhibits: exhibits,
	})
}

// RenderPackage renders the document under the size policy: narrative
// sections, the economy ledger and front matter always stay in the main
// file; exhibits move to numbered parts, lowest evidence number first, once
// the main file would exceed the threshold. Each part is itself a complete
// document, so any part opens standalone.
func (r *Renderer) RenderPackage(ctx context.Context, doc *Document) (*Package, error) {
	exhibits, err := r.renderExhibits(doc)
	if err != nil {
		return nil, err
	}

	frame, err := r.frameOverhead(doc)
	if err != nil {
		return nil, err
	}

	// Measure the narrative with the largest part index it could carry, one
	// part per exhibit, plus the empty exhibits section, so the budget covers
	// all the markup the final main file can add around the kept exhibits.
	worstIndex := make([]string, len(exhibits))
	for i := range worstIndex {
		worstIndex[i] = partName(i + 1)
	}
	narrative, err := r.renderPage(pageData{
		Title:     pageTitle(doc, ""),
		Doc:       doc,
		Body:      true,
		Exhibits:  []template.HTML{""},
		PartIndex: worstIndex,
	})
	if err != nil {
		return nil, err
	}

	// Decide how many exhibits stay in the main file.
	budget := r.splitBytes - len(narrative)
	keep := 0
	for _, snippet := range exhibits {
		if budget-len(snippet) < 0 {
			break
		}
		budget -= len(snippet)
		keep++
	}

	overflow := exhibits[keep:]
	chunks := packChunks(overflow, r.splitBytes-frame)

	partNames := make([]string, len(chunks))
	for i := range chunks {
		partNames[i] = partName(i + 1)
	}

	mainData, err := r.renderPage(pageData{
		Title:     pageTitle(doc, ""),
		Doc:       doc,
		Body:      true,
		Exhibits:  exhibits[:keep],
		PartIndex: partNames,
	})
	if err != nil {
		return nil, err
	}

	pkg := &Package{
		Main:  File{Name: "report.html", Data: mainData, Digest: digest(mainData)},
		Parts: make([]File, len(chunks)),
	}

	g, _ := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			data, err := r.renderPage(pageData{
				Title:    pageTitle(doc, partNames[i]),
				Doc:      doc,
				Exhibits: chunk,
			})
			if err != nil {
				return err
			}
			pkg.Parts[i] = File{Name: partNames[i], Data: data, Digest: digest(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pkg, nil
}

// renderExhibits renders each evidence entry to its own snippet so the
// packing step can measure them individually. Registry order is preserved;
// builders append exhibits in ascending evidence-number order.
func (r *Renderer) renderExhibits(doc *Document) ([]template.HTML, error) {
	out := make([]template.HTML, len(doc.Evidence))
	for i, entry := range doc.Evidence {
		var buf bytes.Buffer
		if err := r.tmpl.ExecuteTemplate(&buf, "exhibit", entry); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeRenderFailure, "failed to render exhibit")
		}
		out[i] = template.HTML(buf.String())
	}
	return out, nil
}

func (r *Renderer) renderPage(data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page", data); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRenderFailure, "failed to render document")
	}
	return buf.Bytes(), nil
}

// frameOverhead measures an exhibit-free part page so packing can budget for
// the markup that wraps every chunk.
func (r *Renderer) frameOverhead(doc *Document) (int, error) {
	empty, err := r.renderPage(pageData{Title: pageTitle(doc, "part-00.html"), Doc: doc})
	if err != nil {
		return 0, err
	}
	return len(empty), nil
}

// packChunks greedily fills parts up to budget without reordering. A single
// snippet larger than the budget still gets its own part; content is never
// truncated.
func packChunks(snippets []template.HTML, budget int) [][]template.HTML {
	var chunks [][]template.HTML
	var current []template.HTML
	size := 0
	for _, snippet := range snippets {
		if len(current) > 0 && size+len(snippet) > budget {
			chunks = append(chunks, current)
			current = nil
			size = 0
		}
		current = append(current, snippet)
		size += len(snippet)
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

func partName(n int) string {
	return fmt.Sprintf("part-%02d.html", n)
}

func digest(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func pageTitle(doc *Document, part string) string {
	title := doc.Metadata.DocumentType
	if doc.Metadata.CaseNumber != "" {
		title += " " + doc.Metadata.CaseNumber
	}
	if part != "" {
		title += " (" + part + ")"
	}
	return title
}

type pageData struct {
	Title string
	Doc   *Document
	// Body controls whether narrative sections and the economy ledger are
	// included; parts carry exhibits only.
	Body      bool
	Exhibits  []template.HTML
	PartIndex []string
}

const reportTemplate = `
{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
{{with .Doc}}<dl>
<dt>Reference</dt><dd>{{.Metadata.ReferenceNumber}}</dd>
<dt>Responsible</dt><dd>{{.Metadata.ResponsibleParty}}</dd>
<dt>Status</dt><dd>{{.Metadata.Status}}</dd>
<dt>Date</dt><dd>{{.Metadata.CreatedAt.Format "2006-01-02"}}</dd>
</dl>
{{if .Metadata.InvolvedParties}}<ul class="parties">
{{range .Metadata.InvolvedParties}}<li>{{.Name}} ({{.Role}})</li>
{{end}}</ul>{{end}}{{end}}
</header>
{{if .Body}}{{range .Doc.Sections}}
<section id="{{.ID}}">
<h2>{{.Title}}</h2>
{{range .Blocks}}{{if eq .Kind "paragraph"}}<p>{{.Text}}</p>
{{else if eq .Kind "list"}}<ul>{{range .Items}}<li>{{.}}</li>{{end}}</ul>
{{end}}{{end}}</section>
{{end}}
{{if .Doc.EconomyLines}}<section class="economy">
<h2>Economic loss</h2>
<table>
<tr><th>Description</th><th>Amount</th><th>Responsible</th></tr>
{{range .Doc.EconomyLines}}<tr><td>{{.Description}}</td><td>{{.AmountCents}}</td><td>{{.ResponsibleParty}}</td></tr>
{{end}}</table>
</section>{{end}}{{end}}
{{if .PartIndex}}<section class="part-index">
<h2>Appendix parts</h2>
<ol>{{range .PartIndex}}<li>{{.}}</li>
{{end}}</ol>
</section>{{end}}
{{if .Exhibits}}<section class="exhibits">
<h2>Evidence exhibits</h2>
{{range .Exhibits}}{{.}}{{end}}
</section>{{end}}
</body>
</html>
{{end}}

{{define "exhibit"}}<article class="exhibit">
<h3>Exhibit {{.Code}}: {{.Title}}</h3>
<p>{{.Description}}</p>
<dl>
<dt>Category</dt><dd>{{.Category}}</dd>
<dt>Date</dt><dd>{{.Date.Format "2006-01-02"}}</dd>
{{if .Source}}<dt>Source</dt><dd>{{.Source}}</dd>{{end}}
</dl>
</article>
{{end}}
`
