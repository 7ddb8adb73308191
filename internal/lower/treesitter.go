package lower

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"tsderive/internal/source"
)

// TreeSitter lowers TypeScript (and TSX, chosen by file extension) with the
// tree-sitter grammars. A fresh parser is created per call, so one value can
// be shared by concurrent expansions.
type TreeSitter struct{}

// NewTreeSitter returns the tree-sitter backed Lowerer.
func NewTreeSitter() *TreeSitter {
	return &TreeSitter{}
}

// Lower parses src and extracts top-level declarations with their markers.
func (l *TreeSitter) Lower(ctx context.Context, src, fileName string) (*File, error) {
	parser := sitter.NewParser()
	if strings.HasSuffix(fileName, ".tsx") {
		parser.SetLanguage(tsx.GetLanguage())
	} else {
		parser.SetLanguage(typescript.GetLanguage())
	}

	content := []byte(src)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fileName, err)
	}

	w := &walker{src: content}
	file := &File{Name: fileName}
	w.collectDecls(tree.RootNode(), file)
	return file, nil
}

type walker struct {
	src []byte
}

func (w *walker) span(n *sitter.Node) source.Span {
	return source.Span{Start: n.StartByte(), End: n.EndByte()}
}

// pending tracks comments and decorators that directly precede the next
// declaration or member.
type pending struct {
	markers []Marker
	lastEnd uint32
	has     bool
}

func (p *pending) reset() {
	p.markers = nil
	p.has = false
}

// adjacent reports whether only whitespace separates the pending carriers
// from the node starting at start.
func (w *walker) adjacent(p *pending, start uint32) bool {
	if !p.has || start < p.lastEnd {
		return false
	}
	return strings.TrimSpace(string(w.src[p.lastEnd:start])) == ""
}

func (w *walker) addCarrier(p *pending, n *sitter.Node) {
	if p.has && !w.adjacent(p, n.StartByte()) {
		p.reset()
	}
	p.markers = append(p.markers, ParseMarkers(n.Content(w.src), w.span(n))...)
	p.lastEnd = n.EndByte()
	p.has = true
}

// take returns the pending markers when they are adjacent to node n.
func (w *walker) take(p *pending, n *sitter.Node) []Marker {
	var out []Marker
	if w.adjacent(p, n.StartByte()) {
		out = p.markers
	}
	p.reset()
	return out
}

func (w *walker) collectDecls(root *sitter.Node, file *File) {
	var p pending
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "comment":
			w.addCarrier(&p, child)
			continue
		case "decorator":
			w.addCarrier(&p, child)
			continue
		}

		leading := w.take(&p, child)
		decl := w.lowerStatement(child)
		if decl == nil {
			continue
		}
		decl.Markers = append(leading, decl.Markers...)
		file.Decls = append(file.Decls, decl)
	}
}

// lowerStatement handles both bare declarations and `export` wrappers.
func (w *walker) lowerStatement(n *sitter.Node) *Decl {
	if n.Type() != "export_statement" {
		return w.lowerDecl(n)
	}
	inner := n.ChildByFieldName("declaration")
	if inner == nil {
		return nil
	}
	decl := w.lowerDecl(inner)
	if decl == nil {
		return nil
	}
	decl.Exported = true
	decl.Span = w.span(n)
	// `@dec export class X {}` puts decorators on the export statement
	var own []Marker
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "decorator" {
			own = append(own, ParseMarkers(c.Content(w.src), w.span(c))...)
		}
	}
	decl.Markers = append(own, decl.Markers...)
	return decl
}

func (w *walker) lowerDecl(n *sitter.Node) *Decl {
	var kind DeclKind
	switch n.Type() {
	case "class_declaration", "abstract_class_declaration", "class":
		kind = DeclClass
	case "interface_declaration":
		kind = DeclInterface
	case "enum_declaration":
		kind = DeclEnum
	case "type_alias_declaration":
		kind = DeclTypeAlias
	default:
		return nil
	}

	decl := &Decl{Kind: kind, Span: w.span(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		decl.Name = name.Content(w.src)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "decorator" {
			decl.Markers = append(decl.Markers, ParseMarkers(c.Content(w.src), w.span(c))...)
		}
	}

	body := n.ChildByFieldName("body")
	if kind == DeclTypeAlias {
		if v := n.ChildByFieldName("value"); v != nil && v.Type() == "object_type" {
			body = v
		}
	}
	if body == nil {
		return decl
	}
	decl.BodySpan = w.span(body)

	switch kind {
	case DeclEnum:
		w.collectEnumMembers(body, decl)
	default:
		w.collectMembers(body, decl)
	}
	return decl
}

func (w *walker) collectEnumMembers(body *sitter.Node, decl *Decl) {
	var p pending
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "comment":
			w.addCarrier(&p, c)
		case "property_identifier", "string":
			decl.Fields = append(decl.Fields, Field{Name: c.Content(w.src), Span: w.span(c), Markers: w.take(&p, c)})
		case "enum_assignment":
			f := Field{Span: w.span(c), Markers: w.take(&p, c)}
			if name := c.ChildByFieldName("name"); name != nil {
				f.Name = name.Content(w.src)
			}
			decl.Fields = append(decl.Fields, f)
		}
	}
}

func (w *walker) collectMembers(body *sitter.Node, decl *Decl) {
	var p pending
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "comment", "decorator":
			w.addCarrier(&p, c)
		case "public_field_definition", "property_signature":
			f := w.lowerField(c)
			f.Markers = append(w.take(&p, c), f.Markers...)
			decl.Fields = append(decl.Fields, f)
		case "method_definition", "method_signature", "abstract_method_signature":
			m := w.lowerMethod(c)
			m.Markers = append(w.take(&p, c), m.Markers...)
			decl.Methods = append(decl.Methods, m)
		default:
			p.reset()
		}
	}
}

func (w *walker) lowerField(n *sitter.Node) Field {
	f := Field{Span: w.span(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		f.Name = name.Content(w.src)
	}
	if typ := n.ChildByFieldName("type"); typ != nil {
		f.TypeText = typeText(typ.Content(w.src))
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "?":
			f.Optional = true
		case "readonly":
			f.Readonly = true
		case "static":
			f.Static = true
		case "accessibility_modifier":
			f.Visibility = visibility(c.Content(w.src))
		case "decorator":
			f.Markers = append(f.Markers, ParseMarkers(c.Content(w.src), w.span(c))...)
		}
	}
	if strings.HasPrefix(f.Name, "#") {
		f.Visibility = VisPrivate
	}
	return f
}

func (w *walker) lowerMethod(n *sitter.Node) Method {
	m := Method{Span: w.span(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		m.Name = name.Content(w.src)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		m.ParamsText = params.Content(w.src)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		m.ReturnText = typeText(ret.Content(w.src))
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "static":
			m.Static = true
		case "accessibility_modifier":
			m.Visibility = visibility(c.Content(w.src))
		}
	}
	return m
}

// typeText strips the leading colon of a type annotation.
func typeText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, ":")
	return strings.TrimSpace(s)
}

func visibility(s string) Visibility {
	switch strings.TrimSpace(s) {
	case "private":
		return VisPrivate
	case "protected":
		return VisProtected
	default:
		return VisPublic
	}
}
