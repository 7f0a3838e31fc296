package esm

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	tsxlang "github.com/smacker/go-tree-sitter/typescript/tsx"
	tslang "github.com/smacker/go-tree-sitter/typescript/typescript"
)

var ErrUnsupportedExtension = errors.New("unsupported extension")

// Import is one module reference found in a source file. Specifier is empty when
// a dynamic import has a computed argument.
type Import struct {
	Specifier string
	Dynamic   bool
	TypeOnly  bool
	Line      int
	Column    int
}

type Parser struct {
	js  *sitter.Language
	ts  *sitter.Language
	tsx *sitter.Language
}

func NewParser() *Parser {
	return &Parser{
		js:  javascript.GetLanguage(),
		ts:  tslang.GetLanguage(),
		tsx: tsxlang.GetLanguage(),
	}
}

func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".cjs", ".mjs", ".jsx", ".ts", ".mts", ".cts", ".tsx":
		return true
	default:
		return false
	}
}

// ParseImports returns the static and dynamic imports of source in document order.
// Syntax errors do not fail the parse; whatever tree-sitter recovers is reported.
func (p *Parser) ParseImports(ctx context.Context, path string, source []byte) ([]Import, error) {
	lang, err := p.languageForPath(path)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", path)
	}
	defer tree.Close()

	return collectImports(tree.RootNode(), source), nil
}

func (p *Parser) languageForPath(path string) (*sitter.Language, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".js", ".cjs", ".mjs", ".jsx":
		return p.js, nil
	case ".ts", ".mts", ".cts":
		return p.ts, nil
	case ".tsx":
		return p.tsx, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
}

func collectImports(root *sitter.Node, content []byte) []Import {
	imports := make([]Import, 0)
	walkNode(root, func(node *sitter.Node) {
		switch node.Type() {
		case "import_statement":
			if imp, ok := parseStaticSource(node, content); ok {
				imp.TypeOnly = hasTypeKeyword(node)
				imports = append(imports, imp)
			}
		case "export_statement":
			if imp, ok := parseStaticSource(node, content); ok {
				imp.TypeOnly = hasTypeKeyword(node)
				imports = append(imports, imp)
			}
		case "call_expression":
			if imp, ok := parseDynamicImport(node, content); ok {
				imports = append(imports, imp)
			}
		}
	})
	return imports
}

func walkNode(node *sitter.Node, visit func(*sitter.Node)) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		visit(child)
		walkNode(child, visit)
	}
}

func parseStaticSource(node *sitter.Node, content []byte) (Import, bool) {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		if node.Type() == "export_statement" {
			return Import{}, false
		}
		sourceNode = firstNamedChildOfType(node, "string")
	}
	specifier, ok := extractStringLiteral(sourceNode, content)
	if !ok {
		return Import{}, false
	}
	return makeImport(specifier, false, sourceNode), true
}

func parseDynamicImport(node *sitter.Node, content []byte) (Import, bool) {
	functionNode := node.ChildByFieldName("function")
	if functionNode == nil || functionNode.Type() != "import" {
		return Import{}, false
	}

	argumentsNode := node.ChildByFieldName("arguments")
	if argumentsNode == nil || argumentsNode.NamedChildCount() == 0 {
		return makeImport("", true, node), true
	}

	first := argumentsNode.NamedChild(0)
	if first.Type() != "string" {
		return makeImport("", true, first), true
	}
	specifier, _ := extractStringLiteral(first, content)
	return makeImport(specifier, true, first), true
}

// hasTypeKeyword detects `import type ...` and `export type ... from`, which
// TypeScript erases before the module reaches a browser.
func hasTypeKeyword(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.IsNamed() {
			continue
		}
		if child.Type() == "type" {
			return true
		}
	}
	return false
}

func makeImport(specifier string, dynamic bool, node *sitter.Node) Import {
	return Import{
		Specifier: specifier,
		Dynamic:   dynamic,
		Line:      int(node.StartPoint().Row) + 1,
		Column:    int(node.StartPoint().Column) + 1,
	}
}

func extractStringLiteral(node *sitter.Node, content []byte) (string, bool) {
	if node == nil {
		return "", false
	}

	text := nodeText(node, content)
	if len(text) < 2 {
		return "", false
	}
	quote := text[0]
	if (quote != '"' && quote != '\'') || text[len(text)-1] != quote {
		return "", false
	}
	text, ok := unescapeString(text[1 : len(text)-1])
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

// unescapeString decodes the escape sequences of a JavaScript string literal
// body. Unknown escapes stand for the escaped character itself.
func unescapeString(body string) (string, bool) {
	if !strings.ContainsRune(body, '\\') {
		return body, true
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", false
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\r':
			if i+1 < len(body) && body[i+1] == '\n' {
				i++
			}
		case '\n':
		case 'x':
			r, next, ok := parseHexRune(body, i+1, 2)
			if !ok {
				return "", false
			}
			b.WriteRune(r)
			i = next - 1
		case 'u':
			r, next, ok := parseUnicodeEscape(body, i+1)
			if !ok {
				return "", false
			}
			b.WriteRune(r)
			i = next - 1
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), true
}

// parseUnicodeEscape reads the part after \u: four hex digits or {hex}.
// A surrogate pair written as two \u escapes is combined.
func parseUnicodeEscape(body string, start int) (rune, int, bool) {
	if start < len(body) && body[start] == '{' {
		end := strings.IndexByte(body[start:], '}')
		if end < 2 {
			return 0, 0, false
		}
		value, err := strconv.ParseUint(body[start+1:start+end], 16, 32)
		if err != nil || value > unicode.MaxRune {
			return 0, 0, false
		}
		return rune(value), start + end + 1, true
	}
	r, next, ok := parseHexRune(body, start, 4)
	if !ok {
		return 0, 0, false
	}
	if utf16.IsSurrogate(r) && next+1 < len(body) && body[next] == '\\' && body[next+1] == 'u' {
		if low, after, ok := parseHexRune(body, next+2, 4); ok {
			if combined := utf16.DecodeRune(r, low); combined != unicode.ReplacementChar {
				return combined, after, true
			}
		}
	}
	return r, next, true
}

func parseHexRune(body string, start, digits int) (rune, int, bool) {
	if start+digits > len(body) {
		return 0, 0, false
	}
	value, err := strconv.ParseUint(body[start:start+digits], 16, 32)
	if err != nil {
		return 0, 0, false
	}
	return rune(value), start + digits, true
}

func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(content[node.StartByte():node.EndByte()])
}

func firstNamedChildOfType(node *sitter.Node, types ...string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		for _, typ := range types {
			if child.Type() == typ {
				return child
			}
		}
	}
	return nil
}
