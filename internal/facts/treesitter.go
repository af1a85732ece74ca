//go:build cgo

package facts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Extractor parses source files with tree-sitter and produces ASTFacts.
type Extractor struct {
	parser *sitter.Parser
}

// NewExtractor creates a fact extractor.
func NewExtractor() *Extractor {
	return &Extractor{parser: sitter.NewParser()}
}

// IsAvailable reports whether tree-sitter extraction is compiled in.
func IsAvailable() bool {
	return true
}

// ExtractFile parses one file and returns all facts found. Unreadable,
// unsupported, or unparseable files yield an empty list, never an error.
func (e *Extractor) ExtractFile(ctx context.Context, path string) []ASTFact {
	source, err := os.ReadFile(path)
	if err != nil {
		return []ASTFact{}
	}

	lang, ok := LanguageFromExtension(filepath.Ext(path))
	if !ok {
		return []ASTFact{}
	}

	return e.ExtractSource(ctx, path, source, lang)
}

// ExtractSource extracts facts from source bytes.
func (e *Extractor) ExtractSource(ctx context.Context, path string, source []byte, lang Language) []ASTFact {
	root, err := e.parse(ctx, source, lang)
	if err != nil || root == nil {
		return []ASTFact{}
	}

	v := &visitor{path: path, source: source, lang: lang}
	v.walk(root)
	return v.facts
}

// ExtractDirectory walks all supported source files under root and
// concatenates their facts. Build and dependency directories are skipped;
// a non-existent root yields an empty list.
func (e *Extractor) ExtractDirectory(ctx context.Context, root string) []ASTFact {
	var all []ASTFact

	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if info.IsDir() {
			if path != root && shouldSkipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := LanguageFromExtension(filepath.Ext(path)); !ok {
			return nil
		}
		all = append(all, e.ExtractFile(ctx, path)...)
		return nil
	})

	if all == nil {
		return []ASTFact{}
	}
	return all
}

func (e *Extractor) parse(ctx context.Context, source []byte, lang Language) (*sitter.Node, error) {
	var tsLang *sitter.Language
	switch lang {
	case LangGo:
		tsLang = golang.GetLanguage()
	case LangJavaScript:
		tsLang = javascript.GetLanguage()
	case LangTypeScript:
		tsLang = typescript.GetLanguage()
	case LangTSX:
		tsLang = tsx.GetLanguage()
	case LangPython:
		tsLang = python.GetLanguage()
	default:
		return nil, nil
	}

	e.parser.SetLanguage(tsLang)
	tree, err := e.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	return tree.RootNode(), nil
}

// visitor accumulates facts during a single-file AST walk.
type visitor struct {
	path   string
	source []byte
	lang   Language
	facts  []ASTFact
}

func (v *visitor) walk(node *sitter.Node) {
	if node == nil {
		return
	}

	switch v.lang {
	case LangGo:
		v.visitGo(node)
	case LangPython:
		v.visitPython(node)
	default:
		v.visitScript(node)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		v.walk(node.Child(i))
	}
}

func (v *visitor) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(v.source[node.StartByte():node.EndByte()])
}

func (v *visitor) line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

func (v *visitor) add(fact ASTFact) {
	v.facts = append(v.facts, fact)
}

// --- TypeScript / JavaScript / TSX ---

func (v *visitor) visitScript(node *sitter.Node) {
	switch node.Type() {
	case "function_declaration", "generator_function_declaration":
		v.addScriptFunction(node, "")
	case "method_definition":
		v.addScriptFunction(node, enclosingClassName(node, v))
	case "class_declaration":
		v.addScriptClass(node)
	case "interface_declaration":
		name := v.text(node.ChildByFieldName("name"))
		if name != "" {
			v.add(ASTFact{
				Type: FactType_, Identifier: name, File: v.path, Line: v.line(node),
				Details: Details{Kind: "interface"},
			})
		}
	case "type_alias_declaration":
		name := v.text(node.ChildByFieldName("name"))
		if name != "" {
			v.add(ASTFact{
				Type: FactType_, Identifier: name, File: v.path, Line: v.line(node),
				Details: Details{Kind: "type"},
			})
		}
	case "import_statement":
		v.addScriptImport(node)
	case "export_statement":
		v.addScriptExport(node)
	case "call_expression":
		v.addCall(node, node.ChildByFieldName("function"))
	}
}

func (v *visitor) addScriptFunction(node *sitter.Node, className string) {
	name := v.text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}

	details := Details{
		Parameters: v.scriptParameters(node.ChildByFieldName("parameters")),
		ReturnType: stripTypeAnnotation(v.text(node.ChildByFieldName("return_type"))),
		Async:      hasKeywordChild(node, "async"),
		Exported:   node.Parent() != nil && node.Parent().Type() == "export_statement",
		ClassName:  className,
	}

	v.add(ASTFact{
		Type: FactFunctionDef, Identifier: name, File: v.path, Line: v.line(node),
		Details: details,
	})
}

func (v *visitor) scriptParameters(params *sitter.Node) []Parameter {
	if params == nil {
		return nil
	}

	var out []Parameter
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "required_parameter", "optional_parameter":
			out = append(out, Parameter{
				Name: v.text(p.ChildByFieldName("pattern")),
				Type: stripTypeAnnotation(v.text(p.ChildByFieldName("type"))),
			})
		case "identifier":
			out = append(out, Parameter{Name: v.text(p)})
		}
	}
	return out
}

func (v *visitor) addScriptClass(node *sitter.Node) {
	name := v.text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}

	details := Details{
		Exported: node.Parent() != nil && node.Parent().Type() == "export_statement",
	}

	// extends/implements live in the class_heritage child.
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "class_heritage" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			clause := child.Child(j)
			switch clause.Type() {
			case "extends_clause":
				if val := clause.ChildByFieldName("value"); val != nil {
					details.Extends = v.text(val)
				} else if clause.NamedChildCount() > 0 {
					details.Extends = v.text(clause.NamedChild(0))
				}
			case "implements_clause":
				for k := 0; k < int(clause.NamedChildCount()); k++ {
					details.Implements = append(details.Implements, v.text(clause.NamedChild(k)))
				}
			}
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			member := body.NamedChild(i)
			switch member.Type() {
			case "method_definition":
				details.Methods = append(details.Methods, v.text(member.ChildByFieldName("name")))
			case "public_field_definition", "field_definition":
				details.Properties = append(details.Properties, v.text(member.ChildByFieldName("name")))
			}
		}
	}

	v.add(ASTFact{
		Type: FactClass, Identifier: name, File: v.path, Line: v.line(node),
		Details: details,
	})
}

func (v *visitor) addScriptImport(node *sitter.Node) {
	source := trimQuotes(v.text(node.ChildByFieldName("source")))
	if source == "" {
		return
	}

	details := Details{
		Source:   source,
		TypeOnly: hasKeywordChild(node, "type"),
	}

	var specifiers []string
	for i := 0; i < int(node.ChildCount()); i++ {
		clause := node.Child(i)
		if clause.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			item := clause.NamedChild(j)
			switch item.Type() {
			case "identifier":
				details.IsDefault = true
				specifiers = append(specifiers, v.text(item))
			case "namespace_import":
				details.IsNamespace = true
				if item.NamedChildCount() > 0 {
					specifiers = append(specifiers, v.text(item.NamedChild(0)))
				}
			case "named_imports":
				for k := 0; k < int(item.NamedChildCount()); k++ {
					spec := item.NamedChild(k)
					if spec.Type() == "import_specifier" {
						specifiers = append(specifiers, v.text(spec.ChildByFieldName("name")))
					}
				}
			}
		}
	}
	details.Specifiers = specifiers

	v.add(ASTFact{
		Type: FactImport, Identifier: source, File: v.path, Line: v.line(node),
		Details: details,
	})
}

func (v *visitor) addScriptExport(node *sitter.Node) {
	decl := node.ChildByFieldName("declaration")
	if decl == nil {
		return
	}

	kind := ""
	name := ""
	switch decl.Type() {
	case "function_declaration", "generator_function_declaration":
		kind = "function"
		name = v.text(decl.ChildByFieldName("name"))
	case "class_declaration":
		kind = "class"
		name = v.text(decl.ChildByFieldName("name"))
	case "interface_declaration":
		kind = "interface"
		name = v.text(decl.ChildByFieldName("name"))
	case "type_alias_declaration":
		kind = "type"
		name = v.text(decl.ChildByFieldName("name"))
	case "enum_declaration":
		kind = "enum"
		name = v.text(decl.ChildByFieldName("name"))
	case "lexical_declaration", "variable_declaration":
		kind = "variable"
		if strings.HasPrefix(v.text(decl), "const") {
			kind = "const"
		}
		for i := 0; i < int(decl.NamedChildCount()); i++ {
			d := decl.NamedChild(i)
			if d.Type() == "variable_declarator" {
				name = v.text(d.ChildByFieldName("name"))
				break
			}
		}
	}

	if name == "" {
		return
	}

	v.add(ASTFact{
		Type: FactExport, Identifier: name, File: v.path, Line: v.line(node),
		Details: Details{Kind: kind},
	})
}

// --- Go ---

func (v *visitor) visitGo(node *sitter.Node) {
	switch node.Type() {
	case "function_declaration":
		v.addGoFunction(node, "")
	case "method_declaration":
		v.addGoFunction(node, goReceiverType(node, v))
	case "type_declaration":
		v.addGoTypes(node)
	case "import_spec":
		path := trimQuotes(v.text(node.ChildByFieldName("path")))
		if path != "" {
			v.add(ASTFact{
				Type: FactImport, Identifier: path, File: v.path, Line: v.line(node),
				Details: Details{Source: path},
			})
		}
	case "call_expression":
		v.addCall(node, node.ChildByFieldName("function"))
	}
}

func (v *visitor) addGoFunction(node *sitter.Node, receiver string) {
	name := v.text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}

	exported := len(name) > 0 && unicode.IsUpper(rune(name[0]))

	details := Details{
		Parameters: v.goParameters(node.ChildByFieldName("parameters")),
		ReturnType: strings.TrimSpace(v.text(node.ChildByFieldName("result"))),
		Exported:   exported,
		ClassName:  receiver,
	}

	v.add(ASTFact{
		Type: FactFunctionDef, Identifier: name, File: v.path, Line: v.line(node),
		Details: details,
	})

	if exported {
		v.add(ASTFact{
			Type: FactExport, Identifier: name, File: v.path, Line: v.line(node),
			Details: Details{Kind: "function"},
		})
	}
}

func (v *visitor) goParameters(params *sitter.Node) []Parameter {
	if params == nil {
		return nil
	}

	var out []Parameter
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p.Type() != "parameter_declaration" && p.Type() != "variadic_parameter_declaration" {
			continue
		}
		typeText := strings.TrimSpace(v.text(p.ChildByFieldName("type")))
		named := false
		for j := 0; j < int(p.NamedChildCount()); j++ {
			child := p.NamedChild(j)
			if child.Type() == "identifier" {
				out = append(out, Parameter{Name: v.text(child), Type: typeText})
				named = true
			}
		}
		if !named {
			out = append(out, Parameter{Type: typeText})
		}
	}
	return out
}

func (v *visitor) addGoTypes(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		spec := node.NamedChild(i)
		if spec.Type() != "type_spec" {
			continue
		}
		name := v.text(spec.ChildByFieldName("name"))
		if name == "" {
			continue
		}

		kind := "type"
		if t := spec.ChildByFieldName("type"); t != nil {
			switch t.Type() {
			case "interface_type":
				kind = "interface"
			case "struct_type":
				kind = "struct"
			}
		}

		v.add(ASTFact{
			Type: FactType_, Identifier: name, File: v.path, Line: v.line(spec),
			Details: Details{Kind: kind},
		})

		if unicode.IsUpper(rune(name[0])) {
			v.add(ASTFact{
				Type: FactExport, Identifier: name, File: v.path, Line: v.line(spec),
				Details: Details{Kind: "type"},
			})
		}
	}
}

func goReceiverType(node *sitter.Node, v *visitor) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		p := recv.NamedChild(i)
		if p.Type() == "parameter_declaration" {
			t := strings.TrimSpace(v.text(p.ChildByFieldName("type")))
			return strings.TrimPrefix(t, "*")
		}
	}
	return ""
}

// --- Python ---

func (v *visitor) visitPython(node *sitter.Node) {
	switch node.Type() {
	case "function_definition":
		v.addPythonFunction(node)
	case "class_definition":
		v.addPythonClass(node)
	case "import_statement", "import_from_statement":
		v.addPythonImport(node)
	case "call":
		v.addCall(node, node.ChildByFieldName("function"))
	}
}

func (v *visitor) addPythonFunction(node *sitter.Node) {
	name := v.text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}

	className := ""
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "class_definition" {
			className = v.text(p.ChildByFieldName("name"))
			break
		}
	}

	var params []Parameter
	if pn := node.ChildByFieldName("parameters"); pn != nil {
		for i := 0; i < int(pn.NamedChildCount()); i++ {
			p := pn.NamedChild(i)
			switch p.Type() {
			case "identifier":
				params = append(params, Parameter{Name: v.text(p)})
			case "typed_parameter", "default_parameter", "typed_default_parameter":
				pname := ""
				if p.NamedChildCount() > 0 {
					pname = v.text(p.NamedChild(0))
				}
				params = append(params, Parameter{
					Name: pname,
					Type: strings.TrimSpace(v.text(p.ChildByFieldName("type"))),
				})
			}
		}
	}

	v.add(ASTFact{
		Type: FactFunctionDef, Identifier: name, File: v.path, Line: v.line(node),
		Details: Details{
			Parameters: params,
			ReturnType: strings.TrimSpace(v.text(node.ChildByFieldName("return_type"))),
			Async:      hasKeywordChild(node, "async"),
			ClassName:  className,
		},
	})
}

func (v *visitor) addPythonClass(node *sitter.Node) {
	name := v.text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}

	details := Details{}
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			base := v.text(supers.NamedChild(i))
			if details.Extends == "" {
				details.Extends = base
			} else {
				details.Implements = append(details.Implements, base)
			}
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			member := body.NamedChild(i)
			if member.Type() == "function_definition" {
				details.Methods = append(details.Methods, v.text(member.ChildByFieldName("name")))
			}
		}
	}

	v.add(ASTFact{
		Type: FactClass, Identifier: name, File: v.path, Line: v.line(node),
		Details: details,
	})
}

func (v *visitor) addPythonImport(node *sitter.Node) {
	source := ""
	var specifiers []string

	if node.Type() == "import_from_statement" {
		source = v.text(node.ChildByFieldName("module_name"))
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "dotted_name" && v.text(child) != source {
				specifiers = append(specifiers, v.text(child))
			}
		}
	} else {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "dotted_name" || child.Type() == "aliased_import" {
				if source == "" {
					source = v.text(child)
				}
			}
		}
	}

	if source == "" {
		return
	}

	v.add(ASTFact{
		Type: FactImport, Identifier: source, File: v.path, Line: v.line(node),
		Details: Details{Source: source, Specifiers: specifiers},
	})
}

// --- shared ---

// addCall records a caller/callee pair. The caller is the nearest
// enclosing function or method; top-level calls get an empty caller.
func (v *visitor) addCall(node, fn *sitter.Node) {
	if fn == nil {
		return
	}

	callee := ""
	switch fn.Type() {
	case "identifier":
		callee = v.text(fn)
	case "member_expression":
		callee = v.text(fn.ChildByFieldName("property"))
	case "selector_expression":
		callee = v.text(fn.ChildByFieldName("field"))
	case "attribute":
		callee = v.text(fn.ChildByFieldName("attribute"))
	default:
		return
	}
	if callee == "" {
		return
	}

	v.add(ASTFact{
		Type: FactCall, Identifier: callee, File: v.path, Line: v.line(node),
		Details: Details{
			Caller: v.enclosingFunctionName(node),
			Callee: callee,
		},
	})
}

func (v *visitor) enclosingFunctionName(node *sitter.Node) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "function_declaration", "generator_function_declaration",
			"method_definition", "method_declaration", "function_definition":
			return v.text(p.ChildByFieldName("name"))
		}
	}
	return ""
}

func enclosingClassName(node *sitter.Node, v *visitor) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "class_declaration" || p.Type() == "class_definition" {
			return v.text(p.ChildByFieldName("name"))
		}
	}
	return ""
}

func hasKeywordChild(node *sitter.Node, keyword string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == keyword {
			return true
		}
	}
	return false
}

func stripTypeAnnotation(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), ":"))
}

func trimQuotes(s string) string {
	return strings.Trim(s, `"'`+"`")
}
