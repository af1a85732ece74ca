// Package facts extracts structured, verifiable facts from source code.
// Facts are derived fresh from the tree on every call and are never
// persisted by this package.
package facts

// FactType classifies an extracted AST fact.
type FactType string

const (
	// FactFunctionDef is a function or method definition
	FactFunctionDef FactType = "function_def"
	// FactImport is an import of another module
	FactImport FactType = "import"
	// FactExport is an exported declaration
	FactExport FactType = "export"
	// FactClass is a class declaration
	FactClass FactType = "class"
	// FactCall is a caller/callee pair
	FactCall FactType = "call"
	// FactType_ is a type or interface declaration
	FactType_ FactType = "type"
)

// Parameter is one declared function parameter.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Details carries the type-specific payload of an ASTFact. Only the
// fields relevant to the fact's type are populated.
type Details struct {
	// Function details
	Parameters []Parameter `json:"parameters,omitempty"`
	ReturnType string      `json:"returnType,omitempty"`
	Async      bool        `json:"async,omitempty"`
	Exported   bool        `json:"exported,omitempty"`
	ClassName  string      `json:"className,omitempty"` // enclosing class when the function is a method

	// Import details
	Source      string   `json:"source,omitempty"` // imported module path
	Specifiers  []string `json:"specifiers,omitempty"`
	IsDefault   bool     `json:"isDefault,omitempty"`
	IsNamespace bool     `json:"isNamespace,omitempty"`
	TypeOnly    bool     `json:"typeOnly,omitempty"`

	// Export / type details
	Kind string `json:"kind,omitempty"` // function|class|interface|type|variable|const|enum

	// Class details
	Methods    []string `json:"methods,omitempty"`
	Properties []string `json:"properties,omitempty"`
	Implements []string `json:"implements,omitempty"`
	Extends    string   `json:"extends,omitempty"`

	// Call details
	Caller string `json:"caller,omitempty"`
	Callee string `json:"callee,omitempty"`
}

// ASTFact is a structural fact extracted from source, with provenance.
type ASTFact struct {
	Type       FactType `json:"type"`
	Identifier string   `json:"identifier"`
	File       string   `json:"file"`
	Line       int      `json:"line"` // 1-indexed
	Details    Details  `json:"details"`
}

// Location is a file/line/column source position.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`   // 1-indexed
	Column int    `json:"column"` // 1-indexed
}

// VerifiableFactType classifies a normalized fact for comparison use.
type VerifiableFactType string

const (
	VerifiableFunctionCall   VerifiableFactType = "function_call"
	VerifiableImport         VerifiableFactType = "import"
	VerifiableExport         VerifiableFactType = "export"
	VerifiableTypeDef        VerifiableFactType = "type_def"
	VerifiableVariableDef    VerifiableFactType = "variable_def"
	VerifiableInheritance    VerifiableFactType = "inheritance"
	VerifiableImplementation VerifiableFactType = "implementation"
)

// VerifiableFact is a normalized, comparison-friendly fact used for
// precision/recall round trips independent of the richer ASTFact shape.
type VerifiableFact struct {
	FactID     string             `json:"factId"` // stable: file:line:type:identifier
	FactType   VerifiableFactType `json:"factType"`
	Location   Location           `json:"location"`
	Content    string             `json:"content"` // raw source snippet
	Verifiable bool               `json:"verifiable"`
	Confidence float64            `json:"confidence"`
}
