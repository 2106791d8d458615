// Package ast defines the parse tree produced by internal/parser: modules,
// definitions, statements and expressions (spec §3, §4.1).
package ast

import (
	"github.com/wigmorewelsh/structured-agent/internal/source"
	"github.com/wigmorewelsh/structured-agent/internal/types"
)

// Node is the base interface implemented by every AST node.
type Node interface {
	Span() source.Span
}

// Statement is a Node that appears inside a FunctionBody.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that appears in expression position.
type Expression interface {
	Node
	expressionNode()
}

// Param is one function parameter: name and declared type.
type Param struct {
	Name string
	Type types.Type
}

// Function is a user-defined function definition.
type Function struct {
	Name          string
	Parameters    []Param
	ReturnType    types.Type
	Body          *FunctionBody
	Documentation string
	SpanValue     source.Span
}

func (f *Function) Span() source.Span { return f.SpanValue }

// ExternalFunction is an `extern fn` declaration, matched at runtime
// construction against registered FunctionProviders.
type ExternalFunction struct {
	Name          string
	Parameters    []Param
	ReturnType    types.Type
	Documentation string
	SpanValue     source.Span
}

func (e *ExternalFunction) Span() source.Span { return e.SpanValue }

// Definition is either a Function or an ExternalFunction.
type Definition interface {
	Node
	definitionNode()
}

func (*Function) definitionNode()         {}
func (*ExternalFunction) definitionNode() {}

// Module is the root of the parse tree: an ordered sequence of definitions.
type Module struct {
	File  source.FileId
	Defs  []Definition
}

// FunctionBody is an ordered sequence of statements.
type FunctionBody struct {
	Statements []Statement
	SpanValue  source.Span
}

func (b *FunctionBody) Span() source.Span { return b.SpanValue }

// ---- Statements ----

// Assignment declares a new local: `let name = expr`.
type Assignment struct {
	Name      string
	Value     Expression
	SpanValue source.Span
}

func (*Assignment) statementNode()        {}
func (a *Assignment) Span() source.Span { return a.SpanValue }

// VariableAssignment reassigns an existing local: `name = expr`.
type VariableAssignment struct {
	Name      string
	Value     Expression
	SpanValue source.Span
}

func (*VariableAssignment) statementNode()        {}
func (a *VariableAssignment) Span() source.Span { return a.SpanValue }

// Injection is `expr!`: evaluate expr, append an unnamed event.
type Injection struct {
	Value     Expression
	SpanValue source.Span
}

func (*Injection) statementNode()        {}
func (i *Injection) Span() source.Span { return i.SpanValue }

// ExpressionStatement is a bare expression used as a statement.
type ExpressionStatement struct {
	Value     Expression
	SpanValue source.Span
}

func (*ExpressionStatement) statementNode()        {}
func (e *ExpressionStatement) Span() source.Span { return e.SpanValue }

// If is the statement-level `if cond { .. } else { .. }`.
type If struct {
	Condition Expression
	Body      *FunctionBody
	ElseBody  *FunctionBody // nil if absent
	SpanValue source.Span
}

func (*If) statementNode()        {}
func (i *If) Span() source.Span { return i.SpanValue }

// While is `while cond { .. }`.
type While struct {
	Condition Expression
	Body      *FunctionBody
	SpanValue source.Span
}

func (*While) statementNode()        {}
func (w *While) Span() source.Span { return w.SpanValue }

// Return is `return expr`.
type Return struct {
	Value     Expression
	SpanValue source.Span
}

func (*Return) statementNode()        {}
func (r *Return) Span() source.Span { return r.SpanValue }

// ---- Expressions ----

// StringLiteral is a quoted or triple-quoted raw string literal.
type StringLiteral struct {
	Value     string
	SpanValue source.Span
}

func (*StringLiteral) expressionNode()     {}
func (s *StringLiteral) Span() source.Span { return s.SpanValue }

// BooleanLiteral is `true` or `false`.
type BooleanLiteral struct {
	Value     bool
	SpanValue source.Span
}

func (*BooleanLiteral) expressionNode()     {}
func (b *BooleanLiteral) Span() source.Span { return b.SpanValue }

// ListLiteral is `[e1, e2, ...]`.
type ListLiteral struct {
	Elements  []Expression
	SpanValue source.Span
}

func (*ListLiteral) expressionNode()     {}
func (l *ListLiteral) Span() source.Span { return l.SpanValue }

// UnitLiteral is `()`.
type UnitLiteral struct {
	SpanValue source.Span
}

func (*UnitLiteral) expressionNode()     {}
func (u *UnitLiteral) Span() source.Span { return u.SpanValue }

// Variable is a bare identifier reference.
type Variable struct {
	Name      string
	SpanValue source.Span
}

func (*Variable) expressionNode()     {}
func (v *Variable) Span() source.Span { return v.SpanValue }

// Placeholder is `_`, valid only in call-argument position.
type Placeholder struct {
	SpanValue source.Span
}

func (*Placeholder) expressionNode()     {}
func (p *Placeholder) Span() source.Span { return p.SpanValue }

// Call is `function(arg, arg, ...)`.
type Call struct {
	Function  string
	Arguments []Expression
	SpanValue source.Span
}

func (*Call) expressionNode()     {}
func (c *Call) Span() source.Span { return c.SpanValue }

// IfElse is the expression-level `if cond { then } else { else }`.
type IfElse struct {
	Condition Expression
	Then      Expression
	Else      Expression
	SpanValue source.Span
}

func (*IfElse) expressionNode()     {}
func (i *IfElse) Span() source.Span { return i.SpanValue }

// SelectClause is one `expr as name => next` clause of a Select.
type SelectClause struct {
	ExpressionToRun Expression
	ResultVariable  string
	ExpressionNext  Expression
	SpanValue       source.Span
}

func (s *SelectClause) Span() source.Span { return s.SpanValue }

// Select is `select { clause, clause, ... }`.
type Select struct {
	Clauses   []*SelectClause
	SpanValue source.Span
}

func (*Select) expressionNode()     {}
func (s *Select) Span() source.Span { return s.SpanValue }
