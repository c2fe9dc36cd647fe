// Package ast defines the abstract syntax tree the parser builds: a tagged
// node with an ordered child list, an originating token, an optional
// auxiliary value, and a slot for the type the semantic analyzer infers.
//
// The tree is owned, never shared: every node has exactly one parent (or is
// the root held by the parser driver), and children order is semantically
// significant — it is never reordered after AddChild.
package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/vitortec/compilador/internal/mem"
	"github.com/vitortec/compilador/internal/token"
	"github.com/vitortec/compilador/internal/types"
)

// Kind identifies one of the seventeen AST node categories.
type Kind int

const (
	Program Kind = iota
	Declaration
	Assignment
	Expression
	IfStmt
	WhileStmt
	ForStmt
	ReadStmt
	WriteStmt
	Block
	BinaryOp
	UnaryOp
	Literal
	Identifier
	FunctionDef
	FunctionCall
	ReturnStmt
)

var kindNames = [...]string{
	Program:      "PROGRAM",
	Declaration:  "DECLARATION",
	Assignment:   "ASSIGNMENT",
	Expression:   "EXPRESSION",
	IfStmt:       "IF_STMT",
	WhileStmt:    "WHILE_STMT",
	ForStmt:      "FOR_STMT",
	ReadStmt:     "READ_STMT",
	WriteStmt:    "WRITE_STMT",
	Block:        "BLOCK",
	BinaryOp:     "BINARY_OP",
	UnaryOp:      "UNARY_OP",
	Literal:      "LITERAL",
	Identifier:   "IDENTIFIER",
	FunctionDef:  "FUNCTION_DEF",
	FunctionCall: "FUNCTION_CALL",
	ReturnStmt:   "RETURN_STMT",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

const initialChildCapacity = 4

// Node is a single AST vertex. Inferred starts Unresolved and is memoized by
// the semantic analyzer the first time the node's type is asked for.
type Node struct {
	Kind     Kind
	Token    token.Token
	Children []*Node
	Value    string // optional auxiliary text (e.g. a type name, a parameter count)
	Inferred types.Type

	handle *mem.Handle
}

// nodeHeaderSize is the logical size charged to the accountant for a bare
// node, mirroring the original allocator's per-struct accounting.
const nodeHeaderSize = 48

// New allocates a node of the given kind from tok, charging its logical size
// to acc. acc may be nil in tests that don't care about memory accounting.
func New(acc *mem.Accountant, kind Kind, tok token.Token) (*Node, error) {
	n := &Node{
		Kind:     kind,
		Token:    tok,
		Children: make([]*Node, 0, initialChildCapacity),
	}
	if acc != nil {
		h, err := acc.Alloc(uint64(nodeHeaderSize + len(tok.Lexeme)))
		if _, exhausted := err.(*mem.ErrMemoryExhausted); exhausted {
			return nil, err
		}
		n.handle = h
		if err != nil {
			// A *mem.Warning: the node is still valid, but the caller should
			// surface the crossed-threshold notice.
			return n, err
		}
	}
	return n, nil
}

// AddChild appends child to parent's children, preserving order. The
// underlying slice grows with Go's native amortized-doubling append; no
// separate capacity bookkeeping is needed the way the original C array was.
func (parent *Node) AddChild(child *Node) {
	parent.Children = append(parent.Children, child)
}

// Free releases node and its subtree in post-order, crediting each node's
// logical size back to acc. acc may be nil, matching New.
func Free(acc *mem.Accountant, node *Node) {
	if node == nil {
		return
	}
	for _, c := range node.Children {
		Free(acc, c)
	}
	if acc != nil {
		acc.Free(node.handle)
	}
	node.Children = nil
}

// Print writes node's subtree to w, two spaces per depth level, the node
// kind, the originating lexeme if non-empty, and a parenthesized auxiliary
// value if set.
func Print(w io.Writer, node *Node, depth int) {
	if node == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	line := indent + node.Kind.String()
	if node.Token.Lexeme != "" {
		line += " " + node.Token.Lexeme
	}
	if node.Value != "" {
		line += fmt.Sprintf(" (%s)", node.Value)
	}
	fmt.Fprintln(w, line)
	for _, c := range node.Children {
		Print(w, c, depth+1)
	}
}
