// Package sema is the two-phase semantic analyzer: it first indexes every
// top-level function so forward calls resolve, then walks each function
// body (and any top-level statements outside `principal`) in its own
// scope, inferring and memoizing the type of every expression it visits.
//
// Every diagnostic this package raises is a semantic alert (non-fatal) per
// spec §7, except the structural failures of a nil tree or nil analyzer,
// which halt analysis outright.
package sema

import (
	"strings"

	"github.com/vitortec/compilador/internal/ast"
	"github.com/vitortec/compilador/internal/mem"
	"github.com/vitortec/compilador/internal/report"
	"github.com/vitortec/compilador/internal/symtab"
	"github.com/vitortec/compilador/internal/token"
	"github.com/vitortec/compilador/internal/types"
)

// Analyzer owns the symbol table built up over one compilation unit.
type Analyzer struct {
	symtab   *symtab.SymTab
	sink     *report.Sink
	errCount int
}

// New returns an Analyzer backed by a fresh symbol table whose Inserts are
// charged to acc. acc may be nil in tests that don't exercise memory
// accounting.
func New(acc *mem.Accountant, sink *report.Sink) *Analyzer {
	return &Analyzer{symtab: symtab.New(acc), sink: sink}
}

// SymTab exposes the analyzer's symbol table, mainly so the driver can Dump
// it after analysis finishes.
func (a *Analyzer) SymTab() *symtab.SymTab { return a.symtab }

func (a *Analyzer) alert(line int, message string) {
	a.errCount++
	a.sink.Add(report.Diagnostic{Severity: report.SeverityAlert, Line: line, Message: message})
}

// noParent marks a statement as reached through a block or a top-level
// list rather than as the single bare-statement body of leia/escreva/se/for
// — the one context where a declaration is always permitted.
const noParent = ast.Kind(-1)

// Analyze runs both phases over program and reports whether it found zero
// semantic errors. It always completes both phases even if earlier
// statements failed, so later errors in the same file are still reported.
func (a *Analyzer) Analyze(program *ast.Node) bool {
	if program == nil || program.Kind != ast.Program {
		a.sink.Add(report.Diagnostic{Severity: report.SeverityStructural, Message: "árvore sintática ausente ou inválida: análise semântica abortada"})
		return false
	}

	a.indexFunctions(program)

	for _, child := range program.Children {
		if child.Kind == ast.FunctionDef {
			a.analyzeFunction(child)
		} else {
			a.analyzeStatement(child, noParent)
		}
	}
	return a.errCount == 0
}

// indexFunctions registers every top-level `funcao` definition before any
// body is walked, so mutually recursive calls resolve regardless of
// declaration order. Redeclaration and a missing "__" prefix are both
// alerts, not fatal — the offending definition is still indexed under its
// given name so later call sites don't cascade into "unknown function"
// noise.
func (a *Analyzer) indexFunctions(program *ast.Node) {
	for _, child := range program.Children {
		if child.Kind != ast.FunctionDef || len(child.Children) == 0 {
			continue
		}
		name := child.Children[0]
		if !strings.HasPrefix(name.Token.Lexeme, "__") {
			a.alert(name.Token.Line, "nome de função deve começar com '__': "+name.Token.Lexeme)
		}

		params := functionParams(child)
		sym := symtab.Symbol{
			Name:       name.Token.Lexeme,
			Class:      symtab.Func,
			Type:       typeFromKeyword(child.Value),
			Line:       child.Token.Line,
			ParamCount: len(params),
		}
		if inserted, err := a.symtab.Insert(sym); !inserted {
			a.alert(name.Token.Line, "função redeclarada: "+name.Token.Lexeme)
		} else if err != nil {
			a.alert(name.Token.Line, err.Error())
		}
	}
}

// functionParams returns a FunctionDef's parameter declarations: every
// child except the leading name and the trailing body block.
func functionParams(fn *ast.Node) []*ast.Node {
	if len(fn.Children) < 2 {
		return nil
	}
	return fn.Children[1 : len(fn.Children)-1]
}

func typeFromKeyword(word string) types.Type {
	switch word {
	case "inteiro":
		return types.IntType
	case "decimal":
		return types.NewDecimal(0, 0)
	case "texto":
		return types.NewText(0)
	default:
		return types.Type{}
	}
}

// analyzeFunction opens a fresh scope, registers parameters as Symbols,
// walks the body, then checks that every `retorne` reached in the body
// agrees on its inferred kind.
func (a *Analyzer) analyzeFunction(fn *ast.Node) {
	a.symtab.EnterScope()
	defer a.symtab.LeaveScope()

	for _, param := range functionParams(fn) {
		a.analyzeDeclaration(param, symtab.Param)
	}

	body := fn.Children[len(fn.Children)-1]
	if body.Kind != ast.Block {
		return
	}
	a.analyzeBlockBody(body)
	a.checkReturnConsistency(fn, body)
}

// analyzeStatement dispatches on node's kind. parent is the immediately
// enclosing control-flow statement when node is reached as its single bare
// statement body (noParent otherwise), used to flag a declaration appearing
// where the language never gives it a scope of its own.
func (a *Analyzer) analyzeStatement(node *ast.Node, parent ast.Kind) {
	if node == nil {
		return
	}
	switch node.Kind {
	case ast.Declaration:
		if declarationForbiddenUnder(parent) {
			a.alert(node.Token.Line, "declaração fora do escopo permitido")
		}
		a.analyzeDeclaration(node, symtab.Var)
	case ast.Assignment:
		a.analyzeAssignment(node)
	case ast.IfStmt:
		a.analyzeIf(node)
	case ast.WhileStmt:
		a.analyzeWhile(node)
	case ast.ForStmt:
		a.analyzeFor(node)
	case ast.ReadStmt:
		a.analyzeRead(node)
	case ast.WriteStmt:
		a.analyzeWrite(node)
	case ast.ReturnStmt:
		a.analyzeReturnStatement(node)
	case ast.Block:
		a.symtab.EnterScope()
		a.analyzeBlockBody(node)
		a.symtab.LeaveScope()
	default:
		a.resolveExprType(node)
	}
}

// declarationForbiddenUnder reports whether parent is one of the control
// forms whose single bare-statement body never opens a scope of its own —
// leia, escreva, se, and for, but not enquanto.
func declarationForbiddenUnder(parent ast.Kind) bool {
	switch parent {
	case ast.ReadStmt, ast.WriteStmt, ast.IfStmt, ast.ForStmt:
		return true
	default:
		return false
	}
}

func (a *Analyzer) analyzeBlockBody(block *ast.Node) {
	for _, stmt := range block.Children {
		a.analyzeStatement(stmt, noParent)
	}
}

// analyzeDeclaration registers every identifier in a Declaration as class,
// checking initializer expressions against the declared type and
// array-size expressions for integer type.
func (a *Analyzer) analyzeDeclaration(decl *ast.Node, class symtab.Class) {
	declared := typeFromKeyword(decl.Value)
	for _, id := range decl.Children {
		if id.Kind != ast.Identifier {
			continue
		}
		sym := symtab.Symbol{Name: id.Token.Lexeme, Class: class, Type: declared, Line: id.Token.Line}
		if inserted, err := a.symtab.Insert(sym); !inserted {
			a.alert(id.Token.Line, "variável redeclarada no mesmo escopo: "+id.Token.Lexeme)
		} else if err != nil {
			a.alert(id.Token.Line, err.Error())
		}
		id.Inferred = declared

		if len(id.Children) == 0 {
			continue
		}
		aux := id.Children[0]
		if aux.Value == "array_size" {
			sizeType := a.resolveExprType(aux)
			if sizeType.Kind != types.Int {
				a.alert(aux.Token.Line, "tamanho de array deve ser inteiro")
			}
			continue
		}
		initType := a.resolveExprType(aux)
		if declared.Resolved() && initType.Resolved() && !declared.Equal(initType) {
			a.alert(aux.Token.Line, "tipo incompatível na inicialização de '"+id.Token.Lexeme+"': esperado "+declared.String()+", obtido "+initType.String())
		}
	}
}

func (a *Analyzer) analyzeAssignment(assign *ast.Node) {
	if len(assign.Children) < 2 {
		return
	}
	target, value := assign.Children[0], assign.Children[1]
	sym, ok := a.symtab.Lookup(target.Token.Lexeme)
	if !ok {
		a.alert(target.Token.Line, "variável não declarada: "+target.Token.Lexeme)
		a.resolveExprType(value)
		return
	}
	target.Inferred = sym.Type
	valueType := a.resolveExprType(value)
	if sym.Type.Resolved() && valueType.Resolved() && !sym.Type.Equal(valueType) {
		a.alert(value.Token.Line, "tipo incompatível na atribuição a '"+target.Token.Lexeme+"': esperado "+sym.Type.String()+", obtido "+valueType.String())
	}
}

func (a *Analyzer) analyzeIf(stmt *ast.Node) {
	if len(stmt.Children) == 0 {
		return
	}
	a.requireBoolean(stmt.Children[0], "condição de 'se'")
	if len(stmt.Children) > 1 {
		a.analyzeStatement(stmt.Children[1], ast.IfStmt)
	}
	if len(stmt.Children) > 2 {
		a.analyzeStatement(stmt.Children[2], ast.IfStmt)
	}
}

func (a *Analyzer) analyzeWhile(stmt *ast.Node) {
	if len(stmt.Children) == 0 {
		return
	}
	a.requireBoolean(stmt.Children[0], "condição de 'enquanto'")
	if len(stmt.Children) > 1 {
		a.analyzeStatement(stmt.Children[1], ast.WhileStmt)
	}
}

func (a *Analyzer) analyzeFor(stmt *ast.Node) {
	if len(stmt.Children) < 4 {
		return
	}
	a.symtab.EnterScope()
	defer a.symtab.LeaveScope()

	a.analyzeStatement(stmt.Children[0], noParent)     // init assignment
	a.requireBoolean(stmt.Children[1], "condição de 'para'")
	a.analyzeStatement(stmt.Children[2], noParent)     // step assignment
	a.analyzeStatement(stmt.Children[3], ast.ForStmt)  // body
}

func (a *Analyzer) analyzeRead(stmt *ast.Node) {
	if len(stmt.Children) == 0 {
		return
	}
	target := stmt.Children[0]
	sym, ok := a.symtab.Lookup(target.Token.Lexeme)
	if !ok {
		a.alert(target.Token.Line, "variável não declarada: "+target.Token.Lexeme)
		return
	}
	target.Inferred = sym.Type
}

func (a *Analyzer) analyzeWrite(stmt *ast.Node) {
	for _, arg := range stmt.Children {
		a.resolveExprType(arg)
	}
}

// analyzeReturnStatement resolves and memoizes a `retorne`'s value type (or
// leaves it Unresolved for a bare `retorne;`); the cross-return consistency
// check happens afterward, once the whole body has been walked, in
// checkReturnConsistency.
func (a *Analyzer) analyzeReturnStatement(stmt *ast.Node) {
	if len(stmt.Children) > 0 {
		stmt.Inferred = a.resolveExprType(stmt.Children[0])
	}
}

// checkReturnConsistency gathers every `retorne` in fn's body and requires
// them to all share the first one's inferred kind, alerting on each
// dissenter. A body with no `retorne` at all is alerted once.
func (a *Analyzer) checkReturnConsistency(fn *ast.Node, body *ast.Node) {
	var returns []*ast.Node
	collectReturns(body, &returns)
	if len(returns) == 0 {
		a.alert(fn.Token.Line, "função sem instrução 'retorne'")
		return
	}
	expected := returns[0].Inferred
	for _, ret := range returns[1:] {
		if !ret.Inferred.Equal(expected) {
			a.alert(ret.Token.Line, "tipos de retorno inconsistentes")
		}
	}
}

// collectReturns walks node's subtree post-order, appending every ReturnStmt
// it finds in source order.
func collectReturns(node *ast.Node, out *[]*ast.Node) {
	if node == nil {
		return
	}
	for _, c := range node.Children {
		collectReturns(c, out)
	}
	if node.Kind == ast.ReturnStmt {
		*out = append(*out, node)
	}
}

func (a *Analyzer) requireBoolean(expr *ast.Node, context string) {
	t := a.resolveExprType(expr)
	if t.Resolved() && t.Kind != types.Bool {
		a.alert(expr.Token.Line, context+" deve ser booleana, obtido "+t.String())
	}
}

// resolveExprType infers node's type and memoizes it onto node.Inferred,
// mirroring the original analyzer's resolve_expr_type but dispatching on
// ast.Kind instead of a single AST_* tag.
func (a *Analyzer) resolveExprType(node *ast.Node) types.Type {
	if node == nil {
		return types.Type{}
	}
	var t types.Type
	switch node.Kind {
	case ast.Literal:
		t = a.resolveLiteralType(node)
	case ast.Identifier:
		if sym, ok := a.symtab.Lookup(node.Token.Lexeme); ok {
			t = sym.Type
		} else {
			a.alert(node.Token.Line, "variável não declarada: "+node.Token.Lexeme)
		}
	case ast.BinaryOp:
		t = a.resolveBinaryType(node)
	case ast.UnaryOp:
		if len(node.Children) > 0 {
			t = a.resolveExprType(node.Children[0])
		}
	case ast.FunctionCall:
		t = a.resolveCallType(node)
	case ast.Expression:
		if len(node.Children) > 0 {
			t = a.resolveExprType(node.Children[0])
		}
	}
	node.Inferred = t
	return t
}

func (a *Analyzer) resolveLiteralType(node *ast.Node) types.Type {
	switch node.Token.Kind {
	case token.INTEGER:
		return types.IntType
	case token.DECIMAL:
		a, b := decimalPrecision(node.Token.Lexeme)
		return types.NewDecimal(a, b)
	case token.STRING:
		n := len(node.Token.Lexeme)
		if n >= 2 {
			n -= 2
		}
		return types.NewText(n)
	default:
		return types.Type{}
	}
}

func decimalPrecision(lexeme string) (int, int) {
	dot := strings.IndexByte(lexeme, '.')
	if dot < 0 {
		return len(lexeme), 0
	}
	return dot, len(lexeme) - dot - 1
}

func (a *Analyzer) resolveBinaryType(node *ast.Node) types.Type {
	var left, right types.Type
	if len(node.Children) > 0 {
		left = a.resolveExprType(node.Children[0])
	}
	if len(node.Children) > 1 {
		right = a.resolveExprType(node.Children[1])
	}
	switch node.Token.Kind {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT, token.CARET:
		if left.Kind == types.Decimal || right.Kind == types.Decimal {
			return types.NewDecimal(0, 0)
		}
		return types.IntType
	case token.EQ, token.NEQ, token.LT, token.GT, token.LE, token.GE, token.AND, token.OR:
		return types.BoolType
	default:
		return types.IntType
	}
}

func (a *Analyzer) resolveCallType(node *ast.Node) types.Type {
	if len(node.Children) == 0 {
		return types.Type{}
	}
	callee := node.Children[0]
	args := node.Children[1:]
	sym, ok := a.symtab.Lookup(callee.Token.Lexeme)
	if !ok {
		a.alert(callee.Token.Line, "função não declarada: "+callee.Token.Lexeme)
		for _, arg := range args {
			a.resolveExprType(arg)
		}
		return types.Type{}
	}
	if sym.Class != symtab.Func {
		a.alert(callee.Token.Line, "'"+callee.Token.Lexeme+"' não é uma função")
	} else if len(args) != sym.ParamCount {
		a.alert(callee.Token.Line, "número de argumentos incompatível em chamada a "+callee.Token.Lexeme)
	}
	for _, arg := range args {
		a.resolveExprType(arg)
	}
	return sym.Type
}
