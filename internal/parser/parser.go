// Package parser implements a recursive-descent parser producing an
// internal/ast tree, with panic-mode error recovery: on a syntactic error
// the parser emits one diagnostic, suppresses further errors until it
// resynchronizes to a statement boundary, and keeps going so later stages
// (and later parts of the same file) still get a chance to report.
package parser

import (
	"fmt"

	"github.com/vitortec/compilador/internal/ast"
	"github.com/vitortec/compilador/internal/lexer"
	"github.com/vitortec/compilador/internal/mem"
	"github.com/vitortec/compilador/internal/report"
	"github.com/vitortec/compilador/internal/token"
)

// Parser holds two token slots and the panic-mode bookkeeping spec §4.5
// requires; it consumes a *lexer.Lexer one token ahead.
type Parser struct {
	lex     *lexer.Lexer
	acc     *mem.Accountant
	sink    *report.Sink
	current token.Token
	prev    token.Token

	hadError  bool
	panicMode bool

	lexFatal error // set if the lexer ever returns a FatalError
}

// New primes the parser with the first token off lex. Diagnostics are
// reported to sink, which must be non-nil; node allocations are charged to
// acc (which may be nil in tests that don't care).
func New(lex *lexer.Lexer, acc *mem.Accountant, sink *report.Sink) *Parser {
	p := &Parser{lex: lex, acc: acc, sink: sink}
	p.current, p.lexFatal = p.lex.NextToken()
	p.prev = token.Token{Kind: token.EOF}
	return p
}

// HadError reports whether any syntactic error was recorded.
func (p *Parser) HadError() bool { return p.hadError }

// LexFatal returns the fatal lexical error encountered while priming or
// advancing the token stream, if any. The parser stops advancing past it.
func (p *Parser) LexFatal() error { return p.lexFatal }

func (p *Parser) advance() {
	if p.lexFatal != nil {
		return
	}
	p.prev = p.current
	p.current, p.lexFatal = p.lex.NextToken()
}

func (p *Parser) check(k token.Kind) bool { return p.current.Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) newNode(kind ast.Kind, tok token.Token) *ast.Node {
	n, err := ast.New(p.acc, kind, tok)
	if err == nil {
		return n
	}
	if _, warn := err.(*mem.Warning); warn {
		p.sink.Add(report.Diagnostic{Severity: report.SeverityAlert, Line: tok.Line, Message: err.Error()})
		return n
	}
	// Memory exhaustion surfaces through the same fatal channel as a
	// lexical error: the driver treats either as pipeline-halting.
	if p.lexFatal == nil {
		p.lexFatal = err
	}
	n, _ = ast.New(nil, kind, tok)
	return n
}

func (p *Parser) errorAt(tok token.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	msg := message
	if tok.Kind != token.EOF {
		msg = fmt.Sprintf("%s (token atual: %q)", message, tok.Lexeme)
	}
	p.sink.Add(report.Diagnostic{Severity: report.SeveritySyntactic, Line: tok.Line, Message: msg})
}

func (p *Parser) errorHere(message string) { p.errorAt(p.current, message) }

// synchronize clears panic mode and skips tokens until either the previous
// token was ';' or the current token opens a statement form. This predicate
// is load-bearing for termination (see parser_test.go's progress property)
// and must not be weakened.
func (p *Parser) synchronize() {
	p.panicMode = false
	for !p.check(token.EOF) {
		if p.prev.Kind == token.SEMICOLON {
			return
		}
		switch p.current.Kind {
		case token.KwInteiro, token.KwDecimal, token.KwTexto,
			token.KwSe, token.KwEnquanto, token.KwPara,
			token.KwLeia, token.KwEscreva, token.KwFuncao, token.KwRetorne:
			return
		}
		p.advance()
	}
}

// ParseProgram dispatches on the first token per spec §4.5: a `principal`
// program, or a sequence of function definitions and top-level statements
// that may include one `principal() { ... }` block.
func (p *Parser) ParseProgram() *ast.Node {
	program := p.newNode(ast.Program, p.current)

	if p.check(token.KwPrincipal) {
		p.advance()
		if !p.match(token.LPAREN) {
			p.errorHere("Esperado '(' após 'principal'")
			return program
		}
		if !p.match(token.RPAREN) {
			p.errorHere("Esperado ')' após '('")
			return program
		}
		if !p.match(token.LBRACE) {
			p.errorHere("Esperado '{' após 'principal()'")
			return program
		}
		for !p.check(token.RBRACE) && !p.check(token.EOF) && p.lexFatal == nil {
			if stmt := p.parseStatement(); stmt != nil {
				program.AddChild(stmt)
			}
			if p.panicMode {
				p.synchronize()
			}
		}
		if !p.match(token.RBRACE) {
			p.errorHere("Esperado '}' para fechar programa principal")
		}
		return program
	}

	sawPrincipal := false
	for !p.check(token.EOF) && p.lexFatal == nil {
		if p.check(token.KwFuncao) {
			program.AddChild(p.parseFunctionDefinition())
		} else if p.check(token.KwPrincipal) && !sawPrincipal {
			// A `principal() { ... }` entry point among the function
			// definitions becomes a Block child of the program.
			sawPrincipal = true
			p.advance()
			if !p.match(token.LPAREN) || !p.match(token.RPAREN) || !p.check(token.LBRACE) {
				p.errorHere("Esperado '() {' após 'principal'")
			} else {
				program.AddChild(p.parseBlock())
			}
		} else if stmt := p.parseStatement(); stmt != nil {
			program.AddChild(stmt)
		}
		if p.panicMode {
			p.synchronize()
		}
	}
	return program
}

func (p *Parser) parseStatement() *ast.Node {
	switch p.current.Kind {
	case token.KwInteiro, token.KwDecimal, token.KwTexto:
		decl := p.parseDeclaration()
		if !p.match(token.SEMICOLON) {
			p.errorHere("Esperado ';' após declaração")
		}
		return decl
	case token.IDENTIFIER:
		assign := p.parseAssignment()
		if !p.match(token.SEMICOLON) {
			p.errorHere("Esperado ';' após atribuição")
		}
		return assign
	case token.KwSe:
		return p.parseIfStatement()
	case token.KwEnquanto:
		return p.parseWhileStatement()
	case token.KwPara:
		return p.parseForStatement()
	case token.KwLeia:
		return p.parseReadStatement()
	case token.KwEscreva:
		return p.parseWriteStatement()
	case token.KwRetorne:
		ret := p.newNode(ast.ReturnStmt, p.current)
		p.advance()
		if !p.check(token.SEMICOLON) {
			if expr := p.parseExpression(); expr != nil {
				ret.AddChild(expr)
			}
		}
		if !p.match(token.SEMICOLON) {
			p.errorHere("Esperado ';' após retorno")
		}
		return ret
	case token.LBRACE:
		return p.parseBlock()
	default:
		p.errorHere("Comando não reconhecido")
		p.advance()
		return nil
	}
}

// parseDeclaration parses one comma-separated binding list, each with an
// optional initializer or array-size suffix, per spec §4.5.
func (p *Parser) parseDeclaration() *ast.Node {
	decl := p.newNode(ast.Declaration, p.current)

	if !token.IsTypeKeyword(p.current.Kind) {
		p.errorHere("Esperado tipo de variável (inteiro, decimal, texto)")
		return decl
	}
	decl.Value = p.current.Lexeme
	p.advance()

	p.parseBinding(decl)
	for p.match(token.COMMA) {
		p.parseBinding(decl)
	}
	return decl
}

// parseBinding parses one `name`, `name = expr`, or `name[size]` entry in a
// declaration list. Any initializer or array-size expression is attached as
// the identifier's own child, not the declaration's, so a multi-name
// declaration's children stay a flat, unambiguous list of identifiers.
func (p *Parser) parseBinding(decl *ast.Node) {
	if !p.check(token.IDENTIFIER) {
		p.errorHere("Esperado nome de variável")
		return
	}
	v := p.newNode(ast.Identifier, p.current)
	decl.AddChild(v)
	p.advance()

	switch {
	case p.match(token.ASSIGN):
		if expr := p.parseExpression(); expr != nil {
			v.AddChild(expr)
		}
	case p.match(token.LBRACKET):
		if size := p.parseExpression(); size != nil {
			size.Value = "array_size"
			v.AddChild(size)
		}
		if !p.match(token.RBRACKET) {
			p.errorHere("Esperado ']' após tamanho do array")
		}
	}
}

func (p *Parser) parseAssignment() *ast.Node {
	assign := p.newNode(ast.Assignment, p.current)
	v := p.newNode(ast.Identifier, p.current)
	assign.AddChild(v)
	p.advance()

	if !p.match(token.ASSIGN) {
		p.errorHere("Esperado '=' em atribuição")
		return assign
	}
	if expr := p.parseExpression(); expr != nil {
		assign.AddChild(expr)
	}
	return assign
}

// Expression grammar: precedence climbing, lowest to highest, all
// left-associative except unary which is right-recursive. Mirrors spec
// §4.5's table exactly, including '%' at the factor level and the '&&'/'||'
// rungs.
func (p *Parser) parseExpression() *ast.Node { return p.parseOr() }

func (p *Parser) binaryLevel(next func() *ast.Node, kinds ...token.Kind) *ast.Node {
	expr := next()
	for p.matchAny(kinds...) {
		operator := p.prev
		right := next()
		bin := p.newNode(ast.BinaryOp, operator)
		bin.AddChild(expr)
		bin.AddChild(right)
		expr = bin
	}
	return expr
}

func (p *Parser) matchAny(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.match(k) {
			return true
		}
	}
	return false
}

func (p *Parser) parseOr() *ast.Node  { return p.binaryLevel(p.parseAnd, token.OR) }
func (p *Parser) parseAnd() *ast.Node { return p.binaryLevel(p.parseEquality, token.AND) }
func (p *Parser) parseEquality() *ast.Node {
	return p.binaryLevel(p.parseComparison, token.EQ, token.NEQ)
}
func (p *Parser) parseComparison() *ast.Node {
	return p.binaryLevel(p.parseTerm, token.LT, token.LE, token.GT, token.GE)
}
func (p *Parser) parseTerm() *ast.Node {
	return p.binaryLevel(p.parseFactor, token.PLUS, token.MINUS)
}
func (p *Parser) parseFactor() *ast.Node {
	return p.binaryLevel(p.parseUnary, token.STAR, token.SLASH, token.PERCENT, token.CARET)
}

func (p *Parser) parseUnary() *ast.Node {
	if p.matchAny(token.PLUS, token.MINUS) {
		operator := p.prev
		right := p.parseUnary()
		u := p.newNode(ast.UnaryOp, operator)
		u.AddChild(right)
		return u
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() *ast.Node {
	if p.matchAny(token.INTEGER, token.DECIMAL, token.STRING) {
		return p.newNode(ast.Literal, p.prev)
	}

	if p.match(token.IDENTIFIER) {
		id := p.newNode(ast.Identifier, p.prev)
		if p.match(token.LPAREN) {
			call := p.newNode(ast.FunctionCall, p.prev)
			call.AddChild(id)
			if !p.check(token.RPAREN) {
				for {
					if arg := p.parseExpression(); arg != nil {
						call.AddChild(arg)
					}
					if !p.match(token.COMMA) {
						break
					}
				}
			}
			if !p.match(token.RPAREN) {
				p.errorHere("Esperado ')' após argumentos da função")
			}
			return call
		}
		return id
	}

	if p.match(token.LPAREN) {
		expr := p.parseExpression()
		if !p.match(token.RPAREN) {
			p.errorHere("Esperado ')' após expressão")
		}
		return expr
	}

	p.errorHere("Esperado expressão")
	return nil
}

func (p *Parser) parseIfStatement() *ast.Node {
	ifStmt := p.newNode(ast.IfStmt, p.current)
	p.advance() // 'se'
	if !p.match(token.LPAREN) {
		p.errorHere("Esperado '(' após 'se'")
		return ifStmt
	}
	if cond := p.parseExpression(); cond != nil {
		ifStmt.AddChild(cond)
	}
	if !p.match(token.RPAREN) {
		p.errorHere("Esperado ')' após condição do 'se'")
		return ifStmt
	}
	if then := p.parseStatement(); then != nil {
		ifStmt.AddChild(then)
	}
	if p.match(token.KwSenao) {
		if els := p.parseStatement(); els != nil {
			ifStmt.AddChild(els)
		}
	}
	return ifStmt
}

func (p *Parser) parseWhileStatement() *ast.Node {
	w := p.newNode(ast.WhileStmt, p.current)
	p.advance() // 'enquanto'
	if !p.match(token.LPAREN) {
		p.errorHere("Esperado '(' após 'enquanto'")
		return w
	}
	if cond := p.parseExpression(); cond != nil {
		w.AddChild(cond)
	}
	if !p.match(token.RPAREN) {
		p.errorHere("Esperado ')' após condição do 'enquanto'")
		return w
	}
	if body := p.parseStatement(); body != nil {
		w.AddChild(body)
	}
	return w
}

func (p *Parser) parseForStatement() *ast.Node {
	f := p.newNode(ast.ForStmt, p.current)
	p.advance() // 'para'
	if !p.match(token.LPAREN) {
		p.errorHere("Esperado '(' após 'para'")
		return f
	}
	if init := p.parseAssignment(); init != nil {
		f.AddChild(init)
	}
	if !p.match(token.SEMICOLON) {
		p.errorHere("Esperado ';' após inicialização do 'para'")
		return f
	}
	if cond := p.parseExpression(); cond != nil {
		f.AddChild(cond)
	}
	if !p.match(token.SEMICOLON) {
		p.errorHere("Esperado ';' após condição do 'para'")
		return f
	}
	if step := p.parseAssignment(); step != nil {
		f.AddChild(step)
	}
	if !p.match(token.RPAREN) {
		p.errorHere("Esperado ')' após incremento do 'para'")
		return f
	}
	if body := p.parseStatement(); body != nil {
		f.AddChild(body)
	}
	return f
}

func (p *Parser) parseReadStatement() *ast.Node {
	r := p.newNode(ast.ReadStmt, p.current)
	p.advance() // 'leia'
	if !p.match(token.LPAREN) {
		p.errorHere("Esperado '(' após 'leia'")
		return r
	}
	if !p.check(token.IDENTIFIER) {
		p.errorHere("Esperado variável em 'leia'")
		return r
	}
	v := p.newNode(ast.Identifier, p.current)
	r.AddChild(v)
	p.advance()
	if !p.match(token.RPAREN) {
		p.errorHere("Esperado ')' após variável em 'leia'")
		return r
	}
	if !p.match(token.SEMICOLON) {
		p.errorHere("Esperado ';' após 'leia'")
	}
	return r
}

func (p *Parser) parseWriteStatement() *ast.Node {
	w := p.newNode(ast.WriteStmt, p.current)
	p.advance() // 'escreva'
	if !p.match(token.LPAREN) {
		p.errorHere("Esperado '(' após 'escreva'")
		return w
	}
	if !p.check(token.RPAREN) {
		for {
			if arg := p.parseExpression(); arg != nil {
				w.AddChild(arg)
			}
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if !p.match(token.RPAREN) {
		p.errorHere("Esperado ')' após argumentos de 'escreva'")
		return w
	}
	if !p.match(token.SEMICOLON) {
		p.errorHere("Esperado ';' após 'escreva'")
	}
	return w
}

func (p *Parser) parseBlock() *ast.Node {
	b := p.newNode(ast.Block, p.current)
	p.advance() // '{'
	for !p.check(token.RBRACE) && !p.check(token.EOF) && p.lexFatal == nil {
		if stmt := p.parseStatement(); stmt != nil {
			b.AddChild(stmt)
		}
		if p.panicMode {
			p.synchronize()
		}
	}
	if !p.match(token.RBRACE) {
		p.errorHere("Esperado '}' para fechar bloco")
	}
	return b
}

func (p *Parser) parseFunctionDefinition() *ast.Node {
	fn := p.newNode(ast.FunctionDef, p.current)
	p.advance() // 'funcao'

	if token.IsTypeKeyword(p.current.Kind) {
		fn.Value = p.current.Lexeme
		p.advance()
	}

	if !p.check(token.IDENTIFIER) {
		p.errorHere("Esperado nome da função")
		return fn
	}
	name := p.newNode(ast.Identifier, p.current)
	fn.AddChild(name)
	p.advance()

	if !p.match(token.LPAREN) {
		p.errorHere("Esperado '(' após nome da função")
		return fn
	}
	if !p.check(token.RPAREN) {
		for {
			// Each parameter is one type keyword and one name, so a comma
			// starts the next parameter rather than extending a declaration.
			param := p.newNode(ast.Declaration, p.current)
			if token.IsTypeKeyword(p.current.Kind) {
				param.Value = p.current.Lexeme
				p.advance()
				p.parseBinding(param)
			} else {
				p.errorHere("Esperado tipo de variável (inteiro, decimal, texto)")
			}
			fn.AddChild(param)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if !p.match(token.RPAREN) {
		p.errorHere("Esperado ')' após parâmetros")
		return fn
	}

	if body := p.parseBlock(); body != nil {
		fn.AddChild(body)
	}
	return fn
}

// ValidateDeclarationSequence enforces spec §3's invariant: a PROGRAM's
// children must be a prefix of declarations followed by a suffix of
// non-declarations. It never mutates the tree.
func ValidateDeclarationSequence(program *ast.Node, sink *report.Sink) bool {
	if program == nil || program.Kind != ast.Program {
		return false
	}
	sawNonDeclaration := false
	ok := true
	for _, child := range program.Children {
		if child.Kind == ast.Declaration {
			if sawNonDeclaration {
				sink.Add(report.Diagnostic{
					Severity: report.SeverityStructural,
					Line:     child.Token.Line,
					Message:  fmt.Sprintf("declaração após comando não-declarativo na linha %d", child.Token.Line),
				})
				ok = false
			}
		} else {
			sawNonDeclaration = true
		}
	}
	return ok
}

// ValidateSpacingRules is reserved for a surface-source spacing check; the
// core contract is "always succeeds" until a real source-scan
// implementation exists (spec §4.5).
func ValidateSpacingRules(program *ast.Node) bool { return true }

// ValidateVariableUsage is reserved for use-before-declare checking; the
// semantic analyzer is the sole owner of that today (spec §4.5, §4.7).
func ValidateVariableUsage(program *ast.Node) bool { return true }
