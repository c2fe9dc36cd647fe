// Package lexer tokenizes the source language's byte stream: comments and
// whitespace are skipped ahead of every token, identifiers are disambiguated
// by their leading sigil (! for variables, __ for functions), and bare words
// fall back to the keyword table since the language has no bare identifiers.
//
// The lexer reports fatal errors (bad sigil, unterminated string/comment,
// unexpected character) as a *FatalError rather than terminating the
// process outright, so the driver decides how the pipeline halts — see
// SPEC_FULL.md §2.6 for the rationale.
package lexer

import (
	"fmt"

	"github.com/vitortec/compilador/internal/mem"
	"github.com/vitortec/compilador/internal/source"
	"github.com/vitortec/compilador/internal/token"
)

// maxStringLexeme bounds a string literal's lexeme, matching the original
// 512-byte scratch buffer.
const maxStringLexeme = 512

// ASCII classification tables, built once. Adapted from the teacher pack's
// init()-time byte lookup idiom rather than repeated isDigit/isAlpha calls
// per character.
var (
	isSpace [128]bool
	isDigit [128]bool
	isLower [128]bool
	isAlnum [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		c := byte(i)
		isSpace[i] = c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v'
		isDigit[i] = c >= '0' && c <= '9'
		isLower[i] = c >= 'a' && c <= 'z'
		isAlnum[i] = isDigit[i] || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
}

// FatalError is a lexical error that must halt the lexical stage: a bad
// sigil, an unterminated comment or string, or an unexpected byte.
type FatalError struct {
	Line    int
	Message string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("Lexical error (line %d): %s", e.Line, e.Message)
}

// Lexer is a lazy token iterator over a source.Reader. NextToken consumes
// leading whitespace/comments and returns exactly one token, or a
// *FatalError.
type Lexer struct {
	src *source.Reader
	acc *mem.Accountant
}

// New returns a Lexer reading from src, charging lexeme storage to acc. acc
// may be nil in tests that don't exercise memory accounting.
func New(src *source.Reader, acc *mem.Accountant) *Lexer {
	return &Lexer{src: src, acc: acc}
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func ascii(c byte) bool { return c < 128 }

// NextToken returns the next token from the input. At end of input it
// returns a token.EOF token forever after.
func (l *Lexer) NextToken() (token.Token, error) {
	for {
		c := l.src.Peek()
		if ascii(c) && isSpace[c] {
			l.src.Advance()
			continue
		}
		if c == '/' {
			line := l.src.Line()
			consumed, err := l.skipComment()
			if err != nil {
				return token.Token{}, err
			}
			if consumed {
				continue
			}
			// skipComment already consumed the '/' while checking for a
			// comment opener; emit it directly as the SLASH operator.
			if err := l.charge("/"); err != nil {
				return token.Token{}, err
			}
			return token.Token{Kind: token.SLASH, Lexeme: "/", Line: line}, nil
		}
		break
	}

	c := l.src.Peek()
	line := l.src.Line()
	if c == 0 {
		return token.Token{Kind: token.EOF, Line: line}, nil
	}

	switch {
	case c == '!':
		return l.lexVariable()
	case c == '_':
		return l.lexFunctionName()
	case ascii(c) && isAlpha(c):
		return l.lexKeyword()
	case ascii(c) && isDigit[c]:
		return l.lexNumber()
	case c == '"':
		return l.lexString()
	default:
		return l.lexOperator()
	}
}

// skipComment consumes a line or block comment starting at the current '/'
// and reports whether it did so. The '/' is always consumed: if the
// following byte is neither '/' nor '*', it returns (false, nil) and the
// caller emits the SLASH token itself.
func (l *Lexer) skipComment() (bool, error) {
	startLine := l.src.Line()
	l.src.Advance() // tentatively consume '/'
	switch l.src.Peek() {
	case '/':
		for l.src.Peek() != 0 && l.src.Advance() != '\n' {
		}
		return true, nil
	case '*':
		l.src.Advance()
		for {
			d := l.src.Advance()
			if d == 0 {
				return false, &FatalError{Line: startLine, Message: "comentário não terminado"}
			}
			if d == '*' && l.src.Peek() == '/' {
				l.src.Advance()
				break
			}
		}
		return true, nil
	default:
		// Not a comment: Reader has no unread, so the slash stays consumed
		// and the caller emits it as an operator directly.
		return false, nil
	}
}

func (l *Lexer) charge(lexeme string) error {
	if l.acc == nil {
		return nil
	}
	_, err := l.acc.Alloc(uint64(len(lexeme)))
	return err
}

func (l *Lexer) lexVariable() (token.Token, error) {
	line := l.src.Line()
	l.src.Advance() // consume '!'
	c := l.src.Peek()
	if !(ascii(c) && isLower[c]) {
		return token.Token{}, &FatalError{Line: line, Message: fmt.Sprintf("nome inválido para variável: esperado [a-z] após '!', recebido '%c'", c)}
	}
	buf := []byte{'!', l.src.Advance()}
	for {
		c = l.src.Peek()
		if !(ascii(c) && isAlnum[c]) {
			break
		}
		buf = append(buf, l.src.Advance())
	}
	lexeme := string(buf)
	if err := l.charge(lexeme); err != nil {
		return token.Token{}, err
	}
	return token.Token{Kind: token.IDENTIFIER, Lexeme: lexeme, Line: line}, nil
}

func (l *Lexer) lexFunctionName() (token.Token, error) {
	line := l.src.Line()
	if l.src.Peek() != '_' {
		return token.Token{}, &FatalError{Line: line, Message: "nome de função inválido: deve começar com '__' seguido de letra ou dígito"}
	}
	l.src.Advance()
	if l.src.Peek() != '_' {
		return token.Token{}, &FatalError{Line: line, Message: "nome de função inválido: deve começar com '__' seguido de letra ou dígito"}
	}
	l.src.Advance()
	if c := l.src.Peek(); !(ascii(c) && isAlnum[c]) {
		return token.Token{}, &FatalError{Line: line, Message: "nome de função inválido: deve vir letra ou dígito após '__'"}
	}
	buf := []byte("__")
	for {
		c := l.src.Peek()
		if !(ascii(c) && isAlnum[c]) {
			break
		}
		buf = append(buf, l.src.Advance())
	}
	lexeme := string(buf)
	if err := l.charge(lexeme); err != nil {
		return token.Token{}, err
	}
	return token.Token{Kind: token.IDENTIFIER, Lexeme: lexeme, Line: line}, nil
}

func (l *Lexer) lexKeyword() (token.Token, error) {
	line := l.src.Line()
	var buf []byte
	for {
		c := l.src.Peek()
		if !ascii(c) || !(isAlnum[c] || c == '_') {
			break
		}
		buf = append(buf, l.src.Advance())
	}
	word := string(buf)
	kind, ok := token.LookupKeyword(word)
	if !ok {
		return token.Token{}, &FatalError{Line: line, Message: fmt.Sprintf("identificador desconhecido: '%s' não é palavra-chave, nome de função nem variável", word)}
	}
	if err := l.charge(word); err != nil {
		return token.Token{}, err
	}
	return token.Token{Kind: kind, Lexeme: word, Line: line}, nil
}

func (l *Lexer) lexNumber() (token.Token, error) {
	line := l.src.Line()
	var buf []byte
	for {
		c := l.src.Peek()
		if !(ascii(c) && isDigit[c]) {
			break
		}
		buf = append(buf, l.src.Advance())
	}
	if l.src.Peek() == '.' {
		buf = append(buf, l.src.Advance())
		if c := l.src.Peek(); !(ascii(c) && isDigit[c]) {
			return token.Token{}, &FatalError{Line: line, Message: "número decimal inválido: faltando dígitos após o ponto '.'"}
		}
		for {
			c := l.src.Peek()
			if !(ascii(c) && isDigit[c]) {
				break
			}
			buf = append(buf, l.src.Advance())
		}
		lexeme := string(buf)
		if err := l.charge(lexeme); err != nil {
			return token.Token{}, err
		}
		return token.Token{Kind: token.DECIMAL, Lexeme: lexeme, Line: line}, nil
	}
	lexeme := string(buf)
	if err := l.charge(lexeme); err != nil {
		return token.Token{}, err
	}
	return token.Token{Kind: token.INTEGER, Lexeme: lexeme, Line: line}, nil
}

func (l *Lexer) lexString() (token.Token, error) {
	line := l.src.Line()
	l.src.Advance() // opening quote
	buf := []byte{'"'}
	for l.src.Peek() != 0 && l.src.Peek() != '"' {
		if l.src.Peek() == '\\' {
			buf = append(buf, l.src.Advance())
			if len(buf) >= maxStringLexeme {
				return token.Token{}, &FatalError{Line: line, Message: "string muito longa"}
			}
		}
		buf = append(buf, l.src.Advance())
		if len(buf) >= maxStringLexeme {
			return token.Token{}, &FatalError{Line: line, Message: "string muito longa"}
		}
	}
	if l.src.Peek() != '"' {
		return token.Token{}, &FatalError{Line: line, Message: "string sem terminação"}
	}
	l.src.Advance()
	buf = append(buf, '"')
	lexeme := string(buf)
	if err := l.charge(lexeme); err != nil {
		return token.Token{}, err
	}
	return token.Token{Kind: token.STRING, Lexeme: lexeme, Line: line}, nil
}

func (l *Lexer) lexOperator() (token.Token, error) {
	line := l.src.Line()
	first := l.src.Advance()
	single := func(k token.Kind, lex string) (token.Token, error) {
		if err := l.charge(lex); err != nil {
			return token.Token{}, err
		}
		return token.Token{Kind: k, Lexeme: lex, Line: line}, nil
	}
	switch first {
	case '+':
		return single(token.PLUS, "+")
	case '-':
		return single(token.MINUS, "-")
	case '*':
		return single(token.STAR, "*")
	case '/':
		return single(token.SLASH, "/")
	case '%':
		return single(token.PERCENT, "%")
	case '^':
		return single(token.CARET, "^")
	case '(':
		return single(token.LPAREN, "(")
	case ')':
		return single(token.RPAREN, ")")
	case '{':
		return single(token.LBRACE, "{")
	case '}':
		return single(token.RBRACE, "}")
	case '[':
		return single(token.LBRACKET, "[")
	case ']':
		return single(token.RBRACKET, "]")
	case ';':
		return single(token.SEMICOLON, ";")
	case ',':
		return single(token.COMMA, ",")
	case '=':
		if l.src.Peek() == '=' {
			l.src.Advance()
			return single(token.EQ, "==")
		}
		return single(token.ASSIGN, "=")
	case '<':
		switch l.src.Peek() {
		case '=':
			l.src.Advance()
			return single(token.LE, "<=")
		case '>':
			l.src.Advance()
			return single(token.NEQ, "<>")
		}
		return single(token.LT, "<")
	case '>':
		if l.src.Peek() == '=' {
			l.src.Advance()
			return single(token.GE, ">=")
		}
		return single(token.GT, ">")
	case '&':
		if l.src.Peek() == '&' {
			l.src.Advance()
			return single(token.AND, "&&")
		}
		return token.Token{}, &FatalError{Line: line, Message: "caractere inesperado: '&'"}
	case '|':
		if l.src.Peek() == '|' {
			l.src.Advance()
			return single(token.OR, "||")
		}
		return token.Token{}, &FatalError{Line: line, Message: "caractere inesperado: '|'"}
	default:
		return token.Token{}, &FatalError{Line: line, Message: fmt.Sprintf("caractere inesperado: '%c'", first)}
	}
}
