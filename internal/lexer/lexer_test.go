package lexer

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitortec/compilador/internal/mem"
	"github.com/vitortec/compilador/internal/source"
	"github.com/vitortec/compilador/internal/token"
)

func lex(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New(source.New(bufio.NewReader(strings.NewReader(src))), nil)
	var toks []token.Token
	for {
		tok, err := l.NextToken()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestVariableSigil(t *testing.T) {
	toks := lex(t, "!contador")
	require.Len(t, toks, 2)
	assert.Equal(t, token.IDENTIFIER, toks[0].Kind)
	assert.Equal(t, "!contador", toks[0].Lexeme)
}

func TestFunctionNameSigil(t *testing.T) {
	toks := lex(t, "__soma")
	require.Len(t, toks, 2)
	assert.Equal(t, token.IDENTIFIER, toks[0].Kind)
	assert.Equal(t, "__soma", toks[0].Lexeme)
}

func TestBareWordMustBeKeyword(t *testing.T) {
	l := New(source.New(bufio.NewReader(strings.NewReader("xyz"))), nil)
	_, err := l.NextToken()
	require.Error(t, err)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
}

func TestSingleLineCommentSkipped(t *testing.T) {
	toks := lex(t, "// comentario\ninteiro")
	require.Len(t, toks, 2)
	assert.Equal(t, token.KwInteiro, toks[0].Kind)
}

func TestBlockCommentSkipped(t *testing.T) {
	toks := lex(t, "/* bloco\nmulti-linha */inteiro")
	require.Len(t, toks, 2)
	assert.Equal(t, token.KwInteiro, toks[0].Kind)
}

func TestUnterminatedBlockCommentIsFatal(t *testing.T) {
	l := New(source.New(bufio.NewReader(strings.NewReader("/* nunca termina"))), nil)
	_, err := l.NextToken()
	require.Error(t, err)
}

func TestLoneSlashIsOperatorNotComment(t *testing.T) {
	toks := lex(t, "1 / 2")
	require.Len(t, toks, 4)
	assert.Equal(t, []token.Kind{token.INTEGER, token.SLASH, token.INTEGER, token.EOF}, kinds(toks))
}

func TestDecimalLiteral(t *testing.T) {
	toks := lex(t, "3.14")
	require.Len(t, toks, 2)
	assert.Equal(t, token.DECIMAL, toks[0].Kind)
	assert.Equal(t, "3.14", toks[0].Lexeme)
}

func TestTrailingDotWithNoDigitsIsFatal(t *testing.T) {
	l := New(source.New(bufio.NewReader(strings.NewReader("3."))), nil)
	_, err := l.NextToken()
	require.Error(t, err)
}

func TestStringLiteral(t *testing.T) {
	toks := lex(t, `"ola mundo"`)
	require.Len(t, toks, 2)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, `"ola mundo"`, toks[0].Lexeme)
}

func TestUnterminatedStringIsFatal(t *testing.T) {
	l := New(source.New(bufio.NewReader(strings.NewReader(`"sem fim`))), nil)
	_, err := l.NextToken()
	require.Error(t, err)
}

func TestTwoCharacterOperators(t *testing.T) {
	toks := lex(t, "== <> <= >= && ||")
	assert.Equal(t, []token.Kind{
		token.EQ, token.NEQ, token.LE, token.GE, token.AND, token.OR, token.EOF,
	}, kinds(toks))
}

func TestLoneAmpersandIsFatal(t *testing.T) {
	l := New(source.New(bufio.NewReader(strings.NewReader("&"))), nil)
	_, err := l.NextToken()
	require.Error(t, err)
}

func TestModuloLexesAsPercentToken(t *testing.T) {
	toks := lex(t, "!a % !b")
	assert.Equal(t, []token.Kind{token.IDENTIFIER, token.PERCENT, token.IDENTIFIER, token.EOF}, kinds(toks))
}

func TestEOFIsStableAcrossRepeatedCalls(t *testing.T) {
	l := New(source.New(bufio.NewReader(strings.NewReader(""))), nil)
	for i := 0; i < 3; i++ {
		tok, err := l.NextToken()
		require.NoError(t, err)
		assert.Equal(t, token.EOF, tok.Kind)
	}
}

func TestAccountingChargesEveryLexeme(t *testing.T) {
	acc := mem.New(0)
	l := New(source.New(bufio.NewReader(strings.NewReader("!contador inteiro"))), acc)
	for {
		tok, err := l.NextToken()
		require.NoError(t, err)
		if tok.Kind == token.EOF {
			break
		}
	}
	assert.Greater(t, acc.CurrentUsage(), uint64(0))
}
