package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupKeywordRecognizesReservedWords(t *testing.T) {
	cases := map[string]Kind{
		"inteiro":   KwInteiro,
		"decimal":   KwDecimal,
		"texto":     KwTexto,
		"se":        KwSe,
		"senao":     KwSenao,
		"enquanto":  KwEnquanto,
		"para":      KwPara,
		"retorne":   KwRetorne,
		"retorno":   KwRetorno,
		"principal": KwPrincipal,
		"funcao":    KwFuncao,
		"leia":      KwLeia,
		"escreva":   KwEscreva,
	}
	for word, want := range cases {
		got, ok := LookupKeyword(word)
		assert.True(t, ok, "expected %q to be a keyword", word)
		assert.Equal(t, want, got)
	}
}

func TestLookupKeywordRejectsNonKeywords(t *testing.T) {
	for _, word := range []string{"", "variavel", "Inteiro", "__foo"} {
		_, ok := LookupKeyword(word)
		assert.False(t, ok, "did not expect %q to be a keyword", word)
	}
}

func TestIsTypeKeyword(t *testing.T) {
	assert.True(t, IsTypeKeyword(KwInteiro))
	assert.True(t, IsTypeKeyword(KwDecimal))
	assert.True(t, IsTypeKeyword(KwTexto))
	assert.False(t, IsTypeKeyword(KwSe))
	assert.False(t, IsTypeKeyword(IDENTIFIER))
}

func TestTokenStringIncludesLexemeWhenPresent(t *testing.T) {
	tok := Token{Kind: IDENTIFIER, Lexeme: "!contador", Line: 3}
	assert.Equal(t, `IDENTIFIER("!contador")`, tok.String())

	eof := Token{Kind: EOF}
	assert.Equal(t, "EOF", eof.String())
}

func TestKindStringFallsBackForUnknownKind(t *testing.T) {
	assert.Equal(t, "se", KwSe.String())
	assert.Contains(t, Kind(9999).String(), "Kind(9999)")
}
