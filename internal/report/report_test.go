package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasErrorsIgnoresAlerts(t *testing.T) {
	s := NewSink()
	s.Add(Diagnostic{Severity: SeverityAlert, Line: 1, Message: "aviso"})
	assert.False(t, s.HasErrors())

	s.Add(Diagnostic{Severity: SeveritySyntactic, Line: 2, Message: "erro"})
	assert.True(t, s.HasErrors())
}

func TestDiagnosticStringFormats(t *testing.T) {
	cases := []struct {
		d    Diagnostic
		want string
	}{
		{Diagnostic{Severity: SeveritySyntactic, Line: 5, Message: "x"}, "Erro sintático na linha 5: x"},
		{Diagnostic{Severity: SeverityStructural, Message: "y"}, "Erro: y"},
		{Diagnostic{Severity: SeverityAlert, Line: 7, Message: "z"}, "Alerta semântico (linha 7): z"},
		{Diagnostic{Severity: SeverityFatal, Line: 9, Message: "w"}, "Erro fatal (linha 9): w"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.d.String())
	}
}

func TestAllPreservesDetectionOrder(t *testing.T) {
	s := NewSink()
	s.Add(Diagnostic{Message: "first"})
	s.Add(Diagnostic{Message: "second"})
	all := s.All()
	assert.Equal(t, "first", all[0].Message)
	assert.Equal(t, "second", all[1].Message)
}
