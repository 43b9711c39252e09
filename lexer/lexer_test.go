package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/navql/diag"
	"github.com/syssam/navql/lexer"
	"github.com/syssam/navql/token"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	out, err := lexer.Decode("school%2Fname")
	require.NoError(t, err)
	assert.Equal(t, "school/name", out)

	_, err = lexer.Decode("bad%00escape")
	require.Error(t, err)
	var d *diag.Diagnostic
	require.ErrorAs(t, err, &d)
	assert.Equal(t, diag.BadEncoding, d.Kind)

	_, err = lexer.Decode("bad%zzescape")
	require.Error(t, err)

	_, err = lexer.Decode("bad%")
	require.Error(t, err)
}

func TestScanBasic(t *testing.T) {
	t.Parallel()

	toks, err := lexer.Scan("/school{name,count(department)}")
	require.NoError(t, err)

	var kinds []token.Kind
	var texts []string
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
		texts = append(texts, tk.Text)
	}
	assert.Equal(t, token.EOF, kinds[len(kinds)-1])
	assert.Contains(t, texts, "school")
	assert.Contains(t, texts, "count")
	assert.Contains(t, texts, "{")
	assert.Contains(t, texts, "}")
}

func TestScanCaseFolding(t *testing.T) {
	t.Parallel()

	toks, err := lexer.Scan("SCHOOL")
	require.NoError(t, err)
	require.Equal(t, token.NAME, toks[0].Kind)
	assert.Equal(t, "school", toks[0].Canonical)
	assert.Equal(t, "SCHOOL", toks[0].Text)
}

func TestScanNumbers(t *testing.T) {
	t.Parallel()

	toks, err := lexer.Scan("3 3.5 3.5e10 3e-2")
	require.NoError(t, err)
	require.Len(t, toks, 5) // 4 numbers + EOF
	assert.Equal(t, token.NUMBER_INT, toks[0].Kind)
	assert.Equal(t, token.NUMBER_DECIMAL, toks[1].Kind)
	assert.Equal(t, token.NUMBER_FLOAT, toks[2].Kind)
	assert.Equal(t, token.NUMBER_FLOAT, toks[3].Kind)
}

func TestScanString(t *testing.T) {
	t.Parallel()

	toks, err := lexer.Scan("'a''b'")
	require.NoError(t, err)
	require.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, "a'b", toks[0].Canonical)
}

func TestScanUnterminatedString(t *testing.T) {
	t.Parallel()

	_, err := lexer.Scan("'abc")
	require.Error(t, err)
	var d *diag.Diagnostic
	require.ErrorAs(t, err, &d)
	assert.Equal(t, diag.BadString, d.Kind)
}

func TestScanLongestMatchSymbols(t *testing.T) {
	t.Parallel()

	toks, err := lexer.Scan("!== != !")
	require.NoError(t, err)
	assert.Equal(t, "!==", toks[0].Text)
	assert.Equal(t, "!=", toks[1].Text)
	assert.Equal(t, "!", toks[2].Text)
}

func TestScanBadSymbol(t *testing.T) {
	t.Parallel()

	_, err := lexer.Scan("#")
	require.Error(t, err)
	var d *diag.Diagnostic
	require.ErrorAs(t, err, &d)
	assert.Equal(t, diag.BadSymbol, d.Kind)
}
