package hdl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/db47h/nandsim/internal/hdl"
)

func TestParse(t *testing.T) {
	src := `// comment
CHIP Foo {
	IN a, b;
	CLOCK clk;
	OUT out;
	IN c;
	PARTS:
	Nand(a=a, b=b, out=x);
	Empty();
	/* block
	   comment */
	Nand(a=x, b=clk, out=out);
}
CHIP Bar { IN a; OUT b; PARTS: Foo(a=a, b=a, c=a, clk=a, out=b); }
`
	chips, err := hdl.Parse("foo.hdl", src)
	require.NoError(t, err)
	require.Len(t, chips, 2)

	foo := chips[0]
	assert.Equal(t, "Foo", foo.Name)
	assert.Equal(t, []string{"a", "b", "c"}, foo.In)
	assert.Equal(t, []string{"clk"}, foo.Clock)
	assert.Equal(t, []string{"out"}, foo.Out)
	require.Len(t, foo.Parts, 3)
	assert.Equal(t, "Nand", foo.Parts[0].Name)
	assert.Equal(t, []hdl.Conn{{Pin: "a", Wire: "a"}, {Pin: "b", Wire: "b"}, {Pin: "out", Wire: "x"}},
		stripPos(foo.Parts[0].Conns))
	assert.Empty(t, foo.Parts[1].Conns)
	assert.Equal(t, 2, foo.Pos.Line)
	assert.Equal(t, 8, foo.Parts[0].Pos.Line)

	assert.Equal(t, "Bar", chips[1].Name)
	assert.Len(t, chips[1].Parts[0].Conns, 5)
}

func stripPos(cs []hdl.Conn) []hdl.Conn {
	out := make([]hdl.Conn, len(cs))
	for i, c := range cs {
		out[i] = hdl.Conn{Pin: c.Pin, Wire: c.Wire}
	}
	return out
}

func TestParseErrors(t *testing.T) {
	td := []struct {
		src string
		msg string
	}{
		{"CHAP X {}", "test:1:1: expected CHIP, found CHAP"},
		{"CHIP {", "expected chip name, found {"},
		{"CHIP X IN", "expected '{', found IN"},
		{"CHIP X { FOO a; }", "expected IN, OUT, CLOCK or PARTS, found FOO"},
		{"CHIP X { IN a, ; PARTS: }", "expected pin name, found ;"},
		{"CHIP X { PARTS }", "expected ':' after PARTS"},
		{"CHIP X { PARTS: Nand(a=b c=d); }", "expected ','"},
		{"CHIP X { PARTS: Nand(a=b) }", "expected ';'"},
		{"CHIP X { PARTS: Nand(a=b);", "expected part name or '}', found end of input"},
		{"CHIP X { PARTS: Nand(a=); }", "expected wire name"},
	}
	for _, d := range td {
		t.Run(d.src, func(t *testing.T) {
			_, err := hdl.Parse("test", d.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), d.msg)
		})
	}
}

func TestParseConns(t *testing.T) {
	cs, err := hdl.ParseConns("a=x, b=y,out=z")
	require.NoError(t, err)
	assert.Equal(t, []hdl.Conn{{Pin: "a", Wire: "x"}, {Pin: "b", Wire: "y"}, {Pin: "out", Wire: "z"}}, stripPos(cs))

	cs, err = hdl.ParseConns("  ")
	require.NoError(t, err)
	assert.Empty(t, cs)

	_, err = hdl.ParseConns("a=x;")
	assert.Error(t, err)
}
