// Package hdl parses chip descriptions written in a small hardware
// description language:
//
//	// a xor gate
//	CHIP Xor {
//		IN a, b;
//		OUT out;
//		PARTS:
//		Nand(a=a, b=b, out=nandAB);
//		Nand(a=a, b=nandAB, out=w0);
//		Nand(a=b, b=nandAB, out=w1);
//		Nand(a=w0, b=w1, out=out);
//	}
//
// A chip may also declare clock inputs with CLOCK clk; these behave as
// regular inputs except when the chip is mounted at the top level of a
// circuit.
//
package hdl

import (
	"strings"
	"text/scanner"

	"github.com/pkg/errors"
)

// A Conn connects a part pin to a wire in the enclosing chip: pin=wire.
//
type Conn struct {
	Pin  string
	Wire string
	Pos  scanner.Position
}

// A Part is a part instance in a chip.
//
type Part struct {
	Name  string
	Conns []Conn
	Pos   scanner.Position
}

// A Chip is a parsed chip declaration.
//
type Chip struct {
	Name  string
	In    []string
	Out   []string
	Clock []string
	Parts []Part
	Pos   scanner.Position
}

// Parser is a simplistic recursive descent parser.
//
type Parser struct {
	s   scanner.Scanner
	tok rune
	err error
}

func newParser(name, src string) *Parser {
	p := new(Parser)
	p.s.Init(strings.NewReader(src))
	p.s.Filename = name
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanComments | scanner.SkipComments
	p.s.Error = func(s *scanner.Scanner, msg string) {
		if p.err == nil {
			p.err = parseError(s.Position, msg)
		}
	}
	p.next()
	return p
}

func (p *Parser) next() {
	p.tok = p.s.Scan()
}

func (p *Parser) text() string {
	return p.s.TokenText()
}

func (p *Parser) expect(tok rune, what string) error {
	if p.err != nil {
		return p.err
	}
	if p.tok != tok {
		return p.unexpected(what)
	}
	p.next()
	return nil
}

func (p *Parser) unexpected(what string) error {
	if p.err != nil {
		return p.err
	}
	found := p.text()
	if p.tok == scanner.EOF {
		found = "end of input"
	}
	return parseError(p.s.Position, "expected "+what+", found "+found)
}

func (p *Parser) ident(what string) (string, error) {
	if p.tok != scanner.Ident {
		return "", p.unexpected(what)
	}
	s := p.text()
	p.next()
	return s, nil
}

func (p *Parser) keyword(kw string) bool {
	return p.tok == scanner.Ident && p.text() == kw
}

// Parse parses all chip declarations in src. The name is used in error
// messages.
//
func Parse(name, src string) ([]*Chip, error) {
	p := newParser(name, src)
	var chips []*Chip
	for p.tok != scanner.EOF && p.err == nil {
		c, err := p.chip()
		if err != nil {
			return nil, err
		}
		chips = append(chips, c)
	}
	if p.err != nil {
		return nil, p.err
	}
	return chips, nil
}

func (p *Parser) chip() (*Chip, error) {
	if !p.keyword("CHIP") {
		return nil, p.unexpected("CHIP")
	}
	c := &Chip{Pos: p.s.Position}
	p.next()
	var err error
	if c.Name, err = p.ident("chip name"); err != nil {
		return nil, err
	}
	if err = p.expect('{', "'{'"); err != nil {
		return nil, err
	}
	for !p.keyword("PARTS") {
		var list *[]string
		switch {
		case p.keyword("IN"):
			list = &c.In
		case p.keyword("OUT"):
			list = &c.Out
		case p.keyword("CLOCK"):
			list = &c.Clock
		default:
			return nil, p.unexpected("IN, OUT, CLOCK or PARTS")
		}
		p.next()
		names, err := p.identList()
		if err != nil {
			return nil, err
		}
		*list = append(*list, names...)
	}
	p.next()
	if err = p.expect(':', "':' after PARTS"); err != nil {
		return nil, err
	}
	for p.tok != '}' {
		part, err := p.part()
		if err != nil {
			return nil, err
		}
		c.Parts = append(c.Parts, part)
	}
	p.next()
	return c, p.err
}

// identList parses a, b, c;
func (p *Parser) identList() ([]string, error) {
	var names []string
	for {
		n, err := p.ident("pin name")
		if err != nil {
			return nil, err
		}
		names = append(names, n)
		if p.tok == ';' {
			p.next()
			return names, nil
		}
		if err = p.expect(',', "',' or ';'"); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) part() (Part, error) {
	part := Part{Pos: p.s.Position}
	var err error
	if part.Name, err = p.ident("part name or '}'"); err != nil {
		return part, err
	}
	if err = p.expect('(', "'('"); err != nil {
		return part, err
	}
	if p.tok != ')' {
		if part.Conns, err = p.conns(')'); err != nil {
			return part, err
		}
	}
	if err = p.expect(')', "')'"); err != nil {
		return part, err
	}
	return part, p.expect(';', "';'")
}

// conns parses pin=wire pairs separated by commas, up to end (not consumed).
func (p *Parser) conns(end rune) ([]Conn, error) {
	var cs []Conn
	for {
		c := Conn{Pos: p.s.Position}
		var err error
		if c.Pin, err = p.ident("pin name"); err != nil {
			return nil, err
		}
		if err = p.expect('=', "'='"); err != nil {
			return nil, err
		}
		if c.Wire, err = p.ident("wire name"); err != nil {
			return nil, err
		}
		cs = append(cs, c)
		if p.tok == end {
			return cs, p.err
		}
		if err = p.expect(',', "','"); err != nil {
			return nil, err
		}
	}
}

// ParseConns parses a connection list like "a=x, b=y, out=z".
//
func ParseConns(src string) ([]Conn, error) {
	p := newParser("", src)
	if p.tok == scanner.EOF {
		return nil, p.err
	}
	return p.conns(scanner.EOF)
}

func parseError(pos scanner.Position, msg string) error {
	if pos.IsValid() {
		return errors.Errorf("%s: %s", pos, msg)
	}
	return errors.New(msg)
}
