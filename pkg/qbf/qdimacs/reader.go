// Package qdimacs reads quantified boolean formulas in the QDIMACS
// format.
package qdimacs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-air/gini/dimacs"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"

	"github.com/operator-framework/outer-count/pkg/qbf"
)

// Load reads the QDIMACS file at path.
func Load(path string) (*qbf.Formula, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &InputUnreadableError{Path: path, Err: err}
	}
	defer f.Close()

	formula, err := Parse(f)
	if err != nil {
		var rerr readError
		if errors.As(err, &rerr) {
			return nil, &InputUnreadableError{Path: path, Err: rerr.err}
		}
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return formula, nil
}

// Parse reads a QDIMACS problem from r. Comment lines may precede the
// problem line and the prefix. Consecutive quantifier lines of the same
// polarity form a single block. The matrix is read with gini's DIMACS
// reader.
func Parse(r io.Reader) (*qbf.Formula, error) {
	p := parser{r: bufio.NewReader(r)}
	if err := p.header(); err != nil {
		return nil, err
	}
	if err := p.prefix(); err != nil {
		return nil, err
	}
	if err := p.matrix(); err != nil {
		return nil, err
	}
	return &p.formula, nil
}

// readError marks failures of the underlying reader, as opposed to
// syntax errors.
type readError struct {
	err error
}

func (e readError) Error() string {
	return e.err.Error()
}

type parser struct {
	r       *bufio.Reader
	line    int
	formula qbf.Formula
}

// next returns the next line without its terminator. io.EOF is
// returned only when no further input exists.
func (p *parser) next() (string, error) {
	s, err := p.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", readError{err}
	}
	if err == io.EOF && s == "" {
		return "", io.EOF
	}
	p.line++
	return strings.TrimRight(s, "\r\n"), nil
}

// peek returns the first byte of the next non-comment line, skipping
// comments and blank lines, or 0 at end of input.
func (p *parser) peek() (byte, error) {
	for {
		b, err := p.r.Peek(1)
		if err == io.EOF {
			return 0, nil
		}
		if err != nil {
			return 0, readError{err}
		}
		switch b[0] {
		case 'c', '\n', '\r':
			if _, err := p.next(); err != nil {
				return 0, err
			}
			continue
		}
		return b[0], nil
	}
}

func (p *parser) header() error {
	b, err := p.peek()
	if err != nil {
		return err
	}
	if b == 0 {
		return ErrHeaderNotFound
	}
	text, err := p.next()
	if err != nil {
		return err
	}
	fields := strings.Fields(text)
	if len(fields) != 4 || fields[0] != "p" || fields[1] != "cnf" {
		return &ParseError{Line: p.line, Err: &MalformedHeaderError{Text: text}}
	}
	nv, verr := strconv.Atoi(fields[2])
	nc, cerr := strconv.Atoi(fields[3])
	if verr != nil || cerr != nil || nv < 0 || nc < 0 {
		return &ParseError{Line: p.line, Err: &MalformedHeaderError{Text: text}}
	}
	p.formula.NumVars = nv
	p.formula.NumClauses = nc
	return nil
}

func (p *parser) prefix() error {
	for {
		b, err := p.peek()
		if err != nil {
			return err
		}
		var q qbf.Quantifier
		switch b {
		case 'e':
			q = qbf.Exists
		case 'a':
			q = qbf.Forall
		default:
			return nil
		}
		text, err := p.next()
		if err != nil {
			return err
		}
		vars, err := p.quantifierLine(text)
		if err != nil {
			return err
		}
		blocks := p.formula.Blocks
		if n := len(blocks); n > 0 && blocks[n-1].Quantifier == q {
			blocks[n-1].Vars = append(blocks[n-1].Vars, vars...)
			continue
		}
		p.formula.Blocks = append(blocks, qbf.Block{Quantifier: q, Vars: vars})
	}
}

func (p *parser) quantifierLine(text string) ([]int, error) {
	fields := strings.Fields(text)
	if len(fields[0]) != 1 {
		return nil, &ParseError{Line: p.line, Err: &MalformedPrefixError{Reason: fmt.Sprintf("unexpected character in prefix %q", fields[0])}}
	}
	fields = fields[1:]
	if len(fields) == 0 || fields[len(fields)-1] != "0" {
		return nil, &ParseError{Line: p.line, Err: &MalformedPrefixError{Reason: "missing terminating 0"}}
	}
	vars := make([]int, 0, len(fields)-1)
	for _, f := range fields[:len(fields)-1] {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, &ParseError{Line: p.line, Err: &MalformedPrefixError{Reason: fmt.Sprintf("unexpected character in prefix %q", f)}}
		}
		if v < 1 || v > p.formula.NumVars {
			return nil, &ParseError{Line: p.line, Err: &MalformedPrefixError{Reason: fmt.Sprintf("variable %d out of range", v)}}
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func (p *parser) matrix() error {
	header := fmt.Sprintf("p cnf %d %d\n", p.formula.NumVars, p.formula.NumClauses)
	vis := &clauseCollector{max: p.formula.NumVars}
	if err := dimacs.ReadCnf(io.MultiReader(strings.NewReader(header), p.r), vis); err != nil {
		var rerr readError
		if errors.As(err, &rerr) {
			return rerr
		}
		return &MalformedClauseError{Clause: len(vis.clauses) + 1, Reason: err.Error()}
	}
	if vis.err != nil {
		return vis.err
	}
	if len(vis.current) > 0 {
		return &MalformedClauseError{Clause: len(vis.clauses) + 1, Reason: "missing terminating 0"}
	}
	if len(vis.clauses) != p.formula.NumClauses {
		return &MalformedClauseError{Reason: fmt.Sprintf("header declares %d clauses, found %d", p.formula.NumClauses, len(vis.clauses))}
	}
	p.formula.Clauses = vis.clauses
	return nil
}

// clauseCollector receives the matrix from dimacs.ReadCnf.
type clauseCollector struct {
	max     int
	clauses []qbf.Clause
	current qbf.Clause
	err     error
}

func (c *clauseCollector) Init(v, n int) {
	c.clauses = make([]qbf.Clause, 0, n)
}

func (c *clauseCollector) Add(m z.Lit) {
	if m == z.LitNull {
		c.clauses = append(c.clauses, c.current)
		c.current = nil
		return
	}
	if c.err == nil && int(m.Var()) > c.max {
		c.err = &MalformedClauseError{
			Clause: len(c.clauses) + 1,
			Reason: fmt.Sprintf("variable %d exceeds declared maximum %d", m.Var(), c.max),
		}
	}
	c.current = append(c.current, m.Dimacs())
}

func (c *clauseCollector) Eof() {}
