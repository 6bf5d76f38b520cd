package lpmodel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by every parse failure
var ErrSyntax = errors.New("LP syntax error")

type section int

const (
	sectionNone section = iota
	sectionObjective
	sectionConstraints
	sectionBounds
	sectionGeneral
	sectionBinary
	sectionEnd
)

var sectionKeywords = map[string]section{
	"minimize":     sectionObjective,
	"minimise":     sectionObjective,
	"minimum":      sectionObjective,
	"min":          sectionObjective,
	"maximize":     sectionObjective,
	"maximise":     sectionObjective,
	"maximum":      sectionObjective,
	"max":          sectionObjective,
	"subject to":   sectionConstraints,
	"such that":    sectionConstraints,
	"st":           sectionConstraints,
	"s.t.":         sectionConstraints,
	"st.":          sectionConstraints,
	"bounds":       sectionBounds,
	"bound":        sectionBounds,
	"general":      sectionGeneral,
	"generals":     sectionGeneral,
	"gen":          sectionGeneral,
	"integer":      sectionGeneral,
	"integers":     sectionGeneral,
	"binary":       sectionBinary,
	"binaries":     sectionBinary,
	"bin":          sectionBinary,
	"end":          sectionEnd,
}

// Parse reads CPLEX LP text into a Model. Variables that appear without a
// declaration are continuous with bounds [0, +inf).
func Parse(r io.Reader) (*Model, error) {
	p := &parser{model: New("", Minimize)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		current       = sectionNone
		seenObjective bool
		objective     strings.Builder
		rows          strings.Builder
		lineNo        int
	)

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '\\'); i >= 0 {
			if lineNo == 1 && i == 0 && p.model.Name == "" {
				p.model.Name = strings.TrimSpace(line[1:])
			}
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		if next, ok := sectionKeywords[lower]; ok {
			// Objective and rows are parsed once, when the first declaration section starts
			if p.flushed && (next == sectionObjective || next == sectionConstraints) {
				return nil, fmt.Errorf("%w: line %d: section out of order", ErrSyntax, lineNo)
			}
			if next == sectionObjective && seenObjective {
				return nil, fmt.Errorf("%w: line %d: second objective section", ErrSyntax, lineNo)
			}
			if next == sectionObjective {
				seenObjective = true
				if strings.HasPrefix(lower, "max") {
					p.model.Sense = Maximize
				}
			}
			current = next
			continue
		}

		switch current {
		case sectionObjective:
			objective.WriteString(line)
			objective.WriteByte('\n')
		case sectionConstraints:
			rows.WriteString(line)
			rows.WriteByte('\n')
		case sectionBounds:
			// Bounds come after rows so every row variable is already declared
			if err := p.flush(&objective, &rows); err != nil {
				return nil, err
			}
			if err := p.parseBound(line, lineNo); err != nil {
				return nil, err
			}
		case sectionGeneral, sectionBinary:
			if err := p.flush(&objective, &rows); err != nil {
				return nil, err
			}
			for _, name := range strings.Fields(line) {
				p.setKind(name, current)
			}
		case sectionEnd:
			return nil, fmt.Errorf("%w: line %d: content after End", ErrSyntax, lineNo)
		default:
			return nil, fmt.Errorf("%w: line %d: expected Minimize or Maximize", ErrSyntax, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read LP text: %w", err)
	}

	if !seenObjective {
		return nil, fmt.Errorf("%w: no objective section", ErrSyntax)
	}
	if err := p.flush(&objective, &rows); err != nil {
		return nil, err
	}

	return p.model, nil
}

// ParseString is Parse over a string
func ParseString(text string) (*Model, error) {
	return Parse(strings.NewReader(text))
}

type parser struct {
	model   *Model
	flushed bool
}

func (p *parser) flush(objective, rows *strings.Builder) error {
	if p.flushed {
		return nil
	}
	p.flushed = true

	if err := p.parseObjective(objective.String()); err != nil {
		return err
	}
	return p.parseRows(rows.String())
}

func (p *parser) declare(name string) {
	if _, ok := p.model.Variable(name); ok {
		return
	}
	_ = p.model.AddVariable(NewNonNegative(name))
}

func (p *parser) setKind(name string, s section) {
	p.declare(name)
	i := p.model.VariableIndex(name)
	v := &p.model.Variables[i]
	if s == sectionBinary {
		v.Kind = Binary
		v.Lower = 0
		v.Upper = 1
		return
	}
	v.Kind = Integer
}

func (p *parser) parseObjective(text string) error {
	tokens, err := lex(text)
	if err != nil {
		return err
	}

	pos := 0
	if len(tokens) >= 2 && tokens[0].kind == tokIdent && tokens[1].kind == tokColon {
		p.model.ObjectiveName = tokens[0].text
		pos = 2
	}

	terms, next, err := parseExpression(tokens, pos)
	if err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	if next != len(tokens) {
		return fmt.Errorf("%w: objective: unexpected %q", ErrSyntax, tokens[next].text)
	}
	for _, t := range terms {
		p.declare(t.Var)
	}
	p.model.Objective = terms
	return nil
}

func (p *parser) parseRows(text string) error {
	tokens, err := lex(text)
	if err != nil {
		return err
	}

	pos := 0
	for pos < len(tokens) {
		name := fmt.Sprintf("R%d", len(p.model.Constraints)+1)
		if pos+1 < len(tokens) && tokens[pos].kind == tokIdent && tokens[pos+1].kind == tokColon {
			name = tokens[pos].text
			pos += 2
		}

		terms, next, err := parseExpression(tokens, pos)
		if err != nil {
			return fmt.Errorf("constraint %s: %w", name, err)
		}
		pos = next

		if pos >= len(tokens) || tokens[pos].kind != tokRelation {
			return fmt.Errorf("%w: constraint %s: missing relation", ErrSyntax, name)
		}
		relation := Relation(tokens[pos].text)
		pos++

		rhs, next, err := parseSignedNumber(tokens, pos)
		if err != nil {
			return fmt.Errorf("constraint %s: %w", name, err)
		}
		pos = next

		for _, t := range terms {
			p.declare(t.Var)
		}
		if err := p.model.AddConstraint(Constraint{Name: name, Terms: terms, Relation: relation, RHS: rhs}); err != nil {
			return fmt.Errorf("%w: %v", ErrSyntax, err)
		}
	}
	return nil
}

func (p *parser) parseBound(line string, lineNo int) error {
	fields := strings.Fields(line)
	if len(fields) == 2 && strings.EqualFold(fields[1], "free") {
		p.declare(fields[0])
		v := &p.model.Variables[p.model.VariableIndex(fields[0])]
		v.Lower = math.Inf(-1)
		v.Upper = math.Inf(1)
		return nil
	}

	tokens, err := lex(line)
	if err != nil {
		return err
	}
	fail := func() error {
		return fmt.Errorf("%w: line %d: malformed bound %q", ErrSyntax, lineNo, line)
	}

	// lower <= x <= upper
	if (len(tokens) > 0 && tokens[0].kind != tokIdent) || isInfinity(tokens) {
		lower, pos, err := parseSignedNumber(tokens, 0)
		if err != nil || pos >= len(tokens) || tokens[pos].text != string(LessEqual) {
			return fail()
		}
		pos++
		if pos >= len(tokens) || tokens[pos].kind != tokIdent {
			return fail()
		}
		name := tokens[pos].text
		pos++
		p.declare(name)
		v := &p.model.Variables[p.model.VariableIndex(name)]
		v.Lower = lower
		if pos == len(tokens) {
			return nil
		}
		if tokens[pos].text != string(LessEqual) {
			return fail()
		}
		upper, pos, err := parseSignedNumber(tokens, pos+1)
		if err != nil || pos != len(tokens) {
			return fail()
		}
		v.Upper = upper
		return nil
	}

	// x <= upper, x >= lower, x = value
	if len(tokens) < 3 || tokens[1].kind != tokRelation {
		return fail()
	}
	name := tokens[0].text
	value, pos, err := parseSignedNumber(tokens, 2)
	if err != nil || pos != len(tokens) {
		return fail()
	}
	p.declare(name)
	v := &p.model.Variables[p.model.VariableIndex(name)]
	switch Relation(tokens[1].text) {
	case LessEqual:
		v.Upper = value
	case GreaterEqual:
		v.Lower = value
	default:
		v.Lower = value
		v.Upper = value
	}
	return nil
}

func isInfinity(tokens []token) bool {
	for _, t := range tokens {
		if t.kind == tokSign {
			continue
		}
		return t.kind == tokIdent && isInfinityWord(t.text)
	}
	return false
}

func isInfinityWord(s string) bool {
	switch strings.ToLower(s) {
	case "inf", "infinity":
		return true
	}
	return false
}

// parseExpression reads signed terms until a relation or the end of input
func parseExpression(tokens []token, pos int) ([]Term, int, error) {
	var terms []Term
	for pos < len(tokens) {
		if tokens[pos].kind == tokRelation {
			break
		}
		// A new label means the previous row had no relation
		if pos+1 < len(tokens) && tokens[pos].kind == tokIdent && tokens[pos+1].kind == tokColon {
			break
		}

		sign := 1.0
		sawSign := false
		for pos < len(tokens) && tokens[pos].kind == tokSign {
			if tokens[pos].text == "-" {
				sign = -sign
			}
			sawSign = true
			pos++
		}
		if len(terms) > 0 && !sawSign {
			return nil, pos, fmt.Errorf("%w: missing operator before %q", ErrSyntax, tokenText(tokens, pos))
		}

		coef := 1.0
		if pos < len(tokens) && tokens[pos].kind == tokNumber {
			coef = tokens[pos].num
			pos++
		}
		if pos >= len(tokens) || tokens[pos].kind != tokIdent {
			return nil, pos, fmt.Errorf("%w: expected variable, got %q", ErrSyntax, tokenText(tokens, pos))
		}
		terms = append(terms, Term{Coef: sign * coef, Var: tokens[pos].text})
		pos++
	}
	return terms, pos, nil
}

func parseSignedNumber(tokens []token, pos int) (float64, int, error) {
	sign := 1.0
	for pos < len(tokens) && tokens[pos].kind == tokSign {
		if tokens[pos].text == "-" {
			sign = -sign
		}
		pos++
	}
	if pos >= len(tokens) {
		return 0, pos, fmt.Errorf("%w: expected number", ErrSyntax)
	}
	switch {
	case tokens[pos].kind == tokNumber:
		return sign * tokens[pos].num, pos + 1, nil
	case tokens[pos].kind == tokIdent && isInfinityWord(tokens[pos].text):
		return sign * math.Inf(1), pos + 1, nil
	}
	return 0, pos, fmt.Errorf("%w: expected number, got %q", ErrSyntax, tokens[pos].text)
}

func tokenText(tokens []token, pos int) string {
	if pos >= len(tokens) {
		return "end of input"
	}
	return tokens[pos].text
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokSign
	tokColon
	tokRelation
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

func lex(text string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == ':':
			tokens = append(tokens, token{kind: tokColon, text: ":"})
			i++
		case c == '+' || c == '-':
			tokens = append(tokens, token{kind: tokSign, text: string(c)})
			i++
		case c == '<' || c == '>' || c == '=':
			j := i + 1
			if j < len(text) && (text[j] == '=' || text[j] == '<' || text[j] == '>') {
				j++
			}
			rel, err := relationFrom(text[i:j])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokRelation, text: string(rel)})
			i = j
		case isDigit(c) || (c == '.' && i+1 < len(text) && isDigit(text[i+1])):
			j := i
			for j < len(text) && (isDigit(text[j]) || text[j] == '.') {
				j++
			}
			if j < len(text) && (text[j] == 'e' || text[j] == 'E') {
				k := j + 1
				if k < len(text) && (text[k] == '+' || text[k] == '-') {
					k++
				}
				if k < len(text) && isDigit(text[k]) {
					for k < len(text) && isDigit(text[k]) {
						k++
					}
					j = k
				}
			}
			num, err := strconv.ParseFloat(text[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, text[i:j])
			}
			tokens = append(tokens, token{kind: tokNumber, text: text[i:j], num: num})
			i = j
		default:
			j := i
			for j < len(text) && !isDelimiter(text[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokIdent, text: text[i:j]})
			i = j
		}
	}
	return tokens, nil
}

func relationFrom(op string) (Relation, error) {
	switch op {
	case "<=", "=<", "<":
		return LessEqual, nil
	case ">=", "=>", ">":
		return GreaterEqual, nil
	case "=":
		return Equal, nil
	}
	return "", fmt.Errorf("%w: unknown operator %q", ErrSyntax, op)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', ':', '+', '-', '<', '>', '=':
		return true
	}
	return false
}
