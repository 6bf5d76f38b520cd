package lpmodel

import (
	"fmt"
	"math"
)

// Sense is the optimisation direction
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

func (s Sense) String() string {
	if s == Maximize {
		return "Maximize"
	}
	return "Minimize"
}

// VarKind is the domain of a variable
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

func (k VarKind) String() string {
	switch k {
	case Integer:
		return "Integer"
	case Binary:
		return "Binary"
	default:
		return "Continuous"
	}
}

// Relation is the comparison used by a constraint row
type Relation string

const (
	LessEqual    Relation = "<="
	GreaterEqual Relation = ">="
	Equal        Relation = "="
)

// Variable is a model column
type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Term is Coef * Var
type Term struct {
	Coef float64
	Var  string
}

// Constraint is a named linear row
type Constraint struct {
	Name     string
	Terms    []Term
	Relation Relation
	RHS      float64
}

// Model is a linear (mixed integer) program
type Model struct {
	Name          string
	Sense         Sense
	ObjectiveName string
	Objective     []Term
	Variables     []Variable
	Constraints   []Constraint

	varIndex map[string]int
	rowIndex map[string]int
}

// New creates an empty model
func New(name string, sense Sense) *Model {
	return &Model{
		Name:          name,
		Sense:         sense,
		ObjectiveName: "obj",
		varIndex:      make(map[string]int),
		rowIndex:      make(map[string]int),
	}
}

// NewBinary returns a 0/1 variable
func NewBinary(name string) Variable {
	return Variable{Name: name, Kind: Binary, Lower: 0, Upper: 1}
}

// NewNonNegative returns a continuous variable bounded below by zero
func NewNonNegative(name string) Variable {
	return Variable{Name: name, Kind: Continuous, Lower: 0, Upper: math.Inf(1)}
}

func (m *Model) ensureIndexes() {
	if m.varIndex == nil {
		m.varIndex = make(map[string]int, len(m.Variables))
		for i, v := range m.Variables {
			m.varIndex[v.Name] = i
		}
	}
	if m.rowIndex == nil {
		m.rowIndex = make(map[string]int, len(m.Constraints))
		for i, c := range m.Constraints {
			m.rowIndex[c.Name] = i
		}
	}
}

// AddVariable declares a column. Names must be unique.
func (m *Model) AddVariable(v Variable) error {
	m.ensureIndexes()
	if v.Name == "" {
		return fmt.Errorf("variable name cannot be empty")
	}
	if _, exists := m.varIndex[v.Name]; exists {
		return fmt.Errorf("duplicate variable %q", v.Name)
	}
	if v.Lower > v.Upper {
		return fmt.Errorf("variable %q has lower bound %g above upper bound %g", v.Name, v.Lower, v.Upper)
	}
	m.varIndex[v.Name] = len(m.Variables)
	m.Variables = append(m.Variables, v)
	return nil
}

// AddConstraint appends a row. Names must be unique and every term must
// reference a declared variable.
func (m *Model) AddConstraint(c Constraint) error {
	m.ensureIndexes()
	if c.Name == "" {
		return fmt.Errorf("constraint name cannot be empty")
	}
	if _, exists := m.rowIndex[c.Name]; exists {
		return fmt.Errorf("duplicate constraint %q", c.Name)
	}
	switch c.Relation {
	case LessEqual, GreaterEqual, Equal:
	default:
		return fmt.Errorf("constraint %q has unknown relation %q", c.Name, c.Relation)
	}
	for _, term := range c.Terms {
		if _, ok := m.varIndex[term.Var]; !ok {
			return fmt.Errorf("constraint %q references undeclared variable %q", c.Name, term.Var)
		}
	}
	m.rowIndex[c.Name] = len(m.Constraints)
	m.Constraints = append(m.Constraints, c)
	return nil
}

// SetObjective replaces the objective terms
func (m *Model) SetObjective(terms []Term) error {
	m.ensureIndexes()
	for _, term := range terms {
		if _, ok := m.varIndex[term.Var]; !ok {
			return fmt.Errorf("objective references undeclared variable %q", term.Var)
		}
	}
	m.Objective = terms
	return nil
}

// Variable looks up a column by name
func (m *Model) Variable(name string) (Variable, bool) {
	m.ensureIndexes()
	i, ok := m.varIndex[name]
	if !ok {
		return Variable{}, false
	}
	return m.Variables[i], true
}

// VariableIndex returns the position of a column, or -1
func (m *Model) VariableIndex(name string) int {
	m.ensureIndexes()
	if i, ok := m.varIndex[name]; ok {
		return i
	}
	return -1
}

// Constraint looks up a row by name
func (m *Model) Constraint(name string) (Constraint, bool) {
	m.ensureIndexes()
	i, ok := m.rowIndex[name]
	if !ok {
		return Constraint{}, false
	}
	return m.Constraints[i], true
}

// Evaluate returns the value of terms under an assignment; missing variables count as zero
func Evaluate(terms []Term, values map[string]float64) float64 {
	total := 0.0
	for _, term := range terms {
		total += term.Coef * values[term.Var]
	}
	return total
}

// Satisfied reports whether the row holds under values within tolerance
func (c Constraint) Satisfied(values map[string]float64, tolerance float64) bool {
	lhs := Evaluate(c.Terms, values)
	switch c.Relation {
	case LessEqual:
		return lhs <= c.RHS+tolerance
	case GreaterEqual:
		return lhs >= c.RHS-tolerance
	default:
		return math.Abs(lhs-c.RHS) <= tolerance
	}
}

// BoundKind classifies a variable's bounds
type BoundKind int

const (
	BoundFree BoundKind = iota
	BoundLower
	BoundUpper
	BoundDouble
	BoundFixed
)

// Bounds classifies the variable's lower and upper bounds
func (v Variable) Bounds() BoundKind {
	lowerInf := math.IsInf(v.Lower, -1)
	upperInf := math.IsInf(v.Upper, 1)

	switch {
	case lowerInf && upperInf:
		return BoundFree
	case upperInf:
		return BoundLower
	case lowerInf:
		return BoundUpper
	case v.Lower == v.Upper:
		return BoundFixed
	default:
		return BoundDouble
	}
}
