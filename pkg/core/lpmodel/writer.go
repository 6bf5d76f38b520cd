package lpmodel

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const maxLineLength = 200

// Write renders the model in CPLEX LP text format
func Write(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)

	if m.Name != "" {
		fmt.Fprintf(bw, "\\ %s\n", m.Name)
	}

	fmt.Fprintln(bw, m.Sense.String())
	objName := m.ObjectiveName
	if objName == "" {
		objName = "obj"
	}
	writeWrapped(bw, " "+objName+":", expressionPieces(m.Objective))

	fmt.Fprintln(bw, "Subject To")
	for _, c := range m.Constraints {
		pieces := expressionPieces(c.Terms)
		if len(pieces) == 0 {
			pieces = []string{" 0 " + firstVarName(m)}
		}
		pieces = append(pieces, fmt.Sprintf(" %s %s", c.Relation, formatNumber(c.RHS)))
		writeWrapped(bw, " "+c.Name+":", pieces)
	}

	var bounds []string
	var binaries []string
	var generals []string
	for _, v := range m.Variables {
		switch v.Kind {
		case Binary:
			binaries = append(binaries, v.Name)
			continue
		case Integer:
			generals = append(generals, v.Name)
		}
		bounds = append(bounds, formatBound(v))
	}

	if len(bounds) > 0 {
		fmt.Fprintln(bw, "Bounds")
		for _, b := range bounds {
			fmt.Fprintf(bw, " %s\n", b)
		}
	}
	if len(generals) > 0 {
		fmt.Fprintln(bw, "General")
		writeNameList(bw, generals)
	}
	if len(binaries) > 0 {
		fmt.Fprintln(bw, "Binary")
		writeNameList(bw, binaries)
	}
	fmt.Fprintln(bw, "End")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write LP model: %w", err)
	}
	return nil
}

// String renders the model as LP text
func (m *Model) String() string {
	var sb strings.Builder
	_ = Write(&sb, m)
	return sb.String()
}

func firstVarName(m *Model) string {
	if len(m.Variables) > 0 {
		return m.Variables[0].Name
	}
	return "x"
}

func expressionPieces(terms []Term) []string {
	pieces := make([]string, 0, len(terms))
	for i, term := range terms {
		sign := "+"
		coef := term.Coef
		if coef < 0 {
			sign = "-"
			coef = -coef
		}

		var piece string
		if coef == 1 {
			piece = term.Var
		} else {
			piece = formatNumber(coef) + " " + term.Var
		}

		if i == 0 {
			if sign == "-" {
				piece = "- " + piece
			}
			pieces = append(pieces, " "+piece)
			continue
		}
		pieces = append(pieces, " "+sign+" "+piece)
	}
	return pieces
}

// writeWrapped writes label followed by pieces, breaking lines before they exceed maxLineLength
func writeWrapped(w *bufio.Writer, label string, pieces []string) {
	line := label
	for _, piece := range pieces {
		if len(line)+len(piece) > maxLineLength && len(line) > 0 {
			fmt.Fprintln(w, line)
			line = " "
		}
		line += piece
	}
	fmt.Fprintln(w, line)
}

func writeNameList(w *bufio.Writer, names []string) {
	pieces := make([]string, len(names))
	for i, n := range names {
		pieces[i] = " " + n
	}
	line := ""
	for _, piece := range pieces {
		if len(line)+len(piece) > maxLineLength && len(line) > 0 {
			fmt.Fprintln(w, line)
			line = ""
		}
		line += piece
	}
	if line != "" {
		fmt.Fprintln(w, line)
	}
}

func formatBound(v Variable) string {
	switch v.Bounds() {
	case BoundFree:
		return v.Name + " free"
	case BoundFixed:
		return fmt.Sprintf("%s = %s", v.Name, formatNumber(v.Lower))
	case BoundLower:
		return fmt.Sprintf("%s >= %s", v.Name, formatNumber(v.Lower))
	default:
		return fmt.Sprintf("%s <= %s <= %s", formatNumber(v.Lower), v.Name, formatNumber(v.Upper))
	}
}

func formatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
