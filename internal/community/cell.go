package community

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind describes what a Cell holds.
type Kind int

const (
	KindEmpty Kind = iota
	KindNumber
	KindText
)

// Cell is a single spreadsheet value. The zero Cell is empty.
type Cell struct {
	kind Kind
	num  float64
	text string
}

func Empty() Cell { return Cell{} }

func Number(v float64) Cell {
	if math.IsNaN(v) {
		return Cell{}
	}
	return Cell{kind: KindNumber, num: v}
}

// Text returns a text cell. Blank strings produce an empty cell.
func Text(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return Cell{}
	}
	return Cell{kind: KindText, text: s}
}

// ParseCell interprets raw spreadsheet text. Numeric literals become number
// cells, blanks become empty cells and everything else stays text.
func ParseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Cell{}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) {
			return Cell{}
		}
		if !math.IsInf(v, 0) {
			return Cell{kind: KindNumber, num: v}
		}
	}
	return Cell{kind: KindText, text: s}
}

func (c Cell) Kind() Kind { return c.kind }

func (c Cell) IsEmpty() bool { return c.kind == KindEmpty }

func (c Cell) IsNumber() bool { return c.kind == KindNumber }

// Float returns the numeric value of the cell.
func (c Cell) Float() (float64, bool) {
	if c.kind != KindNumber {
		return 0, false
	}
	return c.num, true
}

func (c Cell) String() string {
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case KindText:
		return c.text
	default:
		return ""
	}
}

// Or returns c, or fallback when c is empty.
func (c Cell) Or(fallback Cell) Cell {
	if c.IsEmpty() {
		return fallback
	}
	return c
}

func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case KindNumber:
		return json.Marshal(c.num)
	case KindText:
		return json.Marshal(c.text)
	default:
		return []byte("null"), nil
	}
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		*c = Cell{}
	case float64:
		*c = Number(val)
	case string:
		*c = Text(val)
	case bool:
		*c = Text(strconv.FormatBool(val))
	default:
		return fmt.Errorf("unsupported cell value %s", string(data))
	}
	return nil
}
