// Package ranking orders qualifying communities by homebuyer score and
// compiles the shortlist returned to the buyer.
package ranking

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"

	"github.com/spigell/community-ranker/internal/community"
)

// DefaultTopN is the shortlist length used when none is configured.
const DefaultTopN = 3

// Field is one projected value of a compiled community.
type Field struct {
	Key   string
	Value community.Cell
}

// Community is a compiled shortlist entry. Fields keep the schema output order.
type Community struct {
	Name   string
	Fields []Field
}

// Get returns the projected value stored under key.
func (c Community) Get(key string) (community.Cell, bool) {
	for _, f := range c.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return community.Cell{}, false
}

func (c Community) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range c.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, f.Key, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// TopCommunities is the ranked shortlist. It marshals to a JSON object keyed
// by community name in rank order.
type TopCommunities []Community

func (t TopCommunities) Names() []string {
	names := make([]string, 0, len(t))
	for _, c := range t {
		names = append(names, c.Name)
	}
	return names
}

func (t TopCommunities) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, c.Name, c); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// Rank returns a copy of t sorted by score, highest first. Equal scores keep
// their relative order and rows without a score sink to the bottom.
func Rank(s *community.Schema, t *community.Table) *community.Table {
	ranked := t.Clone()
	sort.SliceStable(ranked.Rows, func(i, j int) bool {
		return score(s, ranked.Rows[i]) > score(s, ranked.Rows[j])
	})
	return ranked
}

func score(s *community.Schema, r *community.Row) float64 {
	if v, ok := r.Get(s.Score).Float(); ok {
		return v
	}
	return math.Inf(-1)
}

// Compile projects the first n ranked communities. Empty cells are replaced
// with the schema's not-applicable placeholder, so the result carries no nulls.
func Compile(s *community.Schema, ranked *community.Table, n int) TopCommunities {
	if n <= 0 {
		n = DefaultTopN
	}
	if n > ranked.Len() {
		n = ranked.Len()
	}

	outputs := s.Outputs()
	placeholder := community.Text(s.NotApplicable)

	top := make(TopCommunities, 0, n)
	for _, row := range ranked.Rows[:n] {
		c := Community{Name: row.Key, Fields: make([]Field, 0, len(outputs))}
		for _, out := range outputs {
			c.Fields = append(c.Fields, Field{Key: out.Key, Value: row.Get(out.Header).Or(placeholder)})
		}
		top = append(top, c)
	}
	return top
}
