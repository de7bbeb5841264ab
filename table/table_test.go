package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() *Table {
	return MustFromRows([]string{"id", "age", "city"},
		Row{Int(1), Float(34.5), String("berlin")},
		Row{Int(2), Float(51), String("paris")},
		Row{Int(3), Float(28.25), String("rome")},
	)
}

func TestTable_Append(t *testing.T) {
	tb := New("a", "b")
	require.NoError(t, tb.Append(Int(1), Int(2)))
	assert.Equal(t, 1, tb.Len())

	err := tb.Append(Int(1))
	require.ErrorIs(t, err, ErrArity)
	assert.Equal(t, 1, tb.Len())
}

func TestTable_FromRows_Arity(t *testing.T) {
	_, err := FromRows([]string{"a"}, Row{Int(1)}, Row{Int(1), Int(2)})
	require.ErrorIs(t, err, ErrArity)
	assert.Contains(t, err.Error(), "row 1")
}

func TestTable_Select(t *testing.T) {
	tb := fixture()

	s, err := tb.Select([]string{"city", "id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "id"}, s.Columns())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, String("paris"), s.At(1, 0))
	assert.Equal(t, Int(2), s.At(1, 1))

	_, err = tb.Select([]string{"missing"})
	var nf *ErrColumnNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.Column)
}

func TestTable_Take(t *testing.T) {
	tb := fixture()

	s, err := tb.Take([]int{2, 0, 2})
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, Int(3), s.At(0, 0))
	assert.Equal(t, Int(1), s.At(1, 0))
	assert.Equal(t, Int(3), s.At(2, 0))

	_, err = tb.Take([]int{3})
	require.ErrorIs(t, err, ErrRowOutOfRange)
	_, err = tb.Take([]int{-1})
	require.ErrorIs(t, err, ErrRowOutOfRange)
}

func TestTable_Head(t *testing.T) {
	tb := fixture()

	tests := []struct {
		name string
		n    int
		want int
	}{
		{"Negative", -1, 0},
		{"Zero", 0, 0},
		{"Partial", 2, 2},
		{"Exact", 3, 3},
		{"Beyond", 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tb.Head(tt.n)
			assert.Equal(t, tt.want, h.Len())
			assert.Equal(t, tb.Columns(), h.Columns())
		})
	}
}

func TestTable_CopiesAreIndependent(t *testing.T) {
	tb := fixture()
	orig := tb.Clone()

	cols := tb.Columns()
	cols[0] = "mutated"

	row, err := tb.Row(0)
	require.NoError(t, err)
	row[0] = Int(99)

	taken, err := tb.Take([]int{0})
	require.NoError(t, err)
	taken.rows[0][0] = Int(99)

	for _, r := range tb.All() {
		r[0] = Int(99)
	}

	assert.True(t, tb.Equal(orig))
}

func TestTable_SameSchema(t *testing.T) {
	a := New("x", "y")
	assert.True(t, a.SameSchema(New("x", "y")))
	assert.False(t, a.SameSchema(New("y", "x")))
	assert.False(t, a.SameSchema(New("x")))
	assert.False(t, a.SameSchema(New("x", "z")))
}

func TestTable_Equal(t *testing.T) {
	a := fixture()
	b := fixture()
	assert.True(t, a.Equal(b))

	require.NoError(t, b.Append(Int(4), Float(1), String("oslo")))
	assert.False(t, a.Equal(b))

	nan := MustFromRows([]string{"v"}, Row{Float(math.NaN())})
	assert.True(t, nan.Equal(nan.Clone()))
}

func TestTable_Records(t *testing.T) {
	tb := MustFromRows([]string{"i", "f", "s", "b", "n"},
		Row{Int(7), Float(math.Inf(1)), String("x"), Bool(true), Null()},
	)

	recs := tb.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]any{
		"i": int64(7),
		"f": nil,
		"s": "x",
		"b": true,
		"n": nil,
	}, recs[0])
}

func TestTable_ColumnIndex_Duplicates(t *testing.T) {
	tb := New("a", "b", "a")
	i, ok := tb.ColumnIndex("a")
	require.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = tb.ColumnIndex("c")
	assert.False(t, ok)
}
