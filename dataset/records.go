package dataset

import (
	"fmt"
	"io"

	"github.com/hupe1980/psmgo/codec"
	"github.com/hupe1980/psmgo/table"
)

// Records is the row-oriented JSON view of a table.
type Records struct {
	Columns []string         `json:"columns"`
	Data    []map[string]any `json:"data"`
	// Total is the row count before truncation.
	Total int `json:"total"`
}

// ToRecords converts the first maxRows rows of t. maxRows < 0 keeps all rows.
func ToRecords(t *table.Table, maxRows int) Records {
	view := t
	if maxRows >= 0 && maxRows < t.Len() {
		view = t.Head(maxRows)
	}
	return Records{
		Columns: t.Columns(),
		Data:    view.Records(),
		Total:   t.Len(),
	}
}

// EncodeRecords writes every row of t as {"columns": [...], "data": [...]}
// using c, or codec.Default when c is nil.
func EncodeRecords(w io.Writer, t *table.Table, c codec.Codec) error {
	if c == nil {
		c = codec.Default
	}
	b, err := c.Marshal(ToRecords(t, -1))
	if err != nil {
		return fmt.Errorf("dataset: encode records (%s): %w", c.Name(), err)
	}
	_, err = w.Write(b)
	return err
}
