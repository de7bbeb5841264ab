package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hupe1980/psmgo/table"
)

// Options configures Decode and Encode.
type Options struct {
	// Delimiter is the field separator. Default: ','.
	Delimiter rune
	// Compression of the stream. Default: CompressionAuto on read,
	// CompressionNone on write.
	Compression Compression
	// Name labels parse errors, typically the blob name or upload field.
	Name string
}

// DefaultOptions returns the default codec options.
func DefaultOptions() Options {
	return Options{
		Delimiter:   ',',
		Compression: CompressionAuto,
	}
}

func applyOptions(optFns []func(*Options)) Options {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Decode reads a CSV table with a header row.
func Decode(r io.Reader, optFns ...func(o *Options)) (*table.Table, error) {
	opts := applyOptions(optFns)

	src, release, err := decompress(r, opts.Compression)
	if err != nil {
		return nil, err
	}
	defer release()

	cr := csv.NewReader(src)
	cr.Comma = opts.Delimiter
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, wrapParseError(opts.Name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	columns := dedupeColumns(header)

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapParseError(opts.Name, err)
		}
		records = append(records, rec)
	}

	kinds := make([]table.Kind, len(columns))
	for j := range columns {
		kinds[j] = inferKind(records, j)
	}

	t := table.New(columns...)
	row := make(table.Row, len(columns))
	for _, rec := range records {
		for j, cell := range rec {
			row[j] = parseCell(cell, kinds[j])
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func wrapParseError(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Name: name, Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Name: name, Err: err}
}

// dedupeColumns renames repeated header names to "name.1", "name.2", ...
func dedupeColumns(header []string) []string {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[h] = true
	}

	out := make([]string, len(header))
	counts := make(map[string]int, len(header))
	for i, h := range header {
		n := counts[h]
		counts[h] = n + 1
		if n == 0 {
			out[i] = h
			continue
		}
		name := h + "." + strconv.Itoa(n)
		for seen[name] {
			n++
			name = h + "." + strconv.Itoa(n)
		}
		counts[h] = n + 1
		seen[name] = true
		out[i] = name
	}
	return out
}

// inferKind picks the narrowest kind that every non-empty cell of column j
// parses as. A column without any non-empty cell is null.
func inferKind(records [][]string, j int) table.Kind {
	isInt, isFloat, isBool := true, true, true
	nonEmpty := false
	for _, rec := range records {
		cell := rec[j]
		if cell == "" {
			continue
		}
		nonEmpty = true
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(cell); !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			return table.KindString
		}
	}
	switch {
	case !nonEmpty:
		return table.KindNull
	case isInt:
		return table.KindInt
	case isFloat:
		return table.KindFloat
	case isBool:
		return table.KindBool
	default:
		return table.KindString
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

func parseCell(cell string, kind table.Kind) table.Value {
	if cell == "" {
		return table.Null()
	}
	switch kind {
	case table.KindInt:
		v, _ := strconv.ParseInt(cell, 10, 64)
		return table.Int(v)
	case table.KindFloat:
		v, _ := strconv.ParseFloat(cell, 64)
		return table.Float(v)
	case table.KindBool:
		v, _ := parseBool(cell)
		return table.Bool(v)
	default:
		return table.String(cell)
	}
}

// Encode writes t as CSV with a header row. Nulls are written as empty
// cells and non-finite floats as NaN, Inf or -Inf.
func Encode(w io.Writer, t *table.Table, optFns ...func(o *Options)) error {
	opts := applyOptions(optFns)

	cw, err := compress(w, opts.Compression)
	if err != nil {
		return err
	}

	out := csv.NewWriter(cw)
	out.Comma = opts.Delimiter

	if err := out.Write(t.Columns()); err != nil {
		return fmt.Errorf("dataset: write header: %w", err)
	}
	rec := make([]string, t.NumColumns())
	for _, row := range t.All() {
		for j, v := range row {
			rec[j] = cellText(v)
		}
		if err := out.Write(rec); err != nil {
			return fmt.Errorf("dataset: write row: %w", err)
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return fmt.Errorf("dataset: flush: %w", err)
	}
	return cw.Close()
}

func cellText(v table.Value) string {
	if v.Kind == table.KindFloat {
		switch {
		case math.IsNaN(v.F64):
			return "NaN"
		case math.IsInf(v.F64, 1):
			return "Inf"
		case math.IsInf(v.F64, -1):
			return "-Inf"
		}
	}
	return v.Text()
}
