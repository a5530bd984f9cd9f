package limbdark

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Table holds precomputed coefficients, one row per channel.
type Table [][]float64

// Row returns the coefficients of channel ch.
func (t Table) Row(ch int) ([]float64, error) {
	if ch < 0 || ch >= len(t) {
		return nil, fmt.Errorf("limb-darkening table has %d rows, no row for channel %d", len(t), ch)
	}
	return t[ch], nil
}

// ReadTableFile reads a table from path.
func ReadTableFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open limb-darkening table: %w", err)
	}
	defer f.Close()
	return ReadTable(f)
}

// ReadTable parses whitespace- or comma-separated rows. Blank lines and
// lines starting with # are skipped.
func ReadTable(r io.Reader) (Table, error) {
	var t Table
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("limb-darkening table line %d: %w", line, err)
			}
			row[i] = v
		}
		t = append(t, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read limb-darkening table: %w", err)
	}
	return t, nil
}
