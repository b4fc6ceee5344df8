package fertilizer

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/harvestify/internal/model/entities"
)

//go:embed fertilizer.csv
var defaultCSV []byte

var ErrCropNotFound = errors.New("crop not found")

// CropNotFound carries the name the user typed.
type CropNotFound struct{ Crop string }

func (e *CropNotFound) Error() string {
	return fmt.Sprintf("Crop '%s' not found in dataset.", e.Crop)
}

func (e *CropNotFound) Is(target error) bool { return target == ErrCropNotFound }

// Table is the read-only crop nutrient table.
type Table struct {
	rows  []entities.CropRequirement
	index map[string]int
}

// DefaultTable parses the embedded CSV.
func DefaultTable() (*Table, error) {
	return LoadTable(bytes.NewReader(defaultCSV))
}

// LoadTableFile reads the table from path, or the embedded copy when path is empty.
func LoadTableFile(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTable()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fertilizer table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// LoadTable reads a CSV with at least the Crop, N, P and K columns,
// located by header name. Other columns are ignored.
func LoadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read fertilizer header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, need := range []string{"crop", "n", "p", "k"} {
		if _, ok := col[need]; !ok {
			return nil, fmt.Errorf("fertilizer table: missing column %q", need)
		}
	}

	t := &Table{index: map[string]int{}}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read fertilizer row %d: %w", line, err)
		}
		name := field(rec, col["crop"])
		if name == "" {
			continue
		}
		req := entities.CropRequirement{Crop: name}
		for _, c := range []struct {
			key string
			dst *float64
		}{{"n", &req.N}, {"p", &req.P}, {"k", &req.K}} {
			v, err := strconv.ParseFloat(field(rec, col[c.key]), 64)
			if err != nil {
				return nil, fmt.Errorf("fertilizer row %d column %s: %w", line, strings.ToUpper(c.key), err)
			}
			*c.dst = v
		}
		key := normalize(name)
		if _, dup := t.index[key]; dup {
			continue
		}
		t.index[key] = len(t.rows)
		t.rows = append(t.rows, req)
	}
	if len(t.rows) == 0 {
		return nil, errors.New("fertilizer table is empty")
	}
	return t, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup ignores case and surrounding whitespace.
func (t *Table) Lookup(crop string) (entities.CropRequirement, error) {
	if i, ok := t.index[normalize(crop)]; ok {
		return t.rows[i], nil
	}
	return entities.CropRequirement{}, &CropNotFound{Crop: strings.TrimSpace(crop)}
}

// Crops lists the table's crop names in file order.
func (t *Table) Crops() []string {
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Crop
	}
	return out
}

func (t *Table) Len() int { return len(t.rows) }
