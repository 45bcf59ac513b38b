// Package dataset reads problem instances from CSV and writes solved tours.
//
// A point file has a header row naming its columns. X and Y are required;
// FieldX and FieldY (or InterpX and InterpY) are optional and default to 0.
// Column names are matched case-insensitively and may appear in any order.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/copyleftdev/tourfit/internal/errors"
	"github.com/copyleftdev/tourfit/internal/tour"
)

const component = "dataset"

var columnAliases = map[string]string{
	"x":       "x",
	"y":       "y",
	"fieldx":  "fx",
	"field_x": "fx",
	"interpx": "fx",
	"fieldy":  "fy",
	"field_y": "fy",
	"interpy": "fy",
}

// ReadPoints parses a point CSV.
func ReadPoints(r io.Reader) ([]tour.Point, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.Comment = '#'

	header, err := cr.Read()
	if err == io.EOF {
		return nil, invalid("ReadPoints", "empty point file")
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading header").WithOperation("ReadPoints").WithComponent(component)
	}

	cols := map[string]int{}
	for i, name := range header {
		key, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if _, dup := cols[key]; dup {
			return nil, invalid("ReadPoints", fmt.Sprintf("duplicate column %q", name))
		}
		cols[key] = i
	}
	if _, ok := cols["x"]; !ok {
		return nil, invalid("ReadPoints", "missing X column")
	}
	if _, ok := cols["y"]; !ok {
		return nil, invalid("ReadPoints", "missing Y column")
	}

	var points []tour.Point
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading row %d", line).WithOperation("ReadPoints").WithComponent(component)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		var p tour.Point
		for _, c := range []struct {
			key string
			dst *float64
		}{{"x", &p.X}, {"y", &p.Y}, {"fx", &p.FieldX}, {"fy", &p.FieldY}} {
			key, dst := c.key, c.dst
			idx, ok := cols[key]
			if !ok {
				continue
			}
			if idx >= len(rec) {
				if key == "x" || key == "y" {
					return nil, invalid("ReadPoints", fmt.Sprintf("row %d: missing %s", line, strings.ToUpper(key)))
				}
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
			if err != nil {
				return nil, invalid("ReadPoints", fmt.Sprintf("row %d column %d: %v", line, idx+1, err))
			}
			*dst = v
		}
		points = append(points, p)
	}

	if len(points) == 0 {
		return nil, invalid("ReadPoints", "no points")
	}
	return points, nil
}

// WritePoints writes points with an X,Y,FieldX,FieldY header.
func WritePoints(w io.Writer, points []tour.Point) error {
	cw := csv.NewWriter(w)
	rows := make([][]string, 0, len(points)+1)
	rows = append(rows, []string{"X", "Y", "FieldX", "FieldY"})
	for _, p := range points {
		rows = append(rows, []string{formatFloat(p.X), formatFloat(p.Y), formatFloat(p.FieldX), formatFloat(p.FieldY)})
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, "writing points").WithOperation("WritePoints").WithComponent(component)
	}
	return nil
}

// WriteTour writes one gene per row under a Gene header.
func WriteTour(w io.Writer, genes []int) error {
	cw := csv.NewWriter(w)
	rows := make([][]string, 0, len(genes)+1)
	rows = append(rows, []string{"Gene"})
	for _, g := range genes {
		rows = append(rows, []string{strconv.Itoa(g)})
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, "writing tour").WithOperation("WriteTour").WithComponent(component)
	}
	return nil
}

// ReadTour parses a file written by WriteTour.
func ReadTour(r io.Reader) ([]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading tour").WithOperation("ReadTour").WithComponent(component)
	}
	if len(rows) == 0 || !strings.EqualFold(strings.TrimSpace(rows[0][0]), "gene") {
		return nil, invalid("ReadTour", "missing Gene header")
	}
	genes := make([]int, 0, len(rows)-1)
	for i, row := range rows[1:] {
		g, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, invalid("ReadTour", fmt.Sprintf("row %d: %v", i+2, err))
		}
		genes = append(genes, g)
	}
	return genes, nil
}

// LoadPoints reads a point CSV from path.
func LoadPoints(path string) ([]tour.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path).WithOperation("LoadPoints").WithComponent(component)
	}
	defer f.Close()
	return ReadPoints(f)
}

// SavePoints writes points to path, creating parent directories.
func SavePoints(path string, points []tour.Point) error {
	return writeFile(path, "SavePoints", func(w io.Writer) error { return WritePoints(w, points) })
}

// SaveTour writes genes to path, creating parent directories.
func SaveTour(path string, genes []int) error {
	return writeFile(path, "SaveTour", func(w io.Writer) error { return WriteTour(w, genes) })
}

func writeFile(path, op string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", dir).WithOperation(op).WithComponent(component)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path).WithOperation(op).WithComponent(component)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", path).WithOperation(op).WithComponent(component)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func invalid(op, msg string) *errors.Error {
	return errors.Wrap(errors.ErrInvalidInput, msg).WithOperation(op).WithComponent(component)
}
