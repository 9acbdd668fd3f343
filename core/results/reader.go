package results

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatFromFilename guesses the file format from its extension, defaulting to csv.
func FormatFromFilename(name string) string {
	if strings.EqualFold(filepath.Ext(name), "."+FormatXLSX) {
		return FormatXLSX
	}
	return FormatCSV
}

// ReadRows reads every row of an import file.
func ReadRows(format string, r io.Reader) ([][]string, error) {
	switch format {
	case FormatXLSX:
		return ReadXLSX(r)
	case FormatCSV, "":
		return ReadCSV(r)
	default:
		return nil, errors.Wrapf(ErrMalformedFile, "unsupported format %q", format)
	}
}

// ReadCSV reads a comma separated file with "" quote escaping. Rows may have different lengths.
func ReadCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(ErrMalformedFile, err.Error())
	}
	return rows, nil
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedFile, err.Error())
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, errors.Wrap(ErrMalformedFile, err.Error())
	}
	return rows, nil
}
