package results

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const broadsheetSheet = "Broadsheet"

// WriteBroadsheet writes records as an xlsx sheet: one row per student, one column group per subject.
func WriteBroadsheet(w io.Writer, records []StudentResult) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(broadsheetSheet)
	if err != nil {
		return errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(idx)
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "deleting default sheet")
	}

	subjects := subjectNames(records)
	header := []interface{}{"Admission No", "Name"}
	for _, s := range subjects {
		header = append(header, s+" Total", s+" Grade", s+" Position")
	}
	header = append(header, "Average", "Position", "Remark")

	if err = setRow(f, 1, header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err = f.SetCellStyle(broadsheetSheet, "A1", lastCol, style); err != nil {
		return errors.Wrap(err, "styling header")
	}

	for i, r := range records {
		row := []interface{}{r.AdmissionNumber, r.StudentName}
		for _, s := range subjects {
			if o, ok := r.Subjects[s]; ok {
				row = append(row, o.Total, o.Grade, o.PositionInClass)
			} else {
				row = append(row, "", "", "")
			}
		}
		row = append(row, r.OverallAverage, r.OverallPosition, r.OverallRemark)
		if err = setRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err = f.Write(w); err != nil {
		return errors.Wrap(err, "writing broadsheet")
	}
	return nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrap(err, "computing cell name")
	}
	if err = f.SetSheetRow(broadsheetSheet, cell, &values); err != nil {
		return errors.Wrap(err, "writing row")
	}
	return nil
}
