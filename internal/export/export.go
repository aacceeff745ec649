// Package export renders a job's stored extraction results as downloadable
// documents. Exports work off the result list directly, so extractions that
// could not be placed as spans still appear.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/langbridge/extractd/internal/job"
)

var columns = []string{
	"Extraction Class",
	"Extraction Text",
	"Position Start",
	"Position End",
	"Confidence",
	"Attributes",
}

// ToCSV renders the extractions as a CSV document with a header row.
func ToCSV(extractions []job.Extraction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	for _, e := range extractions {
		if err := w.Write([]string{
			e.ExtractionClass,
			e.ExtractionText,
			formatOffset(e.PositionStart),
			formatOffset(e.PositionEnd),
			formatConfidence(e.Confidence),
			formatAttributes(e.Attributes),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToXLSX renders the extractions as an XLSX workbook with one sheet.
func ToXLSX(extractions []job.Extraction) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Extractions"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	for row, e := range extractions {
		values := []any{
			e.ExtractionClass,
			e.ExtractionText,
			formatOffset(e.PositionStart),
			formatOffset(e.PositionEnd),
			formatConfidence(e.Confidence),
			formatAttributes(e.Attributes),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToJSONL renders the visualization document: one line pairing the source
// text with its extractions.
func ToJSONL(j *job.Job) ([]byte, error) {
	extractions := []job.Extraction{}
	if j.Result != nil && j.Result.Extractions != nil {
		extractions = j.Result.Extractions
	}
	doc := struct {
		Text        string           `json:"text"`
		Extractions []job.Extraction `json:"extractions"`
	}{Text: j.InputText, Extractions: extractions}

	line, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

func formatOffset(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatConfidence(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// formatAttributes renders attributes as "k=v; k=v" with sorted keys so the
// output is deterministic.
func formatAttributes(attrs map[string]any) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			buf.WriteString("; ")
		}
		fmt.Fprintf(&buf, "%s=%v", k, attrs[k])
	}
	return buf.String()
}
