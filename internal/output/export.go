package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"tasksync/internal/service"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

// ReportTitle heads the PDF export.
const ReportTitle = "Tasks"

// Formats lists the supported export formats.
var Formats = []string{FormatJSON, FormatCSV, FormatPDF}

// ValidFormat reports whether format is a supported export format.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatJSON, FormatCSV, FormatPDF:
		return true
	}
	return false
}

// Export writes tasks to w in the given format.
func Export(w io.Writer, tasks []service.Task, format string) error {
	if tasks == nil {
		tasks = []service.Task{}
	}
	switch strings.ToLower(format) {
	case FormatJSON:
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatCSV:
		return exportCSV(w, tasks)
	case FormatPDF:
		return exportPDF(w, tasks)
	default:
		return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(Formats, ", "))
	}
}

func exportCSV(w io.Writer, tasks []service.Task) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{service.FieldID, service.FieldTitle, service.FieldDescription, service.FieldIsCompleted})
	for _, t := range tasks {
		_ = cw.Write([]string{t.ID.String(), t.Title, t.Description, strconv.FormatBool(t.IsCompleted)})
	}
	cw.Flush()
	return cw.Error()
}

func exportPDF(w io.Writer, tasks []service.Task) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, ReportTitle)
	pdf.Ln(12)

	done := 0
	for _, t := range tasks {
		if t.IsCompleted {
			done++
		}
	}
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("%d tasks, %d completed", len(tasks), done))
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	for _, t := range tasks {
		var line bytes.Buffer
		FormatTask(&line, t)
		pdf.MultiCell(0, 6, tr(strings.TrimRight(line.String(), "\n")), "0", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
