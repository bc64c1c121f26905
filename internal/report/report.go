// Package report renders exports of visible rows. The caller decides what is
// visible; nothing here filters.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

const (
	ContentTypeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	appointmentSheet = "Appointments"
)

var AppointmentHeader = []string{
	"Appointment ID",
	"Clinic",
	"Patient",
	"Start",
	"End",
	"Duration (min)",
	"Status",
	"Channel",
	"Notes",
}

var appointmentColumnWidths = []float64{38, 24, 24, 20, 20, 14, 12, 10, 40}

// Names resolves IDs to display names. Missing entries fall back to the ID.
type Names struct {
	Clinics  map[uuid.UUID]string
	Patients map[uuid.UUID]string
}

func (n Names) clinic(id uuid.UUID) string  { return lookup(n.Clinics, id) }
func (n Names) patient(id uuid.UUID) string { return lookup(n.Patients, id) }

func lookup(m map[uuid.UUID]string, id uuid.UUID) string {
	if name, ok := m[id]; ok && name != "" {
		return name
	}
	return id.String()
}

// Appointments writes one row per appointment, times in loc.
func Appointments(rows []appointment.Appointment, names Names, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(appointmentSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(appointmentSheet, "A1", &AppointmentHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(AppointmentHeader), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(appointmentSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, w := range appointmentColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(appointmentSheet, col, col, w); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, a := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{
			a.ID.String(),
			names.clinic(a.ClinicID),
			names.patient(a.PatientID),
			a.StartTime.In(loc).Format("2006-01-02 15:04"),
			a.EndTime.In(loc).Format("2006-01-02 15:04"),
			int(a.EndTime.Sub(a.StartTime).Minutes()),
			string(a.Status),
			string(a.Channel),
			a.Notes,
		}
		if err := f.SetSheetRow(appointmentSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(appointmentSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
