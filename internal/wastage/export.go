package wastage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX writes a workbook of logs in [from, to): fixed columns
// followed by one column per waste category.
func (s *Service) ExportXLSX(ctx context.Context, w io.Writer, from, to time.Time) error {
	points, err := s.repo.Series(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load series: %w", err)
	}
	cats, err := s.repo.Categories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	breakdown, err := s.repo.BreakdownFor(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load breakdown: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Wastage"
	f.SetSheetName("Sheet1", sheet)

	header := []any{"Log ID", "Date", "Meal Slot", "Total Cooked (Kg)", "Used (Kg)", "Leftover (Kg)", "Noted By"}
	for _, c := range cats {
		header = append(header, c.Name+" (Kg)")
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, p := range points {
		row := []any{
			p.ID,
			p.MenuDate.Format("2006-01-02"),
			string(p.Slot),
			p.TotalCookedKg,
			p.UsedKg,
			p.LeftoverKg,
			p.NotedBy,
		}
		for _, c := range cats {
			row = append(row, breakdown[p.ID][c.ID])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}
