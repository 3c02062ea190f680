package sheetsync

import (
	"fmt"
	"time"

	"github.com/stayops/revaudit/internal/auditrecord/domain"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Audit Records"

var exportHeader = []string{
	"ID", "Posting Type", "Portfolio", "Sub Portfolio", "Property",
	"From", "To", "Next Audit Date",
	"Expedia ID", "Expedia Status", "Expedia Collectable", "Expedia Confirmed",
	"Booking ID", "Booking Status", "Booking Collectable", "Booking Confirmed",
	"Agoda ID", "Agoda Status", "Agoda Collectable", "Agoda Confirmed",
}

// BuildWorkbook writes the records to an xlsx workbook. Amounts are exported
// verbatim, the way the source sheet carries them.
func BuildWorkbook(records []domain.RecordView) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportSheet)

	for i, title := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(exportSheet, cell, title)
	}

	for i, record := range records {
		subPortfolio := ""
		if record.SubPortfolio != nil {
			subPortfolio = record.SubPortfolio.Name
		}
		row := []any{
			record.ID, record.PostingType,
			record.Portfolio.Name, subPortfolio, record.Property.Name,
			exportDate(record.FromDate), exportDate(record.ToDate), exportDate(record.NextAuditDate),
			record.Expedia.ChannelID, record.Expedia.ReviewStatus, record.Expedia.AmountCollectable, record.Expedia.AmountConfirmed,
			record.Booking.ChannelID, record.Booking.ReviewStatus, record.Booking.AmountCollectable, record.Booking.AmountConfirmed,
			record.Agoda.ChannelID, record.Agoda.ReviewStatus, record.Agoda.AmountCollectable, record.Agoda.AmountConfirmed,
		}
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, err
			}
			f.SetCellValue(exportSheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func exportDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
