package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ainur/freight-quotes/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the offer register export: one summary sheet plus one
// row per offer.
func (g *Generator) Generate(offers []model.Offer, generatedAt time.Time) ([]byte, error) {
	file := excelize.NewFile()

	sheet := "Offers"
	file.SetSheetName("Sheet1", sheet)

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Offer register")
	set("A2", "Generated at")
	set("B2", generatedAt.Format("2006-01-02 15:04 MST"))
	set("A3", "Offers")
	set("B3", len(offers))

	headers := []string{"ID", "Route", "Client", "Status", "Version", "Total cost", "Margin %", "Final price", "Currency", "Countries", "Created", "Updated"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 5)
		if err != nil {
			return nil, err
		}
		set(cell, header)
	}

	for rowIdx, offer := range offers {
		values := []interface{}{
			offer.ID.String(),
			offer.RouteID.String(),
			offer.ClientName,
			string(offer.Status),
			offer.Version,
			offer.CostBreakdown.TotalCost,
			offer.MarginPercentage,
			offer.FinalPrice,
			offer.Currency,
			joinCountries(offer.Countries),
			offer.CreatedAt.Format("2006-01-02 15:04"),
			offer.UpdatedAt.Format("2006-01-02 15:04"),
		}
		for colIdx, value := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+6)
			if err != nil {
				return nil, err
			}
			set(cell, value)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func joinCountries(countries []string) string {
	result := ""
	for i, country := range countries {
		if i > 0 {
			result += ", "
		}
		result += country
	}
	return result
}

// FileName builds the attachment name for an export generated now.
func FileName(generatedAt time.Time) string {
	return fmt.Sprintf("offers-%s.xlsx", generatedAt.Format("20060102-150405"))
}
