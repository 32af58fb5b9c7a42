package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/ainur/freight-quotes/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

// Generate renders the customer-facing quote document for an offer.
func (g *Generator) Generate(doc model.QuoteDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 16)
	pdf.CellFormat(0, 10, "Transport Quote", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Quote %s, version %d", doc.Offer.ID, doc.Offer.Version), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued %s, status: %s", formatDate(doc.Offer.CreatedAt), strings.ToUpper(string(doc.Offer.Status))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if doc.Offer.ClientName != "" {
		pdf.SetFont(g.fontName, "B", 12)
		pdf.CellFormat(0, 8, "Client", "", 1, "L", false, 0, "")
		pdf.SetFont(g.fontName, "", 11)
		pdf.CellFormat(0, 6, doc.Offer.ClientName, "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Route", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	pdf.MultiCell(0, 5, fmt.Sprintf("From: %s", doc.Route.Origin.Address), "", "L", false)
	pdf.MultiCell(0, 5, fmt.Sprintf("To: %s", doc.Route.Destination.Address), "", "L", false)
	pdf.CellFormat(0, 5, fmt.Sprintf("Pickup: %s", formatDateTime(doc.Route.PickupTime)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Delivery: %s", formatDateTime(doc.Route.DeliveryTime)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Distance: %.0f km, driving time: %.1f h", doc.Route.TotalDistanceKm(), doc.Route.TotalDurationHours), "", 1, "L", false, 0, "")
	if countries := doc.Route.Countries(); len(countries) > 0 {
		pdf.CellFormat(0, 5, fmt.Sprintf("Countries: %s", strings.Join(countries, ", ")), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Cost breakdown", "", 1, "L", false, 0, "")

	headers := []string{"Cost item", "Amount"}
	colWidths := []float64{130, 50}
	drawTableRow(pdf, g.fontName, headers, colWidths, true)

	for _, line := range breakdownLines(doc.Offer.CostBreakdown) {
		drawTableRow(pdf, g.fontName, []string{line.name, formatAmount(line.amount, doc.Offer.Currency)}, colWidths, false)
	}

	pdf.Ln(2)
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total cost: %s", formatAmount(doc.Offer.CostBreakdown.TotalCost, doc.Offer.Currency)), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Margin: %.1f%%", doc.Offer.MarginPercentage), "", 1, "R", false, 0, "")
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Final price: %s", formatAmount(doc.Offer.FinalPrice, doc.Offer.Currency)), "", 1, "R", false, 0, "")

	if doc.Offer.Insight != "" {
		pdf.Ln(3)
		pdf.SetFont(g.fontName, "I", 10)
		pdf.MultiCell(0, 5, doc.Offer.Insight, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type breakdownLine struct {
	name   string
	amount float64
}

func breakdownLines(breakdown model.CostBreakdown) []breakdownLine {
	var lines []breakdownLine
	for _, name := range sortedKeys(breakdown.BaseCosts) {
		lines = append(lines, breakdownLine{name: name, amount: breakdown.BaseCosts[name]})
	}
	for _, name := range sortedKeys(breakdown.VariableCosts) {
		lines = append(lines, breakdownLine{name: name, amount: breakdown.VariableCosts[name]})
	}
	cargoIDs := make([]string, 0, len(breakdown.CargoSpecificCosts))
	for cargoID := range breakdown.CargoSpecificCosts {
		cargoIDs = append(cargoIDs, cargoID)
	}
	sort.Strings(cargoIDs)
	for _, cargoID := range cargoIDs {
		perCargo := breakdown.CargoSpecificCosts[cargoID]
		for _, costType := range sortedKeys(perCargo) {
			lines = append(lines, breakdownLine{
				name:   fmt.Sprintf("Cargo %s (%s)", shortID(cargoID), costType),
				amount: perCargo[costType],
			})
		}
	}
	return lines
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func formatAmount(value float64, currency string) string {
	return fmt.Sprintf("%.2f %s", value, currency)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006 15:04 MST")
}
