package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"

	"trippin/model"
	"trippin/pricing"
)

// document wraps a gofpdf page with the house layout helpers. The core
// fonts are cp1252, so every string goes through tr first.
type document struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newDocument(subtitle string) *document {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)
	pdf.AddPage()
	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	// ─── Header Bar ───
	pdf.SetFillColor(13, 24, 37)
	pdf.Rect(0, 0, 210, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(20, 8)
	pdf.CellFormat(100, 10, "Trippin", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(212, 168, 67)
	pdf.SetXY(20, 18)
	pdf.CellFormat(170, 6, d.tr(subtitle), "", 1, "L", false, 0, "")

	pdf.SetY(35)
	pdf.SetTextColor(0, 0, 0)
	return d
}

// money formats a price, spelling out the ISO code when the symbol has no
// cp1252 glyph.
func money(amount float64, cur string) string {
	s := pricing.Format(amount, cur)
	if _, err := charmap.Windows1252.NewEncoder().String(s); err != nil {
		return pricing.FormatCode(amount, cur)
	}
	return s
}

func (d *document) notice(text string) {
	pdf := d.pdf
	pdf.SetFillColor(255, 248, 225)
	pdf.SetDrawColor(212, 168, 67)
	pdf.SetTextColor(130, 90, 20)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetLineWidth(0.4)
	y := pdf.GetY()
	pdf.Rect(20, y, 170, 12, "FD")
	pdf.SetXY(23, y+2)
	pdf.MultiCell(164, 4, d.tr(text), "", "C", false)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.SetY(y + 18)
}

func (d *document) section(title string) {
	d.pdf.SetFillColor(13, 24, 37)
	d.pdf.SetTextColor(255, 255, 255)
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.CellFormat(170, 8, d.tr("  "+title), "", 1, "L", true, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(2)
}

func (d *document) row(label, value string) {
	if value == "" {
		value = "-"
	}
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.SetTextColor(100, 100, 100)
	d.pdf.CellFormat(55, 7, d.tr(label), "", 0, "L", false, 0, "")
	d.pdf.SetTextColor(20, 20, 20)
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.CellFormat(115, 7, d.tr(value), "", 1, "L", false, 0, "")
}

func (d *document) paragraph(text string) {
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.SetTextColor(40, 40, 40)
	d.pdf.MultiCell(170, 5, d.tr(text), "", "L", false)
	d.pdf.SetTextColor(0, 0, 0)
}

func (d *document) bytes(footer string) ([]byte, error) {
	pdf := d.pdf
	pdf.SetY(-22)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.3)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 8, d.tr(footer), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderTravelPlanPDF lays out a generated plan together with the
// preferences it was generated from.
func RenderTravelPlanPDF(plan *model.TravelPlan, prefs model.Preferences) ([]byte, error) {
	if plan == nil {
		return nil, fmt.Errorf("no travel plan to render")
	}

	d := newDocument("AI-Powered Travel Plan")
	d.notice("This is NOT a booking confirmation. Costs are estimates and subject to change.")

	title := plan.Title
	if title == "" {
		title = "Trip to " + plan.Destination
	}
	d.section(title)
	d.row("Route", fmt.Sprintf("%s -> %s", prefs.Origin, plan.Destination))
	d.row("When", prefs.Dates)
	d.row("Budget", prefs.Budget)
	d.row("Style", prefs.Style)
	d.row("Interests", strings.Join(prefs.Interests.Sorted(), ", "))
	d.row("Stay", prefs.Accommodation)
	d.row("Getting around", prefs.Transportation)
	d.row("Generated", time.Now().UTC().Format("02 Jan 2006, 15:04 UTC"))
	d.pdf.Ln(4)

	if plan.Summary != "" {
		d.section("Overview")
		d.paragraph(plan.Summary)
		d.pdf.Ln(4)
	}

	if len(plan.Days) > 0 {
		d.section("Day by Day")
		for _, day := range plan.Days {
			d.pdf.SetFont("Helvetica", "B", 10)
			d.pdf.CellFormat(170, 7, d.tr(fmt.Sprintf("Day %d  %s", day.Day, day.Title)), "", 1, "L", false, 0, "")
			for _, a := range day.Activities {
				d.paragraph("  - " + a)
			}
			d.pdf.Ln(1)
		}
		d.pdf.Ln(3)
	}

	if len(plan.Packages) > 0 {
		d.section("Packages")
		for _, p := range plan.Packages {
			cur := p.Currency
			if cur == "" {
				cur = pricing.DefaultCurrency
			}
			d.row(p.Name, fmt.Sprintf("%d nights, %s, from %s", p.Nights, p.Accommodation, money(p.EstimatedCost, cur)))
		}
		d.pdf.Ln(4)
	}

	if len(plan.Tips) > 0 {
		d.section("Tips")
		for _, tip := range plan.Tips {
			d.paragraph("- " + tip)
		}
	}

	return d.bytes("Generated by Trippin AI Travel Planner - Not a booking confirmation")
}

// RenderReceiptPDF renders an order receipt. The QR image is embedded when
// qr is a PNG.
func RenderReceiptPDF(order *model.Order, qr *model.QRCode) ([]byte, error) {
	if order == nil {
		return nil, fmt.Errorf("no order to render")
	}

	d := newDocument("eSIM Order Receipt")

	d.section("Order")
	d.row("Order ID", order.ID)
	d.row("Plan", order.PlanName)
	d.row("Duration", order.Duration)
	d.row("Data", order.Data)
	d.row("Price", money(order.Price, order.Currency))
	d.row("Status", order.Status)
	d.row("Date", order.CreatedAt.UTC().Format("02 Jan 2006, 15:04 UTC"))
	d.pdf.Ln(4)

	if qr != nil && len(qr.Image) > 0 && qr.ContentType == "image/png" {
		d.section("Activation")
		d.paragraph("Scan this code from your device's eSIM settings to install the plan.")
		d.pdf.Ln(2)
		name := "qr-" + order.ID
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(qr.Image))
		d.pdf.ImageOptions(name, 75, d.pdf.GetY(), 60, 60, true, opts, 0, "")
	}

	return d.bytes("Trippin eSIM - Keep this receipt for your records")
}
