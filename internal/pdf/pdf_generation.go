package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"dealdesk/internal/models"
	"dealdesk/internal/view"
)

// Generator is what handlers need; tests substitute it.
type Generator interface {
	GenerateDealList(w io.Writer, data DealListData) error
}

// DealListGenerator renders an owner's deals into a one-table PDF report.
type DealListGenerator struct {
	FontPath string // TTF with the glyphs deal names need; core Helvetica when empty
	fontName string
	now      func() time.Time
}

type DealListData struct {
	Owner *models.Identity
	Deals []*models.Deal
}

func NewDealListGenerator(fontPath string) *DealListGenerator {
	g := &DealListGenerator{FontPath: fontPath, fontName: "Helvetica", now: time.Now}
	if fontPath != "" {
		g.fontName = "DejaVu"
	}
	return g
}

func (g *DealListGenerator) GenerateDealList(w io.Writer, data DealListData) error {
	if data.Owner == nil {
		return errors.New("owner is required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Deals of "+data.Owner.DisplayName, true)
	pdf.SetAuthor("dealdesk", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	g.addUTF8Font(pdf)
	tr := g.translator(pdf)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, "Deals", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 7, g.now().Format("02.01.2006 15:04"), "", 1, "C", false, 0, "")
	g.hr(pdf)

	g.sectionTitle(pdf, "Owner")
	g.kvLine(pdf, "Name", tr(data.Owner.DisplayName))
	if data.Owner.Email != "" {
		g.kvLine(pdf, "Email", tr(data.Owner.Email))
	}
	g.kvLine(pdf, "Deals", fmt.Sprintf("%d", len(data.Deals)))
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, "Pipeline")
	if len(data.Deals) == 0 {
		pdf.MultiCell(0, 6, view.EmptyListText, "", "L", false)
	} else {
		g.tableHeader(pdf)
		for _, d := range data.Deals {
			pdf.SetFont(g.fontName, "", 10)
			pdf.CellFormat(110, 7, tr(d.Name), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 7, string(d.Stage), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 7, d.CreatedAt.Format("02.01.2006"), "1", 1, "L", false, 0, "")
		}
	}

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "could not write pdf")
	}
	return nil
}

func (g *DealListGenerator) tableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont(g.fontName, "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(110, 7, "Name", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Stage", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Created", "1", 1, "L", true, 0, "")
}

func (g *DealListGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *DealListGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *DealListGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func (g *DealListGenerator) addUTF8Font(pdf *gofpdf.Fpdf) {
	if g.FontPath == "" {
		return
	}
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
}

// translator maps UTF-8 text onto cp1252 for the core fonts.
func (g *DealListGenerator) translator(pdf *gofpdf.Fpdf) func(string) string {
	if g.FontPath != "" {
		return func(s string) string { return s }
	}
	return pdf.UnicodeTranslatorFromDescriptor("")
}
