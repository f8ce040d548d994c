package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// StatementData carries preformatted values; the renderer does no math.
type StatementData struct {
	CreatorName    string
	CreatorID      string
	Period         string
	Currency       string
	CommissionRate string
	GeneratedAt    string

	Rows []StatementRow

	TotalGross      string
	TotalCommission string
	TotalPayout     string
}

type StatementRow struct {
	CourseTitle string
	Purchases   int64
	Gross       string
	Commission  string
	Payout      string
}

func (p *PDFProvider) GenerateStatement(ctx context.Context, data StatementData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Revenue statement", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.Period, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New(data.CreatorName, props.Text{Style: fontstyle.Bold}),
			text.New("Creator ID: "+data.CreatorID, props.Text{Top: 5, Size: 9}),
		),
		col.New(6).Add(
			text.New("Currency: "+data.Currency, props.Text{Align: align.Right, Size: 9}),
			text.New("Platform commission: "+data.CommissionRate, props.Text{Top: 5, Align: align.Right, Size: 9}),
			text.New("Generated: "+data.GeneratedAt, props.Text{Top: 10, Align: align.Right, Size: 9}),
		),
	)

	m.AddRow(10,
		text.NewCol(5, "Course", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Sales", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Gross", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Commission", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Payout", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if len(data.Rows) == 0 {
		m.AddRow(10, text.NewCol(12, "No completed sales in this period.", props.Text{Size: 9}))
	}
	for _, row := range data.Rows {
		m.AddRow(8,
			text.NewCol(5, row.CourseTitle, props.Text{Size: 9}),
			text.NewCol(1, fmt.Sprintf("%d", row.Purchases), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, row.Gross, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, row.Commission, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, row.Payout, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Gross", props.Text{Size: 9}),
		text.NewCol(2, data.TotalGross, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Commission", props.Text{Size: 9}),
		text.NewCol(2, data.TotalCommission, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Payout", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, data.TotalPayout, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
