package service

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	statementdomain "github.com/homewardlabs/homeward/internal/statement/domain"
)

var mutedText = &props.Color{Red: 95, Green: 95, Blue: 95}

func renderPDF(st *statementdomain.Statement) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(12).
		WithTopMargin(14).
		WithRightMargin(12).
		Build()
	m := maroto.New(cfg)

	m.AddRows(
		row.New(10).Add(
			col.New(8).Add(text.New(st.HouseholdName, props.Text{Size: 15, Style: fontstyle.Bold})),
			col.New(4).Add(text.New("Statement "+st.Month, props.Text{Size: 11, Top: 2, Align: align.Right})),
		),
		row.New(6).Add(
			col.New(12).Add(text.New(
				fmt.Sprintf("%s through %s", st.PeriodStart.Format("Jan 2, 2006"), st.PeriodEnd.AddDate(0, 0, -1).Format("Jan 2, 2006")),
				props.Text{Size: 9, Color: mutedText},
			)),
		),
		line.NewRow(4),
		row.New(7).Add(
			summaryCol("Total", formatCents(st.TotalCents, st.Currency)),
			summaryCol("Settled", formatCents(st.SettledCents, st.Currency)),
			summaryCol("Outstanding", formatCents(st.OutstandingCents, st.Currency)),
		),
		line.NewRow(4),
	)

	m.AddRows(expenseRows(st)...)
	m.AddRows(memberRows(st)...)

	m.AddRows(row.New(8).Add(
		col.New(12).Add(text.New(
			"Generated "+st.GeneratedAt.Format("Jan 2, 2006 15:04 MST"),
			props.Text{Size: 8, Top: 3, Color: mutedText},
		)),
	))

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func summaryCol(label, value string) core.Col {
	return col.New(4).Add(
		text.New(label, props.Text{Size: 8, Color: mutedText}),
		text.New(value, props.Text{Size: 11, Top: 3, Style: fontstyle.Bold}),
	)
}

func expenseRows(st *statementdomain.Statement) []core.Row {
	rows := []core.Row{
		row.New(7).Add(text.NewCol(12, "Expenses", props.Text{Size: 11, Style: fontstyle.Bold})),
	}
	if len(st.Expenses) == 0 {
		rows = append(rows, row.New(6).Add(
			text.NewCol(12, "No expenses fell due this month.", props.Text{Size: 9, Color: mutedText}),
		))
		return rows
	}

	rows = append(rows, row.New(5).Add(
		text.NewCol(2, "Date", headerProps()),
		text.NewCol(5, "Description", headerProps()),
		text.NewCol(2, "Kind", headerProps()),
		text.NewCol(1, "Status", headerProps()),
		text.NewCol(2, "Amount", headerPropsRight()),
	))
	for _, e := range st.Expenses {
		kind := "one-off"
		if e.Recurring {
			kind = "recurring"
		}
		rows = append(rows, row.New(5).Add(
			text.NewCol(2, e.Date.Format("2006-01-02"), cellProps()),
			text.NewCol(5, e.Description, cellProps()),
			text.NewCol(2, kind, cellProps()),
			text.NewCol(1, string(e.Status), cellProps()),
			text.NewCol(2, formatCents(e.AmountCents, e.Currency), cellPropsRight()),
		))
	}
	rows = append(rows, line.NewRow(4))
	return rows
}

func memberRows(st *statementdomain.Statement) []core.Row {
	if len(st.Members) == 0 {
		return nil
	}
	rows := []core.Row{
		row.New(7).Add(text.NewCol(12, "Member balances", props.Text{Size: 11, Style: fontstyle.Bold})),
		row.New(5).Add(
			text.NewCol(6, "Member", headerProps()),
			text.NewCol(2, "Owed", headerPropsRight()),
			text.NewCol(2, "Settled", headerPropsRight()),
			text.NewCol(2, "Outstanding", headerPropsRight()),
		),
	}
	for _, m := range st.Members {
		rows = append(rows, row.New(5).Add(
			text.NewCol(6, m.MemberName, cellProps()),
			text.NewCol(2, formatCents(m.OwedCents, st.Currency), cellPropsRight()),
			text.NewCol(2, formatCents(m.SettledCents, st.Currency), cellPropsRight()),
			text.NewCol(2, formatCents(m.OutstandingCents(), st.Currency), cellPropsRight()),
		))
	}
	return rows
}

func headerProps() props.Text {
	return props.Text{Size: 8, Style: fontstyle.Bold, Color: mutedText}
}

func headerPropsRight() props.Text {
	p := headerProps()
	p.Align = align.Right
	return p
}

func cellProps() props.Text {
	return props.Text{Size: 9}
}

func cellPropsRight() props.Text {
	p := cellProps()
	p.Align = align.Right
	return p
}

func formatCents(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
