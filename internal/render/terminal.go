package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/vbonduro/mediscan/internal/domain"
)

var styles = map[Style]color.Style{
	StyleRed:     color.New(color.FgRed, color.OpBold),
	StyleOrange:  color.New(color.FgLightRed),
	StyleYellow:  color.New(color.FgYellow),
	StyleGreen:   color.New(color.FgGreen),
	StyleNeutral: color.New(color.FgGray),
}

var heading = color.New(color.FgCyan, color.OpBold)

// Terminal writes result as plain tables for the command line client.
func Terminal(w io.Writer, result domain.Result) error {
	switch r := result.(type) {
	case *domain.XRayReport:
		return terminalXRay(w, XRay(r))
	case *domain.SymptomReport:
		return terminalSymptoms(w, Symptoms(r))
	default:
		return fmt.Errorf("cannot render result of type %T", result)
	}
}

func terminalXRay(w io.Writer, v XRayView) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n\n", heading.Render("Key Findings"), v.KeyFindings); err != nil {
		return err
	}
	if v.Top != nil {
		if _, err := fmt.Fprintf(w, "%s %s (%s%%)\n\n", heading.Render("Top Diagnosis:"), v.Top.Condition, v.Top.Percent); err != nil {
			return err
		}
	}

	table := newTable(w, []string{"", "Condition", "Probability", "Description"})
	for _, row := range v.Rows {
		marker := ""
		if row.IsTop {
			marker = "*"
		}
		table.Append([]string{
			marker,
			row.Condition,
			styles[row.Bar].Render(row.Percent + "%"),
			row.Description,
		})
	}
	table.Render()
	return nil
}

func terminalSymptoms(w io.Writer, v SymptomView) error {
	if _, err := fmt.Fprintf(w, "%s\n", heading.Render("Possible Conditions")); err != nil {
		return err
	}
	conditions := newTable(w, []string{"Condition", "Severity", "Description"})
	for _, c := range v.Conditions {
		conditions.Append([]string{c.Name, styles[c.Style].Render(string(c.Severity)), c.Description})
	}
	conditions.Render()

	if _, err := fmt.Fprintf(w, "\n%s\n", heading.Render("Recommendations")); err != nil {
		return err
	}
	recs := newTable(w, []string{"Category", "Advice"})
	for _, g := range v.Groups {
		recs.Append([]string{g.Category, strings.Join(g.Advice, "\n")})
	}
	recs.Render()

	_, err := fmt.Fprintf(w, "\n%s\n", color.New(color.FgGray, color.OpItalic).Render(v.Disclaimer))
	return err
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}
