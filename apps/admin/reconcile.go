package main

import (
	"context"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/term"
)

func slotLabel(year *int, id *term.ID) string {
	if year == nil || id == nil {
		return "?"
	}
	return slot(*year, *id)
}

func slot(year int, id term.ID) string {
	return term.Bucket{Year: year, Term: id}.String()
}

func (cli *commandLine) reconcile(ctx context.Context, pid string, degree plan.DegreeType) error {
	result, err := cli.reconciler.Compare(ctx, pid, degree)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"Action", "Course", "Term", "Grade", "Detail"})
	table.SetAutoWrapText(false)

	add := color.New(color.FgGreen).SprintFunc()
	remove := color.New(color.FgRed).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	for _, a := range result.ToAdd {
		detail := ""
		switch {
		case a.MissingTerm:
			detail = "pick a term"
		case a.NeedsArea():
			detail = "pick an area"
		}
		table.Append([]string{add("add"), a.Code, slotLabel(a.Year, a.Term), a.Grade, detail})
	}
	for _, r := range result.ToRemove {
		table.Append([]string{remove("remove"), r.Code, slot(r.Year, r.Term), r.Grade, "not passed"})
	}
	for _, m := range result.ToMissing {
		table.Append([]string{warn("missing"), m.Code, slot(m.Year, m.Term), "", "not on transcript"})
	}
	for _, i := range result.ToIgnore {
		detail := i.Reason
		if len(i.Suggestions) > 0 {
			detail += " (did you mean " + strings.Join(i.Suggestions, ", ") + "?)"
		}
		table.Append([]string{"ignore", i.Code, slotLabel(i.Year, i.Term), i.Grade, detail})
	}

	if table.NumLines() == 0 {
		color.New(color.FgGreen).Fprintf(cli.out, "%s %s plan of study matches the transcript\n", pid, degree)
		return nil
	}
	table.Render()
	return nil
}
