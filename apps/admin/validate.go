package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/dtsmedt/PlanOfStudy/core/plan"
)

func (cli *commandLine) validate(ctx context.Context, pid string, degree plan.DegreeType) error {
	p, err := cli.plans.GetPlan(ctx, pid, degree)
	if err != nil {
		return err
	}
	report, err := cli.approvals.Evaluate(ctx, p)
	if err != nil {
		return err
	}

	ok := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()

	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"Check", "Result"})
	for _, name := range report.Flags.Failed() {
		table.Append([]string{name, fail("FAIL")})
	}
	for _, v := range report.RowViolations {
		table.Append([]string{v.Label, fail(strings.Join(v.Messages, " "))})
	}
	for _, msg := range report.Messages() {
		table.Append([]string{"plan", msg})
	}
	table.SetFooter([]string{"total with transfer", strconv.Itoa(report.TotalWithTransfer)})
	table.Render()

	if report.SubmitEligible() {
		fmt.Fprintln(cli.out, ok("plan of study may be submitted"))
		return nil
	}
	fmt.Fprintln(cli.out, fail("plan of study does not meet the degree requirements"))
	return nil
}
