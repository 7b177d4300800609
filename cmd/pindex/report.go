package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/pindex/internal/catalog"
	"github.com/hyperengineering/pindex/internal/report"
	"github.com/hyperengineering/pindex/internal/rollup"
)

var reportCmd = &cobra.Command{
	Use:   "report <project-id>",
	Short: "Print a project's progress and participation report",
	Long:  "Print stage and category progress for a project, followed by the method matrix of every stage with recorded methods.",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	builder := report.NewBuilder(s, cliLogger(cmd.ErrOrStderr()))
	rep, err := builder.Build(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), rep)
	}
	return writeReport(cmd.OutOrStdout(), rep)
}

func writeReport(out io.Writer, rep *report.Report) error {
	a := rep.Analytics

	fmt.Fprintf(out, "%s (%s)\n", rep.Project.Name, rep.Project.ID)
	fmt.Fprintf(out, "Description: %s\n", dashIfEmpty(rep.Project.Description))
	fmt.Fprintf(out, "Created %s, %d/%d items complete (%d%%)\n\n",
		humanize.Time(rep.Project.CreatedAt),
		a.Overall.Completed, a.Overall.Total, a.Overall.CompletionRate)

	w := newTabWriter(out)
	fmt.Fprintln(w, "STAGE\tNAME\tCOMPLETED\tTOTAL\tRATE")
	for _, st := range a.StageSummaries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d%%\n", st.Stage, st.Name, st.Completed, st.Total, st.CompletionRate)
	}
	fmt.Fprintf(w, "-\tunassigned\t\t%d\t\n", a.Overall.Unassigned)
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)

	avg := make(map[string]float64, len(a.CategoryPI))
	for _, c := range a.CategoryPI {
		avg[c.Category] = c.AveragePI
	}
	w = newTabWriter(out)
	fmt.Fprintln(w, "CATEGORY\tCOMPLETED\tTOTAL\tRATE\tANALOG\tDIGITAL\tAVG PI")
	for _, c := range a.CategorySummaries {
		pi := "-"
		if v, ok := avg[c.Name]; ok {
			pi = fmt.Sprintf("%.2f%%", v)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d%%\t%d\t%d\t%s\n",
			c.Name, c.Completed, c.Total, c.CompletionRate, c.AnalogCount, c.DigitalCount, pi)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, sm := range a.Methods {
		if !hasMethodData(sm) {
			continue
		}
		fmt.Fprintf(out, "\nStage %d: %s (%d/%d methods)\n", sm.Stage, sm.Name, sm.CompletedMethods, catalog.MethodCount)
		w = newTabWriter(out)
		fmt.Fprintln(w, "CODE\tMETHOD\tCOMPLETED\tITEMS\tAVG PI")
		for _, m := range sm.Methods {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f%%\n", m.Code, m.Name, m.Completed, m.Total, m.AvgPI)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if len(a.Inconsistencies) > 0 {
		fmt.Fprintf(out, "\n%d item(s) have a method key that disagrees with the title:\n", len(a.Inconsistencies))
		for _, inc := range a.Inconsistencies {
			fmt.Fprintf(out, "  %s %q: method %s, title %s\n", inc.ItemID, inc.Title, inc.MethodKey, inc.TitleKey)
		}
	}
	return nil
}

// hasMethodData reports whether any method of the stage has an item.
func hasMethodData(sm rollup.StageMethods) bool {
	for _, m := range sm.Methods {
		if m.Total > 0 {
			return true
		}
	}
	return false
}
