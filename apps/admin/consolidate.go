package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/notas/core/grading"
)

var isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) } // mockable

func (cli *commandLine) consolidate(ctx context.Context, groupID string, carnets []string, format string) error {
	if format == "" {
		format = "json"
		if isTerminalFunc() {
			format = "text"
		}
	}
	if format != "text" && format != "json" {
		return errors.Errorf("unknown format %q", format)
	}

	var results []grading.Consolidation
	if len(carnets) == 1 {
		cons, err := cli.svc.Consolidate(ctx, carnets[0], groupID)
		if err != nil {
			return err
		}
		results = append(results, cons)
	} else {
		var err error
		if results, err = cli.svc.ConsolidateAll(ctx, groupID, carnets); err != nil {
			return err
		}
	}

	if format == "json" {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}
	for i, cons := range results {
		if i > 0 {
			fmt.Fprintln(cli.out)
		}
		if err := writeConsolidation(cli.out, cons); err != nil {
			return err
		}
	}
	return nil
}

func writeConsolidation(out io.Writer, cons grading.Consolidation) error {
	name := cons.Carnet
	if cons.Student.Name != "" {
		name += " (" + cons.Student.Name + ")"
	}
	fmt.Fprintf(out, "Student: %s\nGroup:   %s\n", name, cons.GroupID)
	if cons.Error != "" {
		_, err := fmt.Fprintf(out, "Error:   %s\n", cons.Error)
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUBRIC\tWEIGHT\tSTATUS\tPOINTS\tOBTAINED")
	for _, rub := range cons.PerRubric {
		fmt.Fprintf(w, "%s\t%d%%\t\t\t%.2f\n", rub.RubricName, rub.RubricWeight, rub.ObtainedWithinRubric)
		for _, ev := range rub.Evaluations {
			fmt.Fprintf(w, "  %s\t%d%%\t%s\t%s\t\n", ev.Name, ev.Weight, ev.Status, ev.Points)
		}
	}
	fmt.Fprintf(w, "TOTAL\t\t\t\t%.2f\n", cons.TotalGrade)
	return w.Flush()
}
