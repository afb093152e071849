package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/trezcool/notas/core/grading"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db     *sql.DB
	engine string
	svc    *grading.Service
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)")
	fmt.Fprintln(cli.out, "  consolidate -group ID [-carnet CARNET | -carnets C1,C2,...] [-format text|json] - print consolidated grades")
	fmt.Fprintln(cli.out, "  publish -evaluation ID - publish every unpublished grade of an evaluation")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	consolidateCmd := flag.NewFlagSet("consolidate", flag.ContinueOnError)
	consolidateCmd.SetOutput(cli.out)
	consolidateGroup := consolidateCmd.String("group", "", "The group ID.")
	consolidateCarnet := consolidateCmd.String("carnet", "", "A student's carnet.")
	consolidateCarnets := consolidateCmd.String("carnets", "", "Comma separated carnets, for a class report.")
	consolidateFormat := consolidateCmd.String("format", "", "Output format: text or json. Defaults to text on a terminal, json otherwise.")

	publishCmd := flag.NewFlagSet("publish", flag.ContinueOnError)
	publishCmd.SetOutput(cli.out)
	publishEvaluation := publishCmd.String("evaluation", "", "The evaluation ID.")

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "consolidate":
		if err := consolidateCmd.Parse(args[2:]); err != nil {
			return err
		}
		carnets := splitCarnets(*consolidateCarnet, *consolidateCarnets)
		if *consolidateGroup == "" || len(carnets) == 0 {
			consolidateCmd.Usage()
			return errHelp
		}
		return cli.consolidate(ctx, *consolidateGroup, carnets, *consolidateFormat)
	case "publish":
		if err := publishCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *publishEvaluation == "" {
			publishCmd.Usage()
			return errHelp
		}
		n, err := cli.svc.PublishAll(ctx, *publishEvaluation)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%d grade(s) published\n", n)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func splitCarnets(carnet, carnets string) []string {
	out := make([]string, 0)
	for _, c := range append([]string{carnet}, strings.Split(carnets, ",")...) {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
