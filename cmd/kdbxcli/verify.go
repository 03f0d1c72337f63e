package main

import (
	"context"
	"fmt"
	"os"

	"github.com/logrusorgru/aurora"
	"github.com/urfave/cli"

	"github.com/ledgerwatch/kdbxcore/kdbxio"
)

var verifyCommand = cli.Command{
	Name:  "verify",
	Usage: "attempt a full load and report whether the file decrypts and parses cleanly",
	Action: func(c *cli.Context) error {
		path, err := filePathFromContext(c)
		if err != nil {
			return err
		}
		creds, err := credentialsFromContext(c)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		tree, err := kdbxio.Load(context.Background(), f, creds)
		if err != nil {
			fmt.Fprintln(stdout, aurora.Red("FAIL"), err)
			return cli.NewExitError("", 1)
		}
		fmt.Fprintln(stdout, aurora.Green("OK"), "database decrypts and parses cleanly")
		fmt.Fprintf(stdout, "  root group: %q, %d child groups\n", tree.Root.Name, len(tree.Root.Groups))
		return nil
	},
}
