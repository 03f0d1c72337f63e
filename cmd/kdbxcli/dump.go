package main

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/ledgerwatch/kdbxcore/kdbxio"
	"github.com/ledgerwatch/kdbxcore/model"
)

var dumpCommand = cli.Command{
	Name:  "dump",
	Usage: "decrypt the database and print every entry as a table",
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
			return err
		}

		table := tablewriter.NewWriter(stdout)
		table.SetHeader([]string{"Group", "Title", "UserName", "URL", "Binaries"})
		walkGroup(table, tree.Root, tree.Root.Name)
		table.Render()
		return nil
	},
}

func walkGroup(table *tablewriter.Table, g *model.Group, path string) {
	for _, e := range g.Entries {
		table.Append([]string{
			path,
			e.Title(),
			e.UserName(),
			e.URL(),
			fmt.Sprintf("%d", len(e.Binaries)),
		})
	}
	for _, child := range g.Groups {
		walkGroup(table, child, path+"/"+child.Name)
	}
}
