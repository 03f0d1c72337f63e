// Command kdbxcli inspects, dumps, verifies and rewrites KDBX files
// from the shell. It is the teacher's cmd/rpcdaemon pattern of a
// cli.App with registered Commands and Flags, scaled down from an RPC
// daemon to a file-oriented inspector.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/urfave/cli"

	"github.com/ledgerwatch/kdbxcore/log"
)

// stdout is the colorized output stream every command prints through,
// wrapping the raw file descriptor the way the teacher's own CLIs pass
// terminal output through go-colorable so ANSI sequences render on
// Windows consoles too.
var stdout io.Writer = colorable.NewColorableStdout()

var (
	fileFlag = cli.StringFlag{
		Name:  "file",
		Usage: "path to the KDBX database",
	}
	passwordFlag = cli.StringFlag{
		Name:  "password",
		Usage: "master password (prefer --password-env for scripts)",
	}
	passwordEnvFlag = cli.StringFlag{
		Name:  "password-env",
		Usage: "name of an environment variable holding the master password",
	}
	keyfileFlag = cli.StringFlag{
		Name:  "keyfile",
		Usage: "path to a key-file component of the composite key",
	}
	verboseFlag = cli.BoolFlag{
		Name:  "verbose",
		Usage: "emit pipeline-stage debug logging",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "kdbxcli"
	app.Usage = "inspect, dump, verify and rewrite KDBX password databases"
	app.Flags = []cli.Flag{fileFlag, passwordFlag, passwordEnvFlag, keyfileFlag, verboseFlag}
	app.Before = func(c *cli.Context) error {
		if c.GlobalBool(verboseFlag.Name) {
			log.SetLevel(log.LvlDebug)
		}
		return nil
	}
	app.Commands = []cli.Command{
		inspectCommand,
		dumpCommand,
		verifyCommand,
		rewriteCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "kdbxcli:", err)
		os.Exit(1)
	}
}
