package commands

import (
	"github.com/spf13/cobra"

	"github.com/ledgerwatch/kdbxcore/cmd/kdbxgen/genlib"
)

var (
	fixtureOut        string
	fixturePassword   string
	fixtureMajor      int
	fixtureKDF        string
	fixtureGroupDepth int
	fixtureEntries    int
	fixtureBinarySize int
)

func init() {
	fixtureCmd.Flags().StringVar(&fixtureOut, "out", "fixture.kdbx", "output path")
	fixtureCmd.Flags().StringVar(&fixturePassword, "password", "fixture-password", "master password to protect the fixture with")
	fixtureCmd.Flags().IntVar(&fixtureMajor, "major", 4, "container version (3 or 4)")
	fixtureCmd.Flags().StringVar(&fixtureKDF, "kdf", "argon2id", "argon2id, argon2d or aeskdf")
	fixtureCmd.Flags().IntVar(&fixtureGroupDepth, "group-depth", 2, "depth of the nested group chain")
	fixtureCmd.Flags().IntVar(&fixtureEntries, "entries", 5, "entries per group")
	fixtureCmd.Flags().IntVar(&fixtureBinarySize, "binary-size", 0, "bytes per entry attachment; 0 disables attachments")
	rootCmd.AddCommand(fixtureCmd)
}

var fixtureCmd = &cobra.Command{
	Use:   "fixture",
	Short: "write a single randomized KDBX fixture file",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := genlib.FixtureOptions{
			Major:      uint16(fixtureMajor),
			KDF:        fixtureKDF,
			GroupDepth: fixtureGroupDepth,
			EntriesPer: fixtureEntries,
			BinarySize: fixtureBinarySize,
			Password:   fixturePassword,
		}
		return genlib.WriteFixture(cmd.Context(), fixtureOut, opts)
	},
}
