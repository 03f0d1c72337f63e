// Command kdbxgen generates randomized KDBX fixture databases for the
// test and property-check suite. It mirrors the teacher's
// cmd/headers main/commands split: main.go only wires up Execute.
package main

import "github.com/ledgerwatch/kdbxcore/cmd/kdbxgen/commands"

func main() {
	commands.Execute()
}
