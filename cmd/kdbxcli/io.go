package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/urfave/cli"

	"github.com/ledgerwatch/kdbxcore/kdbxio"
)

// credentialsFromContext builds kdbxio.CompositeKeyInputs from the
// app's global flags, preferring --password-env over a plaintext
// --password so scripts don't leak the master password through
// process listings.
func credentialsFromContext(c *cli.Context) (kdbxio.CompositeKeyInputs, error) {
	var in kdbxio.CompositeKeyInputs

	if envName := c.GlobalString(passwordEnvFlag.Name); envName != "" {
		in.Password = os.Getenv(envName)
	} else {
		in.Password = c.GlobalString(passwordFlag.Name)
	}

	if kf := c.GlobalString(keyfileFlag.Name); kf != "" {
		raw, err := ioutil.ReadFile(kf)
		if err != nil {
			return in, fmt.Errorf("reading key-file: %w", err)
		}
		in.KeyFile = raw
	}

	if in.Password == "" && len(in.KeyFile) == 0 {
		return in, fmt.Errorf("no credentials supplied: pass --password, --password-env or --keyfile")
	}
	return in, nil
}

func filePathFromContext(c *cli.Context) (string, error) {
	path := c.GlobalString(fileFlag.Name)
	if path == "" {
		return "", fmt.Errorf("missing required --file flag")
	}
	return path, nil
}
