package main

import (
	"context"
	"fmt"
	"os"

	"github.com/commercelab/shopetl/cmd"
)

func main() {
	rc := cmd.NewRootCommand(os.Stdout, os.Stderr)
	if err := rc.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
