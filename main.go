package main

import (
	"fmt"
	"os"

	"boxrun/internal/app"
	"boxrun/internal/cli"
)

func main() {
	// signals are handled by the runner while the command runs
	application := app.New()
	code, err := application.Run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cli.HandleError(err))
		if code == 0 {
			code = 1
		}
	}
	os.Exit(code)
}
