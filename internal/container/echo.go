package container

import (
	"fmt"
	"strings"

	"boxrun/internal/logger"
	"boxrun/internal/validation"

	"github.com/fatih/color"
)

var green = color.New(color.FgGreen).SprintFunc()

// echoCommand logs the command about to run, quoted so it can be pasted into a shell
func echoCommand(what, name string, args []string) {
	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, name)
	for _, a := range args {
		quoted = append(quoted, validation.ShellEscape(a))
	}
	logger.Info(green(fmt.Sprintf("%s command will be:\n %s", what, strings.Join(quoted, " "))))
}
