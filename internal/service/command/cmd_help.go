package command

import (
	"context"
	"fmt"
)

type HelpCommand struct {
	router    *Router
	formatter *ResponseFormatter
}

func NewHelpCommand(router *Router) *HelpCommand {
	return &HelpCommand{router: router, formatter: NewResponseFormatter()}
}

func (c *HelpCommand) Name() string {
	return "help"
}

func (c *HelpCommand) Description() string {
	return "Muestra los comandos disponibles"
}

func (c *HelpCommand) Execute(_ context.Context, _ []string) (string, error) {
	lines := make([]string, 0)
	for _, cmd := range c.router.ListCommands() {
		lines = append(lines, fmt.Sprintf("/%s - %s", cmd.Name(), cmd.Description()))
	}
	return c.formatter.Combine(
		c.formatter.Info("Comandos"),
		c.formatter.List(lines),
		c.formatter.Tip(`escribe en lenguaje natural, por ejemplo "recuérdame hablar con Toni de salarios".`),
	), nil
}
