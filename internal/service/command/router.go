package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sandevgo/memobot/internal/core"
)

type Router struct {
	commands map[string]core.Command
}

func New(commands []core.Command) *Router {
	c := &Router{
		commands: make(map[string]core.Command),
	}

	for _, cmd := range commands {
		c.commands[cmd.Name()] = cmd
	}
	return c
}

// Execute runs a slash command. It reports false when input is not a command.
func (c *Router) Execute(ctx context.Context, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", false
	}

	parts := strings.Fields(input)
	name := strings.TrimPrefix(parts[0], "/")
	// Telegram appends the bot name in groups: /pending@memobot
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	args := parts[1:]

	cmd, ok := c.commands[name]
	if !ok {
		return fmt.Sprintf("Comando desconocido: /%s. Prueba /help", name), true
	}

	result, err := cmd.Execute(ctx, args)
	if err != nil {
		return NewResponseFormatter().Error(name, err), true
	}
	return result, true
}

// Register adds cmd, replacing any command with the same name.
func (c *Router) Register(cmd core.Command) {
	c.commands[cmd.Name()] = cmd
}

func (c *Router) ListCommands() []core.Command {
	res := make([]core.Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		res = append(res, cmd)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name() < res[j].Name() })
	return res
}
