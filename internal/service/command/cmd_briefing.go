package command

import (
	"context"
	"fmt"
	"strings"
)

type BriefingCommand struct {
	memory    MemoryService
	people    PeopleService
	formatter *ResponseFormatter
}

func NewBriefingCommand(mem MemoryService, people PeopleService) *BriefingCommand {
	return &BriefingCommand{
		memory:    mem,
		people:    people,
		formatter: NewResponseFormatter(),
	}
}

func (c *BriefingCommand) Name() string {
	return "briefing"
}

func (c *BriefingCommand) Description() string {
	return "Prepara una reunión: pendiente y hablado recientemente"
}

func (c *BriefingCommand) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return c.formatter.Combine(
			c.formatter.Usage("/briefing <nombre>"),
			c.formatter.Examples([]string{"/briefing Toni"}),
		), nil
	}

	name := strings.Join(args, " ")
	p, err := c.people.Lookup(ctx, name)
	if err != nil {
		return "", fmt.Errorf("no conozco a %s: %w", name, err)
	}

	b, err := c.memory.Briefing(ctx, p.ID, "")
	if err != nil {
		return "", err
	}
	return c.formatter.Briefing(b), nil
}
