package command

import (
	"context"
	"fmt"
)

type DoneCommand struct {
	memory    MemoryService
	formatter *ResponseFormatter
}

func NewDoneCommand(mem MemoryService) *DoneCommand {
	return &DoneCommand{memory: mem, formatter: NewResponseFormatter()}
}

func (c *DoneCommand) Name() string {
	return "done"
}

func (c *DoneCommand) Description() string {
	return "Marca temas como hablados"
}

func (c *DoneCommand) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return c.formatter.Combine(
			c.formatter.Usage("/done <id> [id...]"),
			c.formatter.Tip("los ids aparecen en /pending."),
		), nil
	}

	ids, err := ResolveIDs(ctx, c.memory, args)
	if err != nil {
		return "", err
	}
	report, err := c.memory.Close(ctx, ids, "")
	if err != nil {
		return "", err
	}

	msg := c.formatter.Success(fmt.Sprintf("%d tema(s) marcados como hablados", len(report.Closed)))
	if len(report.Skipped) > 0 {
		msg += fmt.Sprintf("%d ya estaban cerrados.\n", len(report.Skipped))
	}
	if len(report.NotFound) > 0 {
		msg += fmt.Sprintf("%d no existen.\n", len(report.NotFound))
	}
	return msg, nil
}
