package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/memobot/internal/core"
)

type PendingCommand struct {
	memory    MemoryService
	people    PeopleService
	formatter *ResponseFormatter
}

func NewPendingCommand(mem MemoryService, people PeopleService) *PendingCommand {
	return &PendingCommand{
		memory:    mem,
		people:    people,
		formatter: NewResponseFormatter(),
	}
}

func (c *PendingCommand) Name() string {
	return "pending"
}

func (c *PendingCommand) Description() string {
	return "Lista lo pendiente, de todos o de una persona"
}

func (c *PendingCommand) Execute(ctx context.Context, args []string) (string, error) {
	filter := core.ItemFilter{Status: core.StatusPending}
	title := "Pendiente"

	if len(args) > 0 {
		name := strings.Join(args, " ")
		p, err := c.people.Lookup(ctx, name)
		if err != nil {
			return "", fmt.Errorf("no conozco a %s: %w", name, err)
		}
		filter.PersonID = p.ID
		title += " con " + p.DisplayName
	}

	items, err := c.memory.List(ctx, filter)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return c.formatter.Success("No tienes nada pendiente"), nil
	}

	if filter.PersonID != "" {
		return c.formatter.Combine(c.formatter.Info(title), c.formatter.Items(items)), nil
	}
	return c.formatter.Combine(c.formatter.Info(title), c.groupByPerson(ctx, items)), nil
}

func (c *PendingCommand) groupByPerson(ctx context.Context, items []core.MemoryItem) string {
	var (
		order  []string
		groups = make(map[string][]core.MemoryItem)
	)
	for _, it := range items {
		if _, ok := groups[it.PersonID]; !ok {
			order = append(order, it.PersonID)
		}
		groups[it.PersonID] = append(groups[it.PersonID], it)
	}

	sections := make([]string, 0, len(order))
	for _, personID := range order {
		name := "Sin persona"
		if personID != "" {
			if p, err := c.people.Get(ctx, personID); err == nil {
				name = p.DisplayName
			}
		}
		sections = append(sections, c.formatter.Section("👤", name, c.formatter.Items(groups[personID])))
	}
	return c.formatter.Combine(sections...)
}
