package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandevgo/memobot/internal/core"
)

type SnoozeCommand struct {
	memory    MemoryService
	formatter *ResponseFormatter
	now       func() time.Time
}

func NewSnoozeCommand(mem MemoryService) *SnoozeCommand {
	return &SnoozeCommand{memory: mem, formatter: NewResponseFormatter(), now: time.Now}
}

func (c *SnoozeCommand) Name() string {
	return "snooze"
}

func (c *SnoozeCommand) Description() string {
	return "Pospone el recordatorio de un tema"
}

func (c *SnoozeCommand) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) != 2 {
		return c.formatter.Combine(
			c.formatter.Usage("/snooze <id> <duración>"),
			c.formatter.Examples([]string{"/snooze 1a2b3c4d 2h", "/snooze 1a2b3c4d 3d"}),
		), nil
	}

	ids, err := ResolveIDs(ctx, c.memory, args[:1])
	if err != nil {
		return "", err
	}
	d, err := ParseDelay(args[1])
	if err != nil {
		return "", err
	}

	t, err := c.memory.Postpone(ctx, ids[0], c.now().Add(d))
	if err != nil {
		return "", err
	}
	return c.formatter.Success("Pospuesto hasta el " + t.TriggerAt.In(time.Local).Format("02/01 15:04")), nil
}

// ParseDelay accepts Go durations plus a day suffix: "90m", "2h", "3d".
func ParseDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: duración inválida %q", core.ErrInvalidInput, s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: duración inválida %q", core.ErrInvalidInput, s)
	}
	return d, nil
}
