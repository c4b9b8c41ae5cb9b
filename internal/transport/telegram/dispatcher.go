package telegram

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// Dispatcher delivers reminders to the owner's chat. The person the reminder
// is about only shapes the text, never the recipient.
type Dispatcher struct {
	sender *sender
	to     tele.Recipient
}

func (d *Dispatcher) Send(ctx context.Context, personID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.sender.sendMarkdown(ctx, d.to, text, false); err != nil {
		return fmt.Errorf("telegram dispatch: %w", err)
	}
	return nil
}
