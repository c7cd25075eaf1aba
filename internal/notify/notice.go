package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// PublishNotice stores a notice and announces it to every member in one
// transaction.
func (d *Dispatcher) PublishNotice(ctx context.Context, title, content, author string) (*model.Notice, error) {
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("notice title and content are required")
	}

	tx, err := d.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	notice, err := store.CreateNotice(ctx, tx, title, content, author, d.Now())
	if err != nil {
		return nil, err
	}

	sent, err := d.NotifyAllMembers(ctx, tx, Message{
		Type:    model.NotifyNotice,
		Title:   "New notice",
		Message: fmt.Sprintf("Notice '%s' has been posted.", title),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing notice: %w", err)
	}

	slog.Info("notice published", "notice", notice.ID, "author", author, "recipients", sent)
	return notice, nil
}
