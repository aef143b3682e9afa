// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nyayantar/nyaya-tui/internal/api"
	submit "github.com/nyayantar/nyaya-tui/internal/chat"
	"github.com/nyayantar/nyaya-tui/internal/model"
)

// =============================================================================
// STREAM RUNNER
// =============================================================================

// Sender delivers messages into a running Bubble Tea program.
type Sender interface {
	Send(msg tea.Msg)
}

// Runner executes chat streams on a goroutine and feeds the decoded
// events back into the program as messages.
type Runner struct {
	sender    Sender
	submitter *submit.Submitter
}

// NewRunner creates a stream runner.
func NewRunner(sender Sender, submitter *submit.Submitter) *Runner {
	return &Runner{sender: sender, submitter: submitter}
}

// Run streams an answer for query and sends progress messages. Intended
// to be called as a goroutine; all delivery happens through the sender.
func (r *Runner) Run(ctx context.Context, conv *model.Conversation, query, messageID string) {
	r.sender.Send(StreamStartMsg{MessageID: messageID, StartTime: time.Now()})

	var serverErr string
	err := r.submitter.Stream(ctx, conv, query, func(ev api.StreamEvent) {
		switch ev.Kind {
		case api.EventText:
			r.sender.Send(StreamTokenMsg{MessageID: messageID, Token: ev.Text})

		case api.EventAnnotations:
			acc := api.NewStreamAccumulator()
			acc.Add(ev)
			res := acc.Result()
			if len(res.Sources) > 0 || len(res.SuggestedQuestions) > 0 {
				r.sender.Send(StreamAnnotationsMsg{
					MessageID:          messageID,
					Sources:            submit.ConvertSources(res.Sources),
					SuggestedQuestions: res.SuggestedQuestions,
				})
			}

		case api.EventError:
			serverErr = ev.ErrorText
		}
	})

	if err != nil {
		var limitErr *submit.LimitError
		if errors.As(err, &limitErr) {
			r.sender.Send(GuestLimitMsg{Count: limitErr.Count})
			return
		}
		r.sender.Send(StreamErrorMsg{MessageID: messageID, Error: err})
		return
	}

	r.sender.Send(StreamCompleteMsg{
		MessageID:   messageID,
		ServerError: serverErr,
		Remaining:   r.submitter.Remaining(),
	})
}
