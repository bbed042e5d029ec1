package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/skondo/wordkeep/internal/app"
	"github.com/skondo/wordkeep/internal/scheduler"
)

// ReviewSessionCLI runs an interactive review session over the due queue.
type ReviewSessionCLI struct {
	*InteractiveCLI
	app      *app.App
	queue    []app.DueItem
	reviewed int
	correct  int
}

// NewReviewSessionCLI loads the due queue and prepares a session. limit <= 0
// reviews everything that is due.
func NewReviewSessionCLI(ctx context.Context, application *app.App, limit int) (*ReviewSessionCLI, error) {
	queue, err := application.DueItems(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("app.DueItems() > %w", err)
	}

	return &ReviewSessionCLI{
		InteractiveCLI: newInteractiveCLI(),
		app:            application,
		queue:          queue,
	}, nil
}

// QueueLength returns the number of items waiting in this session.
func (r *ReviewSessionCLI) QueueLength() int {
	return len(r.queue)
}

func (r *ReviewSessionCLI) Session(ctx context.Context) error {
	if len(r.queue) == 0 {
		if _, err := fmt.Fprintf(r.stdoutWriter, "\nSession finished: %d reviewed, %d recalled.\n", r.reviewed, r.correct); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
		return errEnd
	}
	current := r.queue[0]

	if _, err := r.bold.Fprintf(r.stdoutWriter, "%s", current.Item.Expression); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}
	if _, err := fmt.Fprint(r.stdoutWriter, " (press Enter to reveal) "); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}
	if _, err := r.stdinReader.ReadString('\n'); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	if current.Item.Meaning != "" {
		if _, err := r.italic.Fprintf(r.stdoutWriter, "%s\n", current.Item.Meaning); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	quality, err := r.readQuality()
	if err != nil {
		return err
	}
	if quality < 0 {
		if _, err := fmt.Fprintf(r.stdoutWriter, "\nSession finished: %d reviewed, %d recalled.\n", r.reviewed, r.correct); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
		return errEnd
	}

	record, err := r.app.ReviewItem(ctx, current.Item.ID, quality)
	if err != nil {
		return fmt.Errorf("app.ReviewItem(%s) > %w", current.Item.ID, err)
	}

	r.reviewed++
	if quality >= scheduler.PassingQuality {
		r.correct++
		green := color.New(color.FgGreen)
		if _, err := green.Fprintf(r.stdoutWriter, "Next review in %d day(s).\n\n", record.IntervalDays); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	} else {
		red := color.New(color.FgRed)
		if _, err := red.Fprintf(r.stdoutWriter, "Back to the start. You will see it again soon.\n\n"); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	r.queue = r.queue[1:]
	return nil
}

// readQuality asks for a recall grade until it gets one, or -1 on quit.
func (r *ReviewSessionCLI) readQuality() (int, error) {
	for {
		if _, err := fmt.Fprintf(r.stdoutWriter, "How well did you recall it? [0-5, q to quit]: "); err != nil {
			return 0, fmt.Errorf("error writing output: %w", err)
		}
		input, err := r.stdinReader.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("error reading input: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "q" || input == "quit" {
			return -1, nil
		}
		quality, err := strconv.Atoi(input)
		if err != nil || quality < scheduler.MinQuality || quality > scheduler.MaxQuality {
			if _, err := fmt.Fprintln(r.stdoutWriter, "Enter a number between 0 and 5."); err != nil {
				return 0, fmt.Errorf("error writing output: %w", err)
			}
			continue
		}
		return quality, nil
	}
}
