package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxdraft/internal/addon"
	"github.com/teemow/inboxdraft/internal/assistant"
)

// Tasks accepted by the try command.
const (
	tryReply     = "reply"
	tryCompose   = "compose"
	trySummarize = "summarize"
	tryExtract   = "extract"
)

// maxTryInput bounds what try reads from stdin.
const maxTryInput = 1 << 20

type tryOptions struct {
	recipient string
	subject   string
	timeZone  string
}

func newTryCmd() *cobra.Command {
	var opts tryOptions

	cmd := &cobra.Command{
		Use:   "try <reply|compose|summarize|extract>",
		Short: "Run one assistant task on text read from stdin",
		Long: `Run one assistant task against the configured model and print the result.

  reply      draft a reply to the email on stdin
  compose    write an email from the instruction on stdin
  summarize  summarize the email on stdin
  extract    print the calendar event found in the email on stdin

Example:
  inboxdraft try summarize < message.txt
  echo "ask Bob to move our 1:1" | inboxdraft try compose --recipient Bob`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{tryReply, tryCompose, trySummarize, tryExtract},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validTryTask(args[0]) {
				return fmt.Errorf("unknown task %q (expected reply, compose, summarize or extract)", args[0])
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)
			svc, store, err := newAssistant(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}
			return runTry(cmd.Context(), svc, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.recipient, "recipient", "", "Recipient used in the greeting (compose)")
	f.StringVar(&opts.subject, "subject", "", "Subject the email should fit (compose)")
	f.StringVar(&opts.timeZone, "time-zone", "", "IANA time zone for times without an offset (extract, default: local)")
	addLLMFlags(f)

	return cmd
}

func validTryTask(task string) bool {
	switch task {
	case tryReply, tryCompose, trySummarize, tryExtract:
		return true
	}
	return false
}

func runTry(ctx context.Context, svc addon.Assistant, task string, in io.Reader, out io.Writer, opts tryOptions) error {
	data, err := io.ReadAll(io.LimitReader(in, maxTryInput))
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" && task != tryCompose {
		return errors.New("no input on stdin")
	}

	switch task {
	case tryReply:
		reply, err := svc.DraftReply(ctx, text)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, reply)
		return err

	case tryCompose:
		body, err := svc.ComposeEmail(ctx, assistant.ComposeInput{
			UserInput: text,
			Recipient: opts.recipient,
			Subject:   opts.subject,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, body)
		return err

	case trySummarize:
		summary, err := svc.Summarize(ctx, assistant.SummaryRequest{Text: text})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, summary)
		return err

	case tryExtract:
		loc := time.Local
		if opts.timeZone != "" {
			if loc, err = time.LoadLocation(opts.timeZone); err != nil {
				return fmt.Errorf("unknown time zone %q: %w", opts.timeZone, err)
			}
		}
		event, err := svc.ExtractEvent(ctx, text, loc)
		if err != nil {
			return err
		}
		if !event.Found {
			_, err = fmt.Fprintln(out, "No calendar event found.")
			return err
		}
		_, err = fmt.Fprintf(out, "Title: %s\nStart: %s\nEnd: %s\n",
			event.Title, event.Start.Format(time.RFC3339), event.End.Format(time.RFC3339))
		return err

	default:
		return fmt.Errorf("unknown task %q", task)
	}
}
