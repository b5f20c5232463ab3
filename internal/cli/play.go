package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"activity-player/internal/config"
	"activity-player/internal/domain"
	"activity-player/internal/player"
	"github.com/spf13/cobra"
)

// NewPlayCmd plays one activity in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var activityID, childID string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play an activity in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, cfg.Log.Level)
			b, err := newBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			p := player.New(b.activities, b.client, b.store, player.WithLogger(logger))
			return runPlay(cmd.Context(), p, activityID, childID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&activityID, "activity", "", "activity id")
	cmd.Flags().StringVar(&childID, "child", "", "child (student) id")
	_ = cmd.MarkFlagRequired("activity")
	_ = cmd.MarkFlagRequired("child")
	return cmd
}

const playHelp = "type an option number or an answer; 'next' to continue, 'restart' to start over, 'quit' to leave"

// runPlay drives p from line input until the activity completes or the
// input ends.
func runPlay(ctx context.Context, p *player.Player, activityID, childID string, in io.Reader, out io.Writer) error {
	events, cancel := p.Subscribe()
	defer cancel()

	if err := p.Load(ctx, activityID, childID); err != nil {
		return err
	}
	p.Wait()
	printNotices(events, out)

	st := p.Snapshot()
	if st.Title != "" {
		fmt.Fprintf(out, "%s\n", st.Title)
	}
	fmt.Fprintln(out, playHelp)
	if st.Phase == player.PhaseCompleted {
		printScore(out, st)
		return nil
	}
	printQuestion(out, st)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		st = p.Snapshot()

		switch line {
		case "":
			continue
		case "quit":
			p.Wait()
			return nil
		case "restart":
			next, err := p.Restart(ctx)
			p.Wait()
			printNotices(events, out)
			if err != nil {
				continue
			}
			printQuestion(out, next)
			continue
		case "next":
			next, err := p.Advance(st.Index == st.Total-1)
			p.Wait()
			printNotices(events, out)
			switch {
			case errors.Is(err, domain.ErrAnswerRequired):
				fmt.Fprintln(out, "choose an answer first")
				continue
			case errors.Is(err, domain.ErrAnswerIncorrect):
				fmt.Fprintln(out, "not quite, try again")
				continue
			case err != nil:
				return err
			}
			next = p.Snapshot()
			if next.Phase == player.PhaseCompleted {
				printScore(out, next)
				return nil
			}
			printQuestion(out, next)
			continue
		}

		if st.Question == nil {
			continue
		}
		next, err := p.SelectAnswer(st.Question.ID, parseAnswer(*st.Question, line))
		if err != nil {
			return err
		}
		p.Wait()
		printNotices(events, out)
		switch next.Feedback {
		case domain.FeedbackCorrect:
			fmt.Fprintln(out, "correct!")
		case domain.FeedbackIncorrect:
			fmt.Fprintln(out, "not quite, try again")
		default:
			fmt.Fprintln(out, "answer saved")
		}
	}
	p.Wait()
	return scanner.Err()
}

// parseAnswer maps an option number to that option's value; anything else
// is taken as typed.
func parseAnswer(q domain.Question, line string) any {
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(q.Options) && q.Type != domain.TypeCountObjects {
		return q.Options[n-1].Value
	}
	return line
}

func printQuestion(out io.Writer, st player.State) {
	if st.Question == nil {
		return
	}
	q := st.Question
	fmt.Fprintf(out, "\n[%d/%d] %s\n", st.Index+1, st.Total, q.Prompt)
	if len(q.Objects) > 0 {
		fmt.Fprintf(out, "(%d pictures shown)\n", len(q.Objects))
	}
	if q.Type == domain.TypeCountObjects {
		return
	}
	for i, opt := range q.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt.Label)
	}
}

func printScore(out io.Writer, st player.State) {
	if st.Score == nil {
		return
	}
	fmt.Fprintf(out, "\nall done! score: %s / %d\n", strconv.FormatFloat(st.Score.Value, 'f', -1, 64), st.Score.Total)
}

func printNotices(events <-chan player.Event, out io.Writer) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == player.EventNotice {
				fmt.Fprintf(out, "! %s\n", ev.Notice.Message)
			}
		default:
			return
		}
	}
}
