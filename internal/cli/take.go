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

	"github.com/spf13/cobra"
	"learn-quiz-service/internal/client"
	"learn-quiz-service/internal/config"
	"learn-quiz-service/internal/domain"
	"learn-quiz-service/internal/infra/sqlite"
	"learn-quiz-service/internal/session"
)

// NewTakeCmd runs a quiz session in the terminal against a running server.
// Progress autosaves to a local SQLite file so an interrupted quiz resumes.
func NewTakeCmd(configPath *string) *cobra.Command {
	var lang, mode, accessToken, user string
	cmd := &cobra.Command{
		Use:   "take QUIZ_ID",
		Short: "Take a quiz interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if accessToken == "" {
				accessToken = os.Getenv("QUIZ_ACCESS_TOKEN")
			}
			if accessToken == "" {
				if accessToken, err = devToken(cfg, user, "student"); err != nil {
					return fmt.Errorf("no access token: %w", err)
				}
			}

			store, err := sqlite.Open(cmd.Context(), cfg.Client.StorePath)
			if err != nil {
				return err
			}
			defer store.Close()

			api := client.New(cfg.Client.BaseURL, accessToken)
			return runTake(cmd.Context(), api, store, takeOptions{
				QuizID: args[0],
				Lang:   lang,
				Mode:   domain.ParseMode(mode),
				UserID: user,
			}, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "en", "quiz language")
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeExam), "exam or practice")
	cmd.Flags().StringVar(&accessToken, "token", "", "access token (defaults to QUIZ_ACCESS_TOKEN or a dev token)")
	cmd.Flags().StringVar(&user, "user", "dev-user", "user id for dev tokens and local history")
	return cmd
}

type quizAPI interface {
	session.Scorer
	FetchQuiz(ctx context.Context, quizID, lang string, mode domain.Mode) (domain.IssuedQuiz, error)
}

type takeOptions struct {
	QuizID string
	Lang   string
	Mode   domain.Mode
	UserID string
}

const takeHelp = "commands: <number> select option, n next, s skip, f finish, r reset, retry, q quit"

func runTake(ctx context.Context, api quizAPI, store session.Store, opts takeOptions, in io.Reader, out io.Writer) error {
	issued, err := api.FetchQuiz(ctx, opts.QuizID, opts.Lang, opts.Mode)
	if err != nil {
		return err
	}

	events := make(chan session.Event, 32)
	ctrl := session.NewController(session.Deps{
		Store:  store,
		Scorer: api,
		Events: events,
		UserID: opts.UserID,
	})
	if err := ctrl.Load(ctx, issued); err != nil {
		return err
	}
	defer ctrl.Close()

	fmt.Fprintln(out, takeHelp)
	if snap := ctrl.Snapshot(); snap.CurrentIndex > 0 || len(snap.Selected) > 0 {
		fmt.Fprintln(out, "resuming saved progress")
	}
	render(out, ctrl)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmdErr := dispatch(ctx, ctrl, strings.TrimSpace(scanner.Text()))
		if cmdErr == errQuit {
			fmt.Fprintln(out, "progress saved; run the same command to resume")
			return nil
		}
		if cmdErr != nil {
			fmt.Fprintf(out, "error: %v\n", cmdErr)
		}
		drain(out, ctrl, events)

		snap := ctrl.Snapshot()
		if snap.State == session.Finished && snap.LastError == nil {
			printHistory(ctx, out, ctrl)
			return nil
		}
		render(out, ctrl)
	}
	return scanner.Err()
}

var errQuit = errors.New("quit")

func dispatch(ctx context.Context, ctrl *session.Controller, line string) error {
	switch line {
	case "":
		return nil
	case "n", "next":
		return ctrl.Advance(ctx)
	case "s", "skip":
		return ctrl.Skip(ctx)
	case "f", "finish":
		return ctrl.Finish(ctx, true)
	case "r", "reset":
		return ctrl.Reset(ctx)
	case "retry":
		return ctrl.Retry(ctx)
	case "q", "quit":
		return errQuit
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return fmt.Errorf("unknown command %q (%s)", line, takeHelp)
	}
	q, ok := ctrl.Current()
	if !ok || n < 1 || n > len(q.Options) {
		return fmt.Errorf("no option %d", n)
	}
	return ctrl.SelectOption(ctx, q.ID, q.Options[n-1].ID)
}

func render(out io.Writer, ctrl *session.Controller) {
	snap := ctrl.Snapshot()
	q, ok := ctrl.Current()
	if !ok || (snap.State != session.InProgress && snap.State != session.Reviewing) {
		return
	}
	header := fmt.Sprintf("[%d]", snap.CurrentIndex+1)
	if snap.Mode == domain.ModeExam {
		header += fmt.Sprintf(" %ds left", snap.SecondsRemaining)
	}
	fmt.Fprintf(out, "%s %s\n", header, q.Text)
	for i, opt := range q.Options {
		mark := " "
		if snap.Selected[q.ID] == opt.ID {
			mark = "*"
		}
		fmt.Fprintf(out, " %s %d) %s\n", mark, i+1, opt.Text)
	}
}

func drain(out io.Writer, ctrl *session.Controller, events <-chan session.Event) {
	for {
		select {
		case ev := <-events:
			switch ev.Type {
			case session.EventRevealed:
				if ev.Message != "" {
					fmt.Fprintf(out, "explanation: %s\n", ev.Message)
				}
			case session.EventWarning:
				fmt.Fprintf(out, "warning: %s: %v\n", ev.Message, ev.Err)
			case session.EventSubmitFailed:
				fmt.Fprintf(out, "submit failed: %s (type retry to resubmit)\n", ev.Message)
			case session.EventFinished:
				if ev.Result != nil {
					fmt.Fprintf(out, "Score: %d/%d\n", ev.Result.Correct, ev.Result.Total)
				}
			}
		default:
			return
		}
	}
}

func printHistory(ctx context.Context, out io.Writer, ctrl *session.Controller) {
	history, err := ctrl.History(ctx)
	if err != nil {
		fmt.Fprintf(out, "warning: history unavailable: %v\n", err)
		return
	}
	fmt.Fprintln(out, "recent attempts:")
	for _, a := range history {
		fmt.Fprintf(out, "  %s  %-12s %d/%d\n", a.Timestamp.Local().Format("2006-01-02 15:04"), a.QuizID, a.Score, a.TotalQuestions)
	}
}
