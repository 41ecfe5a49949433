// Command examctl takes the phishing-awareness exam from a terminal.
package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/victornm/phishlms/internal/auth"
	"github.com/victornm/phishlms/internal/client"
	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
	"github.com/victornm/phishlms/internal/exam"
)

func main() {
	var (
		url    = pflag.String("url", "http://localhost:8080", "exam API base URL")
		token  = pflag.String("token", os.Getenv("PHISHLMS_TOKEN"), "bearer token")
		secret = pflag.String("secret", "", "sign a token locally with this secret instead of --token")
		user   = pflag.String("user", "", "user id for a locally signed token")
	)
	pflag.Parse()

	if *secret != "" {
		t, err := auth.NewVerifier(*secret).Issue(*user, time.Hour)
		if err != nil {
			log.Fatalf("Sign token failed: %v", err)
		}
		*token = t
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := client.New(client.Config{BaseURL: *url, Token: *token})
	if err := run(ctx, c, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type backend interface {
	exam.Submitter
	GetQuestions(ctx context.Context) ([]domain.QuestionView, time.Duration, error)
	GetProfile(ctx context.Context) (*domain.Profile, error)
	GetProgress(ctx context.Context) (*domain.ProgressSummary, error)
}

func run(ctx context.Context, b backend, in io.Reader, out io.Writer) error {
	p, err := b.GetProfile(ctx)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}

	qs, limit, err := b.GetQuestions(ctx)
	if err != nil {
		return fmt.Errorf("get questions: %w", err)
	}

	s, err := exam.Start(qs, exam.WithTimeLimit(limit))
	if err != nil {
		return fmt.Errorf("start exam: %w", err)
	}

	fmt.Fprintf(out, "Hi %s, %d questions.", p.Name, s.Len())
	if limit > 0 {
		fmt.Fprintf(out, " Time limit %s.", limit)
	}
	fmt.Fprintln(out, " Commands: n next, p previous, g N go to, a K answer, c clear, s submit, q quit.")

	sc := bufio.NewScanner(in)
	show(out, s)

	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}

		cmd, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		switch cmd {
		case "n":
			s.Advance()
		case "p":
			s.Retreat()
		case "g":
			n, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintln(out, "usage: g N")
				continue
			}
			if err := s.JumpTo(n - 1); err != nil {
				fmt.Fprintln(out, describe(err))
				continue
			}
		case "a":
			k, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintln(out, "usage: a K")
				continue
			}
			if err := s.SelectAnswer(k - 1); err != nil {
				fmt.Fprintln(out, describe(err))
				continue
			}
		case "c":
			if err := s.ClearAnswer(); err != nil {
				fmt.Fprintln(out, describe(err))
				continue
			}
		case "s":
			res, err := submit(ctx, s, p.UserID, b, sc, out)
			if err != nil {
				fmt.Fprintln(out, describe(err))
				continue
			}
			if res == nil {
				continue
			}

			report(ctx, b, res, out)
			return nil
		case "q":
			fmt.Fprintln(out, "Exam abandoned, nothing was submitted.")
			return nil
		default:
			fmt.Fprintln(out, "unknown command")
			continue
		}

		show(out, s)
	}
}

// submit returns a nil result when the user declines to submit with unanswered questions.
func submit(ctx context.Context, s *exam.Session, userID string, sub exam.Submitter, sc *bufio.Scanner, out io.Writer) (*domain.ExamResult, error) {
	res, err := s.Submit(ctx, userID, false, sub)
	if !stderrors.Is(err, errors.ErrHasUnanswered) {
		return res, err
	}

	chk := exam.Prepare(s)
	fmt.Fprintf(out, "%d unanswered (%s), they count as incorrect. Submit anyway? [y/N] ",
		len(chk.Unanswered), positions(chk.Unanswered))
	if !sc.Scan() || !strings.EqualFold(strings.TrimSpace(sc.Text()), "y") {
		return nil, nil
	}

	return s.Submit(ctx, userID, true, sub)
}

func report(ctx context.Context, b backend, res *domain.ExamResult, out io.Writer) {
	fmt.Fprintf(out, "Score %d%% (%d/%d correct), classification %s.\n",
		res.Score, res.CorrectAnswers, res.TotalQuestions, res.Classification)

	pg, err := b.GetProgress(ctx)
	if err != nil {
		fmt.Fprintf(out, "Progress unavailable: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Training progress %.0f%% (%d/%d courses).\n",
		pg.ProgressPercentage, pg.CompletedCourses, pg.TotalCourses)
}

func show(out io.Writer, s *exam.Session) {
	q := s.Current()
	fmt.Fprintf(out, "\nQuestion %d/%d (%.0f%% through", s.Cursor()+1, s.Len(), s.ProgressPercent())
	if r := s.Remaining(); r > 0 || s.Expired() {
		fmt.Fprintf(out, ", %s left", r.Truncate(time.Second))
	}
	fmt.Fprintf(out, ")\n%s\n", q.Prompt)

	for i, o := range q.Options {
		mark := " "
		if s.Answer(s.Cursor()) == i {
			mark = "*"
		}
		fmt.Fprintf(out, " %s %d. %s\n", mark, i+1, o)
	}
}

func positions(idx []int) string {
	ss := make([]string, len(idx))
	for i, n := range idx {
		ss[i] = strconv.Itoa(n + 1)
	}
	return strings.Join(ss, ", ")
}

func describe(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrSubmissionTransportFailure):
		return "Could not reach the server, your answers are kept. Type s to retry."
	case stderrors.Is(err, errors.ErrSessionExpired):
		return "Time is up, answers are locked. Type s to submit."
	case stderrors.Is(err, errors.ErrInvalidOptionIndex):
		return "No such option."
	}

	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
