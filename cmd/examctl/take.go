package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/DanixMP/Azmooneh/internal/database"
	"github.com/DanixMP/Azmooneh/internal/draft"
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/session"
)

const takeHelp = `commands:
  n            next question
  p            previous question
  g <n>        go to question n
  l            list questions
  a <1,2,..>   select choices by number (choice questions)
  a <text>     answer text (long answer questions)
  a            clear the answer
  s            submit the exam
  q            save progress and quit without submitting
`

func (a *app) take(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: examctl take <exam-id>")
	}
	examID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || examID <= 0 {
		return fmt.Errorf("invalid exam id %q", args[0])
	}

	api, _, err := a.authed()
	if err != nil {
		return err
	}
	exam, err := api.GetExam(ctx, examID)
	if err != nil {
		return err
	}

	store, closeStore, err := a.draftStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	lastMinute := -1
	ctl := session.New(api, session.Options{
		ResumePolicy: a.cfg.ResumePolicy,
		TickInterval: a.cfg.TickInterval,
		Drafts:       store,
		Logger:       a.log,
		OnTick: func(remaining time.Duration) {
			m := int(remaining / time.Minute)
			if m != lastMinute || remaining <= 10*time.Second {
				lastMinute = m
				fmt.Fprintf(a.out, "\n[%s left]\n> ", formatRemaining(remaining))
			}
		},
		OnAutoSubmit: func(_ *session.Result, err error) {
			if err != nil {
				fmt.Fprintf(a.out, "\nTime is up but the submission failed: %s\nType s to retry.\n> ", describe(err))
			}
		},
	})

	sess, err := ctl.Begin(ctx, exam)
	switch {
	case errors.Is(err, session.ErrAlreadySubmitted):
		fmt.Fprintln(a.out, "You have already submitted this exam.")
		return nil
	case errors.Is(err, session.ErrExamNotPublished):
		fmt.Fprintln(a.out, "This exam is not open yet.")
		return nil
	case err != nil:
		return err
	}

	fmt.Fprintf(a.out, "%s\n%d questions, %s left. Type h for help.\n\n",
		exam.Title, len(exam.Questions), formatRemaining(ctl.Remaining()))
	a.log.Debug().Int64("session_id", sess.ID).Msg("Attempt started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := ctl.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn().Err(err).Msg("Countdown stopped")
		}
	}()

	lines := readLines(runCtx, a.in)
	showQuestion(a.out, ctl)
	for {
		fmt.Fprint(a.out, "> ")
		select {
		case <-ctl.Done():
			return a.finish(ctl)
		case <-ctx.Done():
			a.leave(ctl)
			_ = a.finish(ctl)
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				a.leave(ctl)
				return a.finish(ctl)
			}
			if a.handle(ctx, ctl, line) {
				return a.finish(ctl)
			}
		}
	}
}

// handle runs one command and reports whether the attempt is over.
func (a *app) handle(ctx context.Context, ctl *session.Controller, line string) bool {
	cmd, arg := splitCommand(line)
	switch cmd {
	case "":
		showQuestion(a.out, ctl)
	case "h", "?", "help":
		fmt.Fprint(a.out, takeHelp)
	case "n":
		i, _, _ := ctl.Current()
		ctl.Navigate(i + 1)
		showQuestion(a.out, ctl)
	case "p":
		i, _, _ := ctl.Current()
		ctl.Navigate(i - 1)
		showQuestion(a.out, ctl)
	case "g":
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintln(a.out, "usage: g <question number>")
			return false
		}
		ctl.Navigate(n - 1)
		showQuestion(a.out, ctl)
	case "l":
		listQuestions(a.out, ctl)
	case "a":
		_, q, ok := ctl.Current()
		if !ok {
			return false
		}
		choices, text, err := parseAnswer(q, arg)
		if err == nil {
			err = ctl.RecordAnswer(q.ID, choices, text)
		}
		if err != nil {
			fmt.Fprintln(a.out, "error:", err)
			return false
		}
		showQuestion(a.out, ctl)
	case "s":
		if _, err := ctl.Submit(ctx); err != nil {
			fmt.Fprintln(a.out, "Submission failed:", describe(err))
			return false
		}
		return true
	case "q":
		a.leave(ctl)
		return true
	default:
		fmt.Fprintf(a.out, "unknown command %q, type h for help\n", cmd)
	}
	return false
}

// leave stops the attempt without submitting and keeps a draft. When the
// countdown is already submitting, it waits for that submission instead.
func (a *app) leave(ctl *session.Controller) {
	err := ctl.Close(context.Background())
	if errors.Is(err, session.ErrSubmitInFlight) {
		fmt.Fprintln(a.out, "\nTime is up, waiting for the submission to finish...")
		if _, err := ctl.Submit(context.Background()); err != nil {
			fmt.Fprintln(a.out, "Submission failed:", describe(err))
		}
		return
	}
	if err != nil {
		fmt.Fprintln(a.out, "\nCould not save progress:", describe(err))
		return
	}
	fmt.Fprintln(a.out, "\nProgress saved. The exam clock keeps running on the server.")
}

func (a *app) finish(ctl *session.Controller) error {
	res, ok := ctl.Result()
	if !ok {
		return nil
	}
	fmt.Fprintf(a.out, "\nSubmitted (%s).", res.Status)
	if res.Score != nil {
		fmt.Fprintf(a.out, " Score: %s.", res.Score.String())
	}
	if res.AlreadySubmitted {
		fmt.Fprint(a.out, " The server had already recorded your submission.")
	}
	fmt.Fprintln(a.out)
	return nil
}

// draftStore picks Redis when configured, memory otherwise.
func (a *app) draftStore(ctx context.Context) (draft.Store, func(), error) {
	if a.cfg.RedisURL == "" {
		return draft.NewMemory(), func() {}, nil
	}
	rdb, err := database.NewRedisClient(ctx, a.cfg.RedisURL, a.log)
	if err != nil {
		return nil, nil, err
	}
	return draft.NewRedis(rdb, a.cfg.DraftTTL, a.log), func() { _ = rdb.Close() }, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Input & rendering
// ────────────────────────────────────────────────────────────────────────────

func readLines(ctx context.Context, in interface{ ReadString(byte) (string, error) }) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := in.ReadString('\n')
			if line != "" || err == nil {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return lines
}

func splitCommand(line string) (cmd, arg string) {
	line = strings.TrimSpace(line)
	cmd, arg, _ = strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

// parseAnswer turns the argument of the a command into an answer. Choices
// are numbered from 1 in display order.
func parseAnswer(q *model.Question, arg string) ([]int64, string, error) {
	if !q.QuestionType.HasChoices() {
		return nil, arg, nil
	}
	if arg == "" {
		return nil, "", nil
	}
	fields := strings.FieldsFunc(arg, func(r rune) bool { return r == ',' || r == ' ' })
	var ids []int64
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > len(q.Choices) {
			return nil, "", fmt.Errorf("choice %q is not between 1 and %d", f, len(q.Choices))
		}
		id := q.Choices[n-1].ID
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, "", nil
}

func showQuestion(w io.Writer, ctl *session.Controller) {
	i, q, ok := ctl.Current()
	if !ok {
		fmt.Fprintln(w, "This exam has no questions.")
		return
	}
	total := len(ctl.Exam().Questions)
	fmt.Fprintf(w, "Question %d/%d  [%s, %s marks]  answered %d/%d  %s left\n",
		i+1, total, q.QuestionType, q.Marks.String(), ctl.Answered(), total, formatRemaining(ctl.Remaining()))
	fmt.Fprintln(w, q.QuestionText)

	ans, answered := ctl.Answer(q.ID)
	if !q.QuestionType.HasChoices() {
		if answered && ans.TextAnswer != "" {
			fmt.Fprintf(w, "  your answer: %s\n", ans.TextAnswer)
		}
		return
	}
	for n, c := range q.Choices {
		mark := " "
		if answered && slices.Contains(ans.SelectedChoices, c.ID) {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %d) %s\n", mark, n+1, c.ChoiceText)
	}
}

func listQuestions(w io.Writer, ctl *session.Controller) {
	current, _, _ := ctl.Current()
	for i, q := range ctl.Exam().Questions {
		pointer := " "
		if i == current {
			pointer = ">"
		}
		status := "unanswered"
		if _, ok := ctl.Answer(q.ID); ok {
			status = "answered"
		}
		fmt.Fprintf(w, "%s %2d. %-10s %s\n", pointer, i+1, status, truncate(q.QuestionText, 60))
	}
}

func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
