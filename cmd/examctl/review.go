package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/DanixMP/Azmooneh/internal/client"
	"github.com/DanixMP/Azmooneh/internal/grading"
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/shopspring/decimal"
)

func (a *app) review(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: examctl review <session-id>")
	}
	sessionID, err := parseID(args[0])
	if err != nil {
		return err
	}

	api, _, err := a.authed()
	if err != nil {
		return err
	}
	exam, sess, err := loadSubmission(ctx, api, sessionID)
	if err != nil {
		return err
	}

	printRows(a.out, grading.Reconcile(exam, sess))
	printSummary(a.out, grading.Summarize(exam, sess), sess.Status)
	return nil
}

// grade stages marks given as answer-id=marks pairs and commits them in one
// request. With -auto, choice answers without marks get automatic marks.
func (a *app) grade(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("grade", flag.ContinueOnError)
	auto := fs.Bool("auto", false, "fill in marks for choice questions automatically")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: examctl grade [-auto] <session-id> [answer-id=marks ...]")
	}
	sessionID, err := parseID(fs.Arg(0))
	if err != nil {
		return err
	}
	entries, err := parseMarks(fs.Args()[1:])
	if err != nil {
		return err
	}

	api, user, err := a.authed()
	if err != nil {
		return err
	}
	if user.Role == model.RoleStudent {
		return errors.New("only professors can grade")
	}
	exam, sess, err := loadSubmission(ctx, api, sessionID)
	if err != nil {
		return err
	}

	book, err := grading.NewGradebook(exam, sess)
	if err != nil {
		return err
	}
	if *auto {
		n := book.FillAuto()
		fmt.Fprintf(a.out, "Filled automatic marks for %d answers\n", n)
	}
	for _, e := range entries {
		if err := book.SetMarks(e.ID, e.MarksObtained); err != nil {
			return err
		}
	}

	updated, err := book.Commit(ctx, api)
	if errors.Is(err, grading.ErrNothingToCommit) {
		fmt.Fprintln(a.out, "Nothing to commit")
		return nil
	}
	if err != nil {
		return err
	}

	a.log.Info().Int64("session_id", updated.ID).Str("status", string(updated.Status)).Msg("Marks committed")
	printSummary(a.out, grading.Summarize(exam, updated), updated.Status)
	return nil
}

func loadSubmission(ctx context.Context, api *client.Client, sessionID int64) (*model.Exam, *model.Session, error) {
	sess, err := api.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	exam, err := api.GetExam(ctx, sess.ExamID)
	if err != nil {
		return nil, nil, err
	}
	return exam, sess, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseMarks(args []string) ([]model.MarkEntry, error) {
	entries := make([]model.MarkEntry, 0, len(args))
	for _, arg := range args {
		idPart, marksPart, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected answer-id=marks, got %q", arg)
		}
		id, err := parseID(idPart)
		if err != nil {
			return nil, err
		}
		marks, err := decimal.NewFromString(marksPart)
		if err != nil {
			return nil, fmt.Errorf("invalid marks %q: %w", marksPart, err)
		}
		entries = append(entries, model.MarkEntry{ID: id, MarksObtained: marks})
	}
	return entries, nil
}

func printRows(out io.Writer, rows []grading.Row) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tANSWER\tTYPE\tVERDICT\tMARKS\tQUESTION")
	for i, r := range rows {
		answerID, marks := "-", "-"
		if r.Answer != nil {
			answerID = strconv.FormatInt(r.Answer.ID, 10)
			marks = "pending"
		}
		if r.Marks != nil {
			marks = r.Marks.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s/%s\t%s\n",
			i+1, answerID, r.Question.QuestionType, r.Verdict, marks, r.MaxMarks.String(), truncate(r.Question.QuestionText, 50))
	}
	_ = w.Flush()
}

func printSummary(out io.Writer, s grading.Summary, status model.SessionStatus) {
	fmt.Fprintf(out, "\nStatus: %s  Score: %s/%s", status, s.Score.String(), s.MaxScore.String())
	if s.Pending > 0 {
		fmt.Fprintf(out, "  (%d answers awaiting marks)", s.Pending)
	}
	if !s.WithinTotal {
		fmt.Fprint(out, "  warning: score exceeds total marks")
	}
	fmt.Fprintln(out)
}
