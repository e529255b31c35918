package main

import (
	"context"
	"fmt"
	"text/tabwriter"
)

func (a *app) exams(ctx context.Context) error {
	api, _, err := a.authed()
	if err != nil {
		return err
	}
	exams, err := api.ListExams(ctx)
	if err != nil {
		return err
	}
	if len(exams) == 0 {
		fmt.Fprintln(a.out, "No exams available")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tQUESTIONS\tMINUTES\tMARKS\tPUBLISHED")
	for _, e := range exams {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%t\n",
			e.ID, e.Title, len(e.Questions), e.DurationMinutes, e.TotalMarks.String(), e.IsPublished)
	}
	return w.Flush()
}

func (a *app) sessions(ctx context.Context) error {
	api, _, err := a.authed()
	if err != nil {
		return err
	}
	list, err := api.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No sessions")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXAM\tSTUDENT\tSTATUS\tSCORE")
	for _, s := range list {
		score := "-"
		if s.Score != nil {
			score = s.Score.String()
		}
		exam := s.ExamTitle
		if exam == "" {
			exam = fmt.Sprintf("#%d", s.ExamID)
		}
		student := s.StudentName
		if student == "" {
			student = fmt.Sprintf("#%d", s.StudentID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", s.ID, exam, student, s.Status, score)
	}
	return w.Flush()
}
