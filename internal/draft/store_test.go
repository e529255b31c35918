package draft

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/DanixMP/Azmooneh/internal/database"
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/rs/zerolog"
)

func TestDigest(t *testing.T) {
	tests := []struct {
		name string
		a, b model.SubmitAnswerRequest
		same bool
	}{
		{"choice order", model.SubmitAnswerRequest{SelectedChoices: []int64{3, 1}}, model.SubmitAnswerRequest{SelectedChoices: []int64{1, 3}}, true},
		{"duplicate choice", model.SubmitAnswerRequest{SelectedChoices: []int64{2, 2}}, model.SubmitAnswerRequest{SelectedChoices: []int64{2}}, true},
		{"nil and empty", model.SubmitAnswerRequest{}, model.SubmitAnswerRequest{SelectedChoices: []int64{}}, true},
		{"different choice", model.SubmitAnswerRequest{SelectedChoices: []int64{1}}, model.SubmitAnswerRequest{SelectedChoices: []int64{2}}, false},
		{"different text", model.SubmitAnswerRequest{TextAnswer: "a"}, model.SubmitAnswerRequest{TextAnswer: "b"}, false},
		{"text vs choice", model.SubmitAnswerRequest{TextAnswer: "1"}, model.SubmitAnswerRequest{SelectedChoices: []int64{1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Digest(tt.a) == Digest(tt.b); got != tt.same {
				t.Errorf("Digest(%v)=%q Digest(%v)=%q", tt.a, Digest(tt.a), tt.b, Digest(tt.b))
			}
		})
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory(), Key{StudentID: 1, SessionID: 10})
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	rdb, err := database.NewRedisClient(ctx, url, zerolog.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer rdb.Close()

	key := Key{StudentID: 900001, SessionID: time.Now().UnixNano()}
	store := NewRedis(rdb, time.Minute, zerolog.Nop())
	t.Cleanup(func() { _ = store.Clear(context.Background(), key) })
	testStore(t, store, key)
}

// testStore exercises the Store contract.
func testStore(t *testing.T, s Store, key Key) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load empty err = %v, want ErrNotFound", err)
	}

	d := New(key)
	d.ExamFingerprint = "1/30|11:single_choice:5"
	d.Current = 2
	d.SavedAt = time.Unix(1767225600, 0)
	d.Answers[11] = model.SubmitAnswerRequest{QuestionID: 11, SelectedChoices: []int64{112}}
	d.Answers[13] = model.SubmitAnswerRequest{QuestionID: 13, TextAnswer: "essay"}
	d.Persisted[11] = Digest(d.Answers[11])

	if err := s.Save(ctx, d); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Mutating the original must not leak into the store.
	d.Answers[11] = model.SubmitAnswerRequest{QuestionID: 11, SelectedChoices: []int64{999}}

	got, err := s.Load(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ExamFingerprint != "1/30|11:single_choice:5" || got.Current != 2 || !got.SavedAt.Equal(time.Unix(1767225600, 0)) {
		t.Errorf("meta = %q %d %v", got.ExamFingerprint, got.Current, got.SavedAt)
	}
	if a := got.Answers[11]; !slices.Equal(a.SelectedChoices, []int64{112}) {
		t.Errorf("answer 11 = %+v", a)
	}
	if a := got.Answers[13]; a.TextAnswer != "essay" {
		t.Errorf("answer 13 = %+v", a)
	}

	if err := s.MarkPersisted(ctx, key, 13, Digest(got.Answers[13])); err != nil {
		t.Fatalf("mark persisted: %v", err)
	}
	got, err = s.Load(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Persisted) != 2 || got.Persisted[13] != Digest(got.Answers[13]) {
		t.Errorf("persisted = %v", got.Persisted)
	}

	// Save replaces: answer 13 dropped.
	next := New(key)
	next.Answers[11] = model.SubmitAnswerRequest{QuestionID: 11, SelectedChoices: []int64{113}}
	if err := s.Save(ctx, next); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = s.Load(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Answers) != 1 || len(got.Persisted) != 0 {
		t.Errorf("after replace: answers %v persisted %v", got.Answers, got.Persisted)
	}

	if err := s.Clear(ctx, key); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := s.Load(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("load after clear err = %v, want ErrNotFound", err)
	}
}
