package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kbukum/scribe/account"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/database/databasetest"
	"github.com/kbukum/scribe/engine"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/queue"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/task"
	"github.com/kbukum/scribe/transcript"
)

type fakeEngine struct {
	segments []engine.RawSegment
	err      error
	calls    int
	// started, when set, is closed on the call and Transcribe then waits
	// for context cancellation.
	started chan struct{}
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Transcribe(ctx context.Context, _ string, _ bool) ([]engine.RawSegment, error) {
	e.calls++
	if e.started != nil {
		close(e.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return e.segments, e.err
}

type fixture struct {
	db     *database.DB
	store  *storage.Store
	engine *fakeEngine
	worker *Worker
	acct   *account.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := databasetest.New(t, &account.Account{}, &task.Task{})
	acct := &account.Account{Username: "alice", Token: account.NewToken(), TimeLimit: 100}
	if err := db.GormDB.Create(acct).Error; err != nil {
		t.Fatal(err)
	}
	st, err := storage.New(storage.Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	eng := &fakeEngine{}
	w := New(
		task.NewMachine(db, logger.NewNop()),
		eng,
		transcript.NewAssembler(0),
		transcript.NewWriter(st),
		st,
		nil,
		logger.NewNop(),
	)
	return &fixture{db: db, store: st, engine: eng, worker: w, acct: acct}
}

func (f *fixture) enqueue(t *testing.T, duration float64, diarize bool) queue.Descriptor {
	t.Helper()
	tk := &task.Task{
		TaskID:          uuid.NewString(),
		AccountID:       f.acct.ID,
		Username:        f.acct.Username,
		SourcePath:      "/data/a.wav",
		FileName:        "a.wav",
		AudioDuration:   duration,
		WithDiarization: diarize,
		Status:          task.StatusQueued,
	}
	if err := f.db.GormDB.Create(tk).Error; err != nil {
		t.Fatal(err)
	}
	return queue.Descriptor{
		TaskID:          tk.TaskID,
		AccountID:       tk.AccountID,
		Username:        tk.Username,
		FilePath:        tk.SourcePath,
		AudioDuration:   tk.AudioDuration,
		WithDiarization: diarize,
	}
}

func (f *fixture) status(t *testing.T, taskID string) *task.Task {
	t.Helper()
	var tk task.Task
	if err := f.db.GormDB.Where("task_id = ?", taskID).Take(&tk).Error; err != nil {
		t.Fatal(err)
	}
	return &tk
}

func (f *fixture) remaining(t *testing.T) int64 {
	t.Helper()
	var a account.Account
	if err := f.db.GormDB.First(&a, f.acct.ID).Error; err != nil {
		t.Fatal(err)
	}
	return a.TimeLimit
}

func TestHandle_Success(t *testing.T) {
	f := newFixture(t)
	f.engine.segments = []engine.RawSegment{
		{Start: 0.0, End: 1.0, Text: " hello ", Speaker: "SPEAKER_00"},
		{Start: 2.0, End: 3.0, Text: "world", Speaker: "SPEAKER_00"},
		{Start: 6.0, End: 7.0, Text: "bye", Speaker: "SPEAKER_01"},
	}
	d := f.enqueue(t, 12.4, true)

	if err := f.worker.Handle(context.Background(), d); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := f.status(t, d.TaskID).Status; got != task.StatusDone {
		t.Fatalf("status = %d, want DONE", got)
	}
	if got := f.remaining(t); got != 87 {
		t.Errorf("remaining = %d, want 87", got)
	}

	raw, err := os.ReadFile(f.store.ArtifactPath(d.Username, d.TaskID, "json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc transcript.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Text != "hello world bye" || len(doc.Segments) != 2 {
		t.Errorf("doc = %+v", doc)
	}
	if doc.Segments[0].Speaker != "Speaker 1" || doc.Segments[1].Speaker != "Speaker 2" {
		t.Errorf("speakers = %q, %q", doc.Segments[0].Speaker, doc.Segments[1].Speaker)
	}
	text, err := os.ReadFile(f.store.ArtifactPath(d.Username, d.TaskID, "txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(text), "Speaker 1:\n00:00 - hello world") {
		t.Errorf("text artifact = %q", text)
	}
}

func TestHandle_MalformedSegment(t *testing.T) {
	f := newFixture(t)
	f.engine.segments = []engine.RawSegment{{Start: "abc", End: 1.0, Text: "x"}}
	d := f.enqueue(t, 10, false)

	err := f.worker.Handle(context.Background(), d)
	if err == nil {
		t.Fatal("expected an error")
	}
	tk := f.status(t, d.TaskID)
	if tk.Status != task.StatusError || tk.Message == "" {
		t.Errorf("task = %d %q", tk.Status, tk.Message)
	}
	entries, _ := os.ReadDir(f.store.TaskDir(d.Username, d.TaskID))
	for _, e := range entries {
		if ext := filepath.Ext(e.Name()); ext == ".json" || ext == ".txt" {
			t.Errorf("unexpected artifact %s", e.Name())
		}
	}
	if got := f.remaining(t); got != 100 {
		t.Errorf("remaining = %d, want 100", got)
	}
}

func TestHandle_EngineFailure(t *testing.T) {
	f := newFixture(t)
	f.engine.err = errors.New("model crashed")
	d := f.enqueue(t, 10, false)

	err := f.worker.Handle(context.Background(), d)
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, queue.ErrRedeliver) {
		t.Errorf("err = %v; an ERROR task must be acknowledged", err)
	}
	tk := f.status(t, d.TaskID)
	if tk.Status != task.StatusError || !strings.Contains(tk.Message, "model crashed") {
		t.Errorf("task = %d %q", tk.Status, tk.Message)
	}
}

func TestHandle_Redelivery(t *testing.T) {
	f := newFixture(t)
	f.engine.segments = []engine.RawSegment{{Start: 0, End: 1, Text: "hi"}}
	d := f.enqueue(t, 10, false)
	ctx := context.Background()

	if err := f.worker.Handle(ctx, d); err != nil {
		t.Fatal(err)
	}
	if err := f.worker.Handle(ctx, d); err != nil {
		t.Fatalf("redelivered Handle: %v", err)
	}
	if f.engine.calls != 1 {
		t.Errorf("engine calls = %d, want 1", f.engine.calls)
	}
	if got := f.remaining(t); got != 90 {
		t.Errorf("remaining = %d, want a single debit to 90", got)
	}
}

func TestHandle_ReentersProcessing(t *testing.T) {
	f := newFixture(t)
	f.engine.segments = []engine.RawSegment{{Start: 0, End: 1, Text: "hi"}}
	d := f.enqueue(t, 10, false)
	if err := f.db.GormDB.Model(&task.Task{}).Where("task_id = ?", d.TaskID).
		Update("status", task.StatusProcessing).Error; err != nil {
		t.Fatal(err)
	}

	if err := f.worker.Handle(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	if got := f.status(t, d.TaskID).Status; got != task.StatusDone {
		t.Errorf("status = %d, want DONE", got)
	}
}

func TestHandle_UnknownTask(t *testing.T) {
	f := newFixture(t)
	if err := f.worker.Handle(context.Background(), queue.Descriptor{TaskID: uuid.NewString()}); err != nil {
		t.Errorf("unknown task should be acknowledged, got %v", err)
	}
	if f.engine.calls != 0 {
		t.Error("engine called for unknown task")
	}
}

func TestHandle_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.engine.started = make(chan struct{})
	d := f.enqueue(t, 10, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Handle(ctx, d) }()
	<-f.engine.started
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := f.status(t, d.TaskID).Status; got != task.StatusProcessing {
		t.Errorf("status = %d, want PROCESSING for redelivery", got)
	}
}

// flakyMachine fails the transitions whose error is set and delegates the
// rest to the real machine.
type flakyMachine struct {
	*task.Machine
	beginErr, completeErr, failErr error
}

func (m *flakyMachine) Begin(ctx context.Context, taskID string) (*task.Task, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m.Machine.Begin(ctx, taskID)
}

func (m *flakyMachine) Complete(ctx context.Context, taskID string, seconds float64) error {
	if m.completeErr != nil {
		return m.completeErr
	}
	return m.Machine.Complete(ctx, taskID, seconds)
}

func (m *flakyMachine) Fail(ctx context.Context, taskID string, cause error) error {
	if m.failErr != nil {
		return m.failErr
	}
	return m.Machine.Fail(ctx, taskID, cause)
}

func (f *fixture) workerWith(m Transitioner) *Worker {
	return New(m, f.engine, transcript.NewAssembler(0), transcript.NewWriter(f.store), f.store, nil, logger.NewNop())
}

func TestHandle_StatusWriteFailureLeavesMessageForRedelivery(t *testing.T) {
	f := newFixture(t)
	f.engine.segments = []engine.RawSegment{{Start: 0.0, End: 1.0, Text: "hi", Speaker: "SPEAKER_00"}}
	d := f.enqueue(t, 9.2, true)

	locked := errors.New("database is locked")
	flaky := &flakyMachine{
		Machine:     task.NewMachine(f.db, logger.NewNop()),
		completeErr: locked,
		failErr:     locked,
	}
	err := f.workerWith(flaky).Handle(context.Background(), d)
	if !errors.Is(err, ErrNotTerminal) || !errors.Is(err, queue.ErrRedeliver) {
		t.Fatalf("err = %v, want ErrNotTerminal wrapping queue.ErrRedeliver", err)
	}
	if got := f.status(t, d.TaskID).Status; got != task.StatusProcessing {
		t.Errorf("status = %v, want PROCESSING", got)
	}
	if got := f.remaining(t); got != 100 {
		t.Errorf("remaining = %d, want no debit yet", got)
	}

	// The redelivered message completes the task with a single debit.
	if err := f.worker.Handle(context.Background(), d); err != nil {
		t.Fatalf("redelivered Handle: %v", err)
	}
	if got := f.status(t, d.TaskID).Status; got != task.StatusDone {
		t.Errorf("status = %v, want DONE", got)
	}
	if got := f.remaining(t); got != 90 {
		t.Errorf("remaining = %d, want 90", got)
	}
}

func TestHandle_BeginFailureLeavesMessageForRedelivery(t *testing.T) {
	f := newFixture(t)
	d := f.enqueue(t, 5, false)

	flaky := &flakyMachine{
		Machine:  task.NewMachine(f.db, logger.NewNop()),
		beginErr: errors.New("connection reset by peer"),
	}
	err := f.workerWith(flaky).Handle(context.Background(), d)
	if !errors.Is(err, queue.ErrRedeliver) {
		t.Fatalf("err = %v, want redelivery", err)
	}
	if f.engine.calls != 0 {
		t.Errorf("engine calls = %d, want 0", f.engine.calls)
	}
	if got := f.status(t, d.TaskID).Status; got != task.StatusQueued {
		t.Errorf("status = %v, want QUEUED", got)
	}
}
