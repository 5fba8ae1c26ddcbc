package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/differ"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/logging"
	"github.com/agentstation/contactsync/pkg/mirror"
	"github.com/agentstation/contactsync/pkg/report"
	"github.com/agentstation/contactsync/pkg/roster"
)

// fakeDirectory records calls and fails for ids listed in failFor.
type fakeDirectory struct {
	calls   []string
	failFor map[string]error
	nextRef int
}

func (d *fakeDirectory) CreateDirectoryEntry(_ context.Context, c contacts.Contact) (string, error) {
	d.calls = append(d.calls, "create:"+c.ID)
	if err := d.failFor[c.ID]; err != nil {
		return "", err
	}
	d.nextRef++
	return fmt.Sprintf("new-%d", d.nextRef), nil
}

func (d *fakeDirectory) UpdateDirectoryEntry(_ context.Context, ref string, c contacts.Contact) error {
	d.calls = append(d.calls, "update:"+c.ID+"@"+ref)
	return d.failFor[c.ID]
}

func (d *fakeDirectory) DeleteDirectoryEntry(_ context.Context, ref string) error {
	d.calls = append(d.calls, "delete:"+ref)
	return d.failFor[ref]
}

type recordingHooks struct {
	events []string
}

func (h *recordingHooks) ContactCreated(c contacts.Contact) {
	h.events = append(h.events, "created:"+c.ID+"@"+c.DirectoryRef)
}

func (h *recordingHooks) ContactUpdated(from, to contacts.Contact) {
	h.events = append(h.events, "updated:"+from.Name+"->"+to.Name)
}

func (h *recordingHooks) ContactDeleted(c contacts.Contact) {
	h.events = append(h.events, "deleted:"+c.ID)
}

type countingRecorder struct {
	outcomes map[report.Outcome]int
}

func (r *countingRecorder) RecordAction(_ context.Context, _ differ.ActionKind, outcome report.Outcome) {
	if r.outcomes == nil {
		r.outcomes = map[report.Outcome]int{}
	}
	r.outcomes[outcome]++
}

func contact(id, name string, phones ...string) contacts.Contact {
	return contacts.Contact{ID: id, Name: name, PhoneNumbers: phones}
}

func withRef(c contacts.Contact) contacts.Contact {
	return c.WithRef("ref-" + c.ID)
}

// threeActionPlan builds update A, create B, delete C against m.
func threeActionPlan(t *testing.T) (*differ.Plan, *mirror.Memory) {
	t.Helper()
	m := mirror.NewMemoryFrom(withRef(contact("A", "Alice", "1")), withRef(contact("C", "Carol", "3")))
	desired := roster.NewDesired(contact("A", "Alicia", "1"), contact("B", "Bob", "2"))
	plan, err := differ.Compute(desired, m)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 3)
	return plan, m
}

func outcomes(r *report.Report) []report.Outcome {
	var out []report.Outcome
	for _, e := range r.Entries() {
		out = append(out, e.Outcome)
	}
	return out
}

func TestExecuteAllSucceed(t *testing.T) {
	plan, m := threeActionPlan(t)
	dir := &fakeDirectory{}
	hooks := &recordingHooks{}
	rec := &countingRecorder{}

	e := &Executor{Directory: dir, Mirror: m, Hooks: hooks, Recorder: rec, Logger: logging.NewNopLogger()}
	r := e.Execute(context.Background(), plan)

	assert.Equal(t, []string{"update:A@ref-A", "create:B", "delete:ref-C"}, dir.calls)
	assert.Equal(t, []report.Outcome{report.OutcomeApplied, report.OutcomeApplied, report.OutcomeApplied}, outcomes(r))
	assert.Equal(t, []string{"updated:Alice->Alicia", "created:B@new-1", "deleted:C"}, hooks.events)
	assert.Equal(t, 3, rec.outcomes[report.OutcomeApplied])

	entries := r.Entries()
	assert.Equal(t, "Updated Zoom record for A: Alicia", entries[0].Message)
	assert.Equal(t, "B: Bob added to Zoom.", entries[1].Message)
	assert.Equal(t, "Deleted Zoom record with external ID ref-C", entries[2].Message)

	a, ok, err := m.Get("A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alicia", a.Name)
	assert.Equal(t, "ref-A", a.DirectoryRef)

	b, ok, _ := m.Get("B")
	require.True(t, ok)
	assert.Equal(t, "new-1", b.DirectoryRef)

	_, ok, _ = m.Get("C")
	assert.False(t, ok)

	// The mirror now matches the roster, so a second plan is empty.
	again, err := differ.Compute(roster.NewDesired(contact("A", "Alicia", "1"), contact("B", "Bob", "2")), m)
	require.NoError(t, err)
	assert.True(t, again.IsEmpty())
}

func TestExecutePartialFailureIsolation(t *testing.T) {
	plan, m := threeActionPlan(t)
	dir := &fakeDirectory{failFor: map[string]error{
		"B": errors.NewAPIError("directory", 400, "Phone number is invalid"),
	}}
	hooks := &recordingHooks{}

	e := &Executor{Directory: dir, Mirror: m, Hooks: hooks, Logger: logging.NewNopLogger()}
	r := e.Execute(context.Background(), plan)

	assert.Equal(t, []string{"update:A@ref-A", "create:B", "delete:ref-C"}, dir.calls)
	assert.Equal(t, []report.Outcome{report.OutcomeApplied, report.OutcomeFailed, report.OutcomeApplied}, outcomes(r))
	assert.Equal(t, "Failed to add B: Bob to Zoom. Phone number is invalid", r.Entries()[1].Message)
	assert.Equal(t, []string{"updated:Alice->Alicia", "deleted:C"}, hooks.events)

	all, err := m.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Alicia", all[0].Name)
	assert.Equal(t, report.Counts{Updated: 1, Deleted: 1, Failed: 1}, r.Counts())
}

func TestExecuteFailureLeavesMirror(t *testing.T) {
	plan, m := threeActionPlan(t)
	dir := &fakeDirectory{failFor: map[string]error{
		"A":     errors.NewAPIError("directory", 500, "internal"),
		"ref-C": fmt.Errorf("connection reset"),
	}}

	e := &Executor{Directory: dir, Mirror: m, Logger: logging.NewNopLogger()}
	r := e.Execute(context.Background(), plan)

	assert.Equal(t, report.Counts{Created: 1, Failed: 2}, r.Counts())

	a, _, _ := m.Get("A")
	assert.Equal(t, "Alice", a.Name, "failed update keeps the old contact")
	_, ok, _ := m.Get("C")
	assert.True(t, ok, "failed delete keeps the contact so the next run retries")
	assert.Equal(t, "Failed to delete Zoom record with external ID ref-C. connection reset", r.Entries()[2].Message)
}

func TestExecuteDryRun(t *testing.T) {
	plan, m := threeActionPlan(t)
	dir := &fakeDirectory{}

	e := &Executor{Directory: dir, Mirror: m, DryRun: true, Logger: logging.NewNopLogger()}
	r := e.Execute(context.Background(), plan)

	assert.Empty(t, dir.calls)
	assert.Equal(t, report.Counts{Planned: 3}, r.Counts())
	assert.Equal(t, "Would update A: Alicia (1 fields changed)", r.Entries()[0].Message)

	n, _ := m.Len()
	assert.Equal(t, 2, n)
}

func TestExecuteCanceledSkipsRemaining(t *testing.T) {
	plan, m := threeActionPlan(t)
	ctx, cancel := context.WithCancel(context.Background())
	dir := &fakeDirectory{}
	hooks := &recordingHooks{}

	// Cancel as soon as the first action succeeds.
	e := &Executor{Directory: dir, Mirror: m, Hooks: cancelOnFirst{hooks, cancel}, Logger: logging.NewNopLogger()}
	r := e.Execute(ctx, plan)

	assert.Equal(t, []string{"update:A@ref-A"}, dir.calls)
	assert.Equal(t, []report.Outcome{report.OutcomeApplied, report.OutcomeSkipped, report.OutcomeSkipped}, outcomes(r))
	_, ok, _ := m.Get("C")
	assert.True(t, ok)
}

type cancelOnFirst struct {
	*recordingHooks
	cancel context.CancelFunc
}

func (c cancelOnFirst) ContactUpdated(from, to contacts.Contact) {
	c.recordingHooks.ContactUpdated(from, to)
	c.cancel()
}

type failingPutMirror struct {
	*mirror.Memory
}

func (failingPutMirror) Put(contacts.Contact) error { return fmt.Errorf("read-only store") }

func TestExecuteMirrorWriteFailureIsWarning(t *testing.T) {
	m := failingPutMirror{mirror.NewMemory()}
	plan, err := differ.Compute(roster.NewDesired(contact("B", "Bob")), m)
	require.NoError(t, err)

	e := &Executor{Directory: &fakeDirectory{}, Mirror: m, Logger: logging.NewNopLogger()}
	r := e.Execute(context.Background(), plan)

	assert.Equal(t, report.Counts{Created: 1, Warnings: 1}, r.Counts())
	assert.Contains(t, r.Entries()[0].Message, "read-only store")
	assert.Equal(t, report.KindWarning, r.Entries()[0].Kind)
}

func TestExecuteMissingRef(t *testing.T) {
	m := mirror.NewMemoryFrom(contact("A", "Alice"), contact("C", "Carol"))
	plan, err := differ.Compute(roster.NewDesired(contact("A", "Alicia")), m)
	require.NoError(t, err)

	dir := &fakeDirectory{}
	e := &Executor{Directory: dir, Mirror: m, Service: "directory", Logger: logging.NewNopLogger()}
	r := e.Execute(context.Background(), plan)

	assert.Empty(t, dir.calls)
	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Failed to update A: Alicia to directory. no directory reference: not found", entries[0].Message)
	assert.Equal(t, "Failed to delete C: Carol from directory. no directory reference: not found", entries[1].Message)
}

func TestExecuteLogsActions(t *testing.T) {
	plan, m := threeActionPlan(t)
	tl := logging.NewTestLogger(t)

	e := &Executor{Directory: &fakeDirectory{}, Mirror: m, Logger: tl.Logger}
	e.Execute(context.Background(), plan)

	tl.AssertContains(t, "Changes with contact A: Alice, Updating...")
	tl.AssertContains(t, "New contact B: Bob, Adding...")
	tl.AssertContains(t, "Contact C: Carol not found in roster, Deleting...")
	tl.AssertContains(t, `"contact_id":"B"`)
	tl.AssertContains(t, `"action":"create"`)
}

func TestExecuteEmptyPlan(t *testing.T) {
	e := &Executor{Directory: &fakeDirectory{}, Mirror: mirror.NewMemory(), Logger: logging.NewNopLogger()}
	r := e.Execute(context.Background(), &differ.Plan{})
	assert.False(t, r.HasContent())
}
