package differ

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/mirror"
	"github.com/agentstation/contactsync/pkg/roster"
)

func contact(id, name string, phones ...string) contacts.Contact {
	return contacts.Contact{ID: id, Name: name, PhoneNumbers: phones}
}

func observed(cs ...contacts.Contact) *mirror.Memory {
	for i := range cs {
		cs[i].DirectoryRef = "ref-" + cs[i].ID
	}
	return mirror.NewMemoryFrom(cs...)
}

func kinds(p *Plan) []string {
	var out []string
	for _, a := range p.Actions {
		out = append(out, string(a.Kind)+":"+a.ID)
	}
	return out
}

func TestPlanScenarios(t *testing.T) {
	tests := []struct {
		name     string
		observed *mirror.Memory
		desired  *roster.Desired
		want     []string
	}{
		{
			name:     "new contact is created",
			observed: observed(contact("A", "Alice", "123")),
			desired:  roster.NewDesired(contact("A", "Alice", "123"), contact("B", "Bob", "456")),
			want:     []string{"create:B"},
		},
		{
			name:     "missing contact is deleted",
			observed: observed(contact("A", "Alice"), contact("C", "Carol")),
			desired:  roster.NewDesired(contact("A", "Alice")),
			want:     []string{"delete:C"},
		},
		{
			name:     "phone order matters",
			observed: observed(contact("A", "Alice", "123", "456")),
			desired:  roster.NewDesired(contact("A", "Alice", "456", "123")),
			want:     []string{"update:A"},
		},
		{
			name:     "whitespace in phones does not",
			observed: observed(contact("A", "Alice", "123 456")),
			desired:  roster.NewDesired(contact("A", "Alice", "123456")),
			want:     nil,
		},
		{
			name:     "deletes follow creates and updates",
			observed: observed(contact("Z", "Zed"), contact("B", "Bob"), contact("Y", "Yan")),
			desired:  roster.NewDesired(contact("C", "Carol"), contact("B", "Robert"), contact("A", "Al")),
			want:     []string{"create:C", "update:B", "create:A", "delete:Y", "delete:Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Compute(tt.desired, tt.observed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kinds(plan))
		})
	}
}

func TestPlanActionDetails(t *testing.T) {
	m := observed(contact("A", "Alice", "123"), contact("C", "Carol"))
	desired := roster.NewDesired(contact("A", "Alicia", "123"), contact("B", "Bob"))

	plan, err := Compute(desired, m)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 3)

	create := plan.Actions[1]
	assert.Equal(t, ActionCreate, create.Kind)
	assert.Empty(t, create.DirectoryRef)
	assert.Equal(t, "Bob", create.Contact().Name)

	update := plan.Actions[0]
	assert.Equal(t, ActionUpdate, update.Kind)
	assert.Equal(t, "ref-A", update.DirectoryRef)
	assert.Equal(t, "Alice", update.From.Name)
	assert.Equal(t, "Alicia", update.To.Name)
	assert.Equal(t, "ref-A", update.To.DirectoryRef)
	require.Len(t, update.Changes, 1)
	assert.Equal(t, "name", update.Changes[0].Path)

	del := plan.Actions[2]
	assert.Equal(t, ActionDelete, del.Kind)
	assert.Equal(t, "ref-C", del.DirectoryRef)
	assert.Equal(t, "Carol", del.Contact().Name)

	assert.Equal(t, Summary{Creates: 1, Updates: 1, Deletes: 1, Total: 3}, plan.Summary)
	assert.Equal(t, 2, plan.Observed)
}

func TestPlanCompleteness(t *testing.T) {
	m := observed(
		contact("1", "same"),
		contact("2", "old"),
		contact("3", "gone"),
		contact("5", "same", "9"),
	)
	desired := roster.NewDesired(
		contact("1", "same"),
		contact("2", "new"),
		contact("4", "added"),
		contact("5", "same", " 9 "),
	)

	plan, err := Compute(desired, m)
	require.NoError(t, err)

	outcome := map[string]ActionKind{}
	for _, a := range plan.Actions {
		_, dup := outcome[a.ID]
		require.False(t, dup, "id %s planned twice", a.ID)
		outcome[a.ID] = a.Kind
	}

	assert.Equal(t, map[string]ActionKind{
		"2": ActionUpdate,
		"3": ActionDelete,
		"4": ActionCreate,
	}, outcome)
	assert.Equal(t, 2, plan.Summary.Unchanged)
}

func TestPlanDoesNotTouchMirror(t *testing.T) {
	m := observed(contact("A", "Alice"))
	_, err := Compute(roster.NewDesired(contact("B", "Bob")), m)
	require.NoError(t, err)

	all, err := m.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "A", all[0].ID)
}

type brokenMirror struct{ mirror.Mirror }

func (brokenMirror) All() ([]contacts.Contact, error) { return nil, errors.New("disk on fire") }

func TestPlanMirrorError(t *testing.T) {
	_, err := Compute(roster.NewDesired(), brokenMirror{mirror.NewMemory()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestWithTracking(t *testing.T) {
	m := observed(contact("A", "Alice"))
	plan, err := New(WithTracking(false)).Plan(roster.NewDesired(contact("A", "Alicia")), m)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	assert.Nil(t, plan.Actions[0].Changes)
}

func TestFilter(t *testing.T) {
	m := observed(contact("A", "Alice"), contact("C", "Carol"))
	plan, err := Compute(roster.NewDesired(contact("A", "Alicia"), contact("B", "Bob")), m)
	require.NoError(t, err)

	tests := []struct {
		strategy ApplyStrategy
		want     []string
	}{
		{ApplyAll, []string{"update:A", "create:B", "delete:C"}},
		{ApplyAdditive, []string{"update:A", "create:B"}},
		{ApplyUpdatesOnly, []string{"update:A"}},
		{ApplyAdditionsOnly, []string{"create:B"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			filtered := plan.Filter(tt.strategy)
			assert.Equal(t, tt.want, kinds(filtered))
			assert.Equal(t, len(tt.want), filtered.Summary.Total)
			assert.Equal(t, plan.Observed, filtered.Observed)
		})
	}

	assert.Len(t, plan.Actions, 3, "filter must not modify the original plan")
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, ApplyAll, s)

	s, err = ParseStrategy("Additive")
	require.NoError(t, err)
	assert.Equal(t, ApplyAdditive, s)

	_, err = ParseStrategy("everything")
	assert.Error(t, err)
}

func TestDeleteRatio(t *testing.T) {
	assert.Zero(t, (&Plan{}).DeleteRatio())

	m := observed(contact("A", "a"), contact("B", "b"), contact("C", "c"), contact("D", "d"))
	plan, err := Compute(roster.NewDesired(contact("A", "a")), m)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, plan.DeleteRatio(), 1e-9)
}

func TestPlanPrint(t *testing.T) {
	empty := &Plan{}
	assert.Equal(t, "No changes found.", empty.String())

	m := observed(contact("A", "Alice"), contact("C", "Carol"))
	plan, err := Compute(roster.NewDesired(contact("A", "Alicia"), contact("B", "Bob")), m)
	require.NoError(t, err)

	assert.Equal(t, "Plan: 1 to create, 1 to update, 1 to delete (Total: 3 changes, 0 unchanged)", plan.String())

	var buf bytes.Buffer
	plan.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "Contacts to create (1)")
	assert.Contains(t, out, "• B: Bob")
	assert.Contains(t, out, "name: Alice → Alicia")
	assert.Contains(t, out, "• C: Carol")
}
