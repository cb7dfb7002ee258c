package migrate

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"flatdb/record"
)

func dataset() []*record.Record {
	return []*record.Record{
		record.FromPairs(
			record.F("id", record.Int(1)),
			record.F("name", record.String("Alice")),
		),
		record.FromPairs(
			record.F("id", record.Int(2)),
			record.F("name", record.String("Bob")),
			record.F("status", record.String("banned")),
		),
	}
}

func TestAddFieldSkipsExisting(t *testing.T) {
	// arrange
	records := dataset()
	m := New(records, nil)

	// act
	assert.NoError(t, m.AddField("status", record.String("active")))

	// assert
	status, _ := records[0].Get("status")
	assert.Equal(t, record.String("active"), status)
	status, _ = records[1].Get("status")
	assert.Equal(t, record.String("banned"), status)
}

func TestRemoveField(t *testing.T) {
	// arrange
	records := dataset()
	m := New(records, nil)

	// act
	assert.NoError(t, m.RemoveField("name"))

	// assert
	for _, rec := range records {
		assert.False(t, rec.Has("name"))
	}
}

func TestRenameField(t *testing.T) {
	// arrange
	records := dataset()
	m := New(records, nil)

	// act
	assert.NoError(t, m.RenameField("name", "full_name"))

	// assert
	assert.False(t, records[0].Has("name"))
	v, _ := records[0].Get("full_name")
	assert.Equal(t, record.String("Alice"), v)
}

func TestRenameFieldConflictAbortsBeforeTouching(t *testing.T) {
	// arrange: second record already carries the target field
	records := dataset()
	m := New(records, nil)

	// act
	err := m.RenameField("name", "status")

	// assert: nothing renamed, not even the conflict-free first record
	assert.Error(t, err)
	assert.True(t, records[0].Has("name"))
	assert.False(t, records[0].Has("status"))
}

func TestRenameFieldRejectsDegenerateNames(t *testing.T) {
	m := New(dataset(), nil)
	assert.Error(t, m.RenameField("name", "name"))
	assert.Error(t, m.RenameField("", "x"))
	assert.Error(t, m.RenameField("x", ""))
}

func TestSetDefaultFillsAbsentAndNullOnly(t *testing.T) {
	// arrange
	records := dataset()
	records[0].Set("email", record.Null{})
	m := New(records, nil)

	// act
	assert.NoError(t, m.SetDefault("email", record.String("none@example.com")))
	assert.NoError(t, m.SetDefault("name", record.String("Anonymous")))

	// assert: null and absent filled, existing value kept
	email, _ := records[0].Get("email")
	assert.Equal(t, record.String("none@example.com"), email)
	email, _ = records[1].Get("email")
	assert.Equal(t, record.String("none@example.com"), email)
	name, _ := records[0].Get("name")
	assert.Equal(t, record.String("Alice"), name)
}

func TestResolveSentinelDefaults(t *testing.T) {
	// arrange
	records := dataset()
	m := New(records, nil)

	// act
	assert.NoError(t, m.AddField("created_at", record.String(DefaultNow)))
	assert.NoError(t, m.AddField("token", record.String(DefaultUUID)))
	assert.NoError(t, m.AddField("note", record.String(DefaultEmptyStr)))
	assert.NoError(t, m.AddField("score", record.String(DefaultZero)))
	assert.NoError(t, m.AddField("banned", record.String(DefaultFalse)))
	assert.NoError(t, m.AddField("tags", record.String(DefaultEmptyList)))
	assert.NoError(t, m.AddField("meta", record.String(DefaultEmptyDict)))

	// assert
	created, _ := records[0].Get("created_at")
	_, err := time.Parse(time.RFC3339, string(created.(record.String)))
	assert.NoError(t, err)

	tok0, _ := records[0].Get("token")
	tok1, _ := records[1].Get("token")
	assert.NoError(t, uuid.Validate(string(tok0.(record.String))))
	assert.NotEqual(t, tok0, tok1)

	note, _ := records[0].Get("note")
	assert.Equal(t, record.String(""), note)
	score, _ := records[0].Get("score")
	assert.Equal(t, record.Int(0), score)
	banned, _ := records[0].Get("banned")
	assert.Equal(t, record.Bool(false), banned)
	tags, _ := records[0].Get("tags")
	assert.Equal(t, record.List{}, tags)
	meta, _ := records[0].Get("meta")
	assert.Equal(t, 0, meta.(*record.Record).Len())
}

func TestLedgerLifecycle(t *testing.T) {
	// arrange
	fs := afero.NewMemMapFs()

	// act
	ledger, err := NewLedger(fs, "data", "users.json", nil)
	assert.NoError(t, err)

	// assert: fresh ledger at version 0, side file created
	assert.Equal(t, 0, ledger.Version())
	exists, _ := afero.Exists(fs, "data/users_schema.json")
	assert.True(t, exists)

	// act: two migrations
	assert.NoError(t, ledger.Increment("add email"))
	assert.NoError(t, ledger.Increment("rename name"))

	// assert
	assert.Equal(t, 2, ledger.Version())
	history := ledger.History()
	assert.Len(t, history, 2)
	assert.Equal(t, 0, history[0].FromVersion)
	assert.Equal(t, 1, history[0].ToVersion)
	assert.Equal(t, "add email", history[0].Name)
	assert.Equal(t, "rename name", history[1].Name)

	// reloading from disk sees the same state
	reloaded, err := NewLedger(fs, "data", "users.json", nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, reloaded.Version())
	assert.Len(t, reloaded.History(), 2)
}

func TestLedgerReinitializesOnCorruptFile(t *testing.T) {
	// arrange
	fs := afero.NewMemMapFs()
	assert.NoError(t, afero.WriteFile(fs, "data/users_schema.json", []byte("{not json"), 0o644))

	// act
	ledger, err := NewLedger(fs, "data", "users.json", nil)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 0, ledger.Version())
	assert.Empty(t, ledger.History())
}

func TestLedgerReset(t *testing.T) {
	// arrange
	fs := afero.NewMemMapFs()
	ledger, err := NewLedger(fs, "data", "users.json", nil)
	assert.NoError(t, err)
	assert.NoError(t, ledger.Increment("add email"))

	// act
	assert.NoError(t, ledger.Reset())

	// assert
	assert.Equal(t, 0, ledger.Version())
	assert.Empty(t, ledger.History())
}
