package flatdb

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"flatdb/record"
)

func TestNumericAggregates(t *testing.T) {
	// arrange
	db := openTest(t, afero.NewMemMapFs())
	seed(t, db)

	// act + assert
	min, err := db.Min("age")
	assert.NoError(t, err)
	assert.Equal(t, record.Int(20), min)

	max, err := db.Max("age")
	assert.NoError(t, err)
	assert.Equal(t, record.Int(30), max)

	sum, err := db.Sum("age")
	assert.NoError(t, err)
	assert.Equal(t, 75.0, sum)

	avg, err := db.Avg("age")
	assert.NoError(t, err)
	assert.Equal(t, 25.0, avg)

	assert.Equal(t, 3, db.Count("age"))
	assert.Equal(t, 0, db.Count("salary"))
}

func TestAggregatesOnEmptyColumn(t *testing.T) {
	// arrange
	db := openTest(t, afero.NewMemMapFs())
	seed(t, db)

	// assert: min/max/avg refuse, sum is 0
	_, err := db.Min("salary")
	assert.ErrorIs(t, err, ErrQuery)
	_, err = db.Max("salary")
	assert.ErrorIs(t, err, ErrQuery)
	_, err = db.Avg("salary")
	assert.ErrorIs(t, err, ErrQuery)
	sum, err := db.Sum("salary")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, sum)
}

func TestNumericAggregateOnStringsFails(t *testing.T) {
	db := openTest(t, afero.NewMemMapFs())
	seed(t, db)

	_, err := db.Sum("name")
	assert.ErrorIs(t, err, ErrQuery)
}

func TestMinSkipsNulls(t *testing.T) {
	// arrange
	db := openTest(t, afero.NewMemMapFs())
	seed(t, db)
	rec := user(4, "Dave", 0)
	rec.Set("age", record.Null{})
	assert.NoError(t, db.Insert(rec))

	// act
	min, err := db.Min("age")

	// assert
	assert.NoError(t, err)
	assert.Equal(t, record.Int(20), min)
}

func TestBetween(t *testing.T) {
	db := openTest(t, afero.NewMemMapFs())
	seed(t, db)

	got := db.Between("age", record.Int(20), record.Int(25))

	assert.Equal(t, []string{"Alice", "Charlie"}, names(got))
}

func TestGroupByAndDistinct(t *testing.T) {
	// arrange
	db := openTest(t, afero.NewMemMapFs())
	seed(t, db)
	extra := user(4, "Dana", 25)
	assert.NoError(t, db.Insert(extra))

	// act
	groups := db.GroupBy("age")
	distinct := db.Distinct("age")

	// assert
	assert.Len(t, groups, 3)
	assert.Len(t, groups["25"], 2)
	assert.Equal(t, []record.Value{record.Int(25), record.Int(30), record.Int(20)}, distinct)
}

func TestGroupByMissingFieldGroupsUnderNull(t *testing.T) {
	// arrange
	db := openTest(t, afero.NewMemMapFs())
	seed(t, db)
	assert.NoError(t, db.Insert(record.FromPairs(record.F("id", record.Int(4)))))

	// act
	groups := db.GroupBy("name")

	// assert
	assert.Len(t, groups["null"], 1)
}

func TestStringHelpers(t *testing.T) {
	// arrange
	db := openTest(t, afero.NewMemMapFs())
	assert.NoError(t, db.Insert(record.FromPairs(record.F("name", record.String("  Alice ")))))
	assert.NoError(t, db.Insert(record.FromPairs(record.F("name", record.String("Bob")))))

	// act + assert
	upper, err := db.Upper("name")
	assert.NoError(t, err)
	assert.Equal(t, []string{"  ALICE ", "BOB"}, upper)

	lower, err := db.Lower("name")
	assert.NoError(t, err)
	assert.Equal(t, []string{"  alice ", "bob"}, lower)

	trimmed, err := db.Trim("name")
	assert.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, trimmed)

	lengths, err := db.Length("name")
	assert.NoError(t, err)
	assert.Equal(t, []int{8, 3}, lengths)

	joined, err := db.Concat("name", ", ")
	assert.NoError(t, err)
	assert.Equal(t, "  Alice , Bob", joined)
}

func TestStringHelperOnNumbersFails(t *testing.T) {
	db := openTest(t, afero.NewMemMapFs())
	seed(t, db)

	_, err := db.Upper("age")
	assert.ErrorIs(t, err, ErrQuery)
}
