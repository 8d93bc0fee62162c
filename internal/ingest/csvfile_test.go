package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorulabs/leadgen-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVSource_TenGoodOneBad(t *testing.T) {
	st := newTestStore(t)

	var b strings.Builder
	b.WriteString("Email,First Name,Last Name,Title,Company\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "user%d@acme.com,User,Num%d,Engineer,Acme\n", i, i)
	}
	b.WriteString("not-an-email,Bad,Row,Engineer,Acme\n")

	src := NewCSVSource(writeCSV(t, b.String()), st)
	res, err := src.Ingest(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 10, res.Fetched)
	assert.Equal(t, 10, res.Created)
	assert.Equal(t, 1, res.Skipped)

	leads, err := st.ListLeadsByRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Len(t, leads, 10)
}

func TestCSVSource_ReIngestIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	path := writeCSV(t, "Email,Title\njane@acme.com,CEO\n")

	src := NewCSVSource(path, st)
	res, err := src.Ingest(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	res, err = src.Ingest(context.Background(), "run-2")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 0, res.Created) // same row updated, not duplicated
}

func TestCSVSource_SemicolonDelimiter(t *testing.T) {
	st := newTestStore(t)
	path := writeCSV(t, "Email;First Name;Last Name\njane@acme.com;Jane;Doe\n")

	src := NewCSVSource(path, st)
	res, err := src.Ingest(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fetched)

	lead, err := st.GetLeadByEmail(context.Background(), "jane@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane", lead.FirstName)
	assert.Equal(t, "Jane Doe", lead.FullName) // synthesized
}

func TestCSVSource_TabDelimiter(t *testing.T) {
	st := newTestStore(t)
	path := writeCSV(t, "Email\tTitle\njane@acme.com\tCTO\n")

	src := NewCSVSource(path, st)
	res, err := src.Ingest(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fetched)
}

func TestCSVSource_NoEmailColumn(t *testing.T) {
	st := newTestStore(t)
	path := writeCSV(t, "Name,Title\nJane,CEO\n")

	src := NewCSVSource(path, st)
	_, err := src.Ingest(context.Background(), "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no email column")
}

func TestCSVSource_FileMissing(t *testing.T) {
	st := newTestStore(t)
	src := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv"), st)
	_, err := src.Ingest(context.Background(), "run-1")
	require.Error(t, err)
}

func TestMapColumns_AliasPriority(t *testing.T) {
	// "Email Address" resolves through the alias table; "Company" beats
	// nothing; BOM and case are ignored.
	cols := mapColumns([]string{"\ufeffEmail Address", "COMPANY", "Person Linkedin Url"})
	assert.Equal(t, 0, cols["email"])
	assert.Equal(t, 1, cols["company_name"])
	assert.Equal(t, 2, cols["linkedin_url"])
}

func TestLeadFromRecord_Normalization(t *testing.T) {
	cols := mapColumns([]string{"email", "first name", "last name", "# employees", "email status", "city", "state", "country"})
	lead := leadFromRecord([]string{" Jane@ACME.com ", "Jane", "Doe", "1,200", "Verified", "Austin", "TX", "US"}, cols)

	assert.Equal(t, "jane@acme.com", lead.Email)
	assert.Equal(t, "Jane Doe", lead.FullName)
	assert.Equal(t, "1000+", lead.CompanySize)
	assert.True(t, lead.EmailVerified)
	assert.Equal(t, "Austin, TX, US", lead.Location)
}

func TestLeadFromRecord_BucketPassthrough(t *testing.T) {
	cols := mapColumns([]string{"email", "company size"})
	lead := leadFromRecord([]string{"x@y.com", "51-200"}, cols)
	assert.Equal(t, "51-200", lead.CompanySize)
}
