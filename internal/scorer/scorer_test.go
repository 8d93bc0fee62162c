package scorer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorulabs/leadgen-cli/internal/icp"
	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/store"
)

func testICP() *icp.Config {
	return &icp.Config{
		Name: "saas-cto",
		Filters: icp.Filters{
			Titles:       []string{"CTO", "VP of Engineering"},
			Seniorities:  []string{"c_suite", "vp"},
			Industries:   []string{"software"},
			CompanySizes: []string{"51-200", "201-500"},
			Locations:    []string{"United States"},
		},
		Weights: icp.DefaultWeights(),
	}
}

func TestScoreLead_FullMatch(t *testing.T) {
	s := New(nil, testICP())
	fit, reasons := s.ScoreLead(&model.Lead{
		Title:           "CTO",
		Seniority:       "c_suite",
		CompanyIndustry: "computer software",
		CompanySize:     "51-200",
		Location:        "Austin, Texas, United States",
		EmailVerified:   true,
	})
	assert.Equal(t, 100, fit)
	assert.Len(t, reasons, 6)
}

func TestScoreLead_NoMatch(t *testing.T) {
	s := New(nil, testICP())
	fit, reasons := s.ScoreLead(&model.Lead{
		Title:       "Accountant",
		Seniority:   "entry",
		CompanySize: "1000+",
		Location:    "Berlin, Germany",
	})
	assert.Equal(t, 0, fit)
	assert.Empty(t, reasons)
}

func TestScoreLead_PartialMatch(t *testing.T) {
	s := New(nil, testICP())
	// Title (30) + verified email (10).
	fit, reasons := s.ScoreLead(&model.Lead{
		Title:         "VP of Engineering",
		EmailVerified: true,
	})
	assert.Equal(t, 40, fit)
	assert.Len(t, reasons, 2)
	assert.Contains(t, reasons[0], "VP of Engineering")
}

func TestScoreLead_TitleSubstringBothWays(t *testing.T) {
	s := New(nil, &icp.Config{
		Name:    "x",
		Filters: icp.Filters{Titles: []string{"VP"}},
		Weights: icp.DefaultWeights(),
	})

	fit, _ := s.ScoreLead(&model.Lead{Title: "VP of Sales"})
	assert.Equal(t, 30+15+20+15+10, fit) // title + unconstrained dimensions

	fit, _ = s.ScoreLead(&model.Lead{Title: "Intern"})
	assert.Equal(t, 15+20+15+10, fit)
}

func TestScoreLead_UnconstrainedDimensionsAward(t *testing.T) {
	s := New(nil, &icp.Config{
		Name:    "broad",
		Filters: icp.Filters{Titles: []string{"CTO"}},
		Weights: icp.DefaultWeights(),
	})
	fit, reasons := s.ScoreLead(&model.Lead{Title: "CTO", EmailVerified: true})
	assert.Equal(t, 100, fit)
	// Only actual matches produce reasons.
	assert.Len(t, reasons, 2)
}

func TestDistribute(t *testing.T) {
	d := Distribute([]int{90, 70, 55, 40, 39, 0})
	assert.Equal(t, 2, d.High)
	assert.Equal(t, 2, d.Medium)
	assert.Equal(t, 2, d.Low)
	assert.Equal(t, 0, d.Min)
	assert.Equal(t, 90, d.Max)
	assert.InDelta(t, 49.0, d.Avg, 0.01)
}

func TestDistribute_Empty(t *testing.T) {
	d := Distribute(nil)
	assert.Equal(t, Distribution{}, d)
}

func TestScoreRun_Persists(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	for _, l := range []*model.Lead{
		{Email: "hit@acme.com", Title: "CTO", Seniority: "c_suite", CompanyIndustry: "software",
			CompanySize: "51-200", Location: "United States", EmailVerified: true, Source: "csv", RunID: "run-1"},
		{Email: "miss@acme.com", Title: "Janitor", Source: "csv", RunID: "run-1"},
	} {
		_, err := st.UpsertLead(context.Background(), l)
		require.NoError(t, err)
	}

	s := New(st, testICP())
	res, err := s.ScoreRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scored)
	assert.Equal(t, 1, res.Distribution.High)
	assert.Equal(t, 1, res.Distribution.Low)

	scores, err := st.ListScoresByRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 100, scores[0].FitScore) // ordered fit desc
	assert.Equal(t, "saas-cto", scores[0].ICPName)
	assert.NotEmpty(t, scores[0].Reasons)
}
