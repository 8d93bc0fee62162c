package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/store"
)

// SourceCSV is the source name recorded on runs and leads.
const SourceCSV = "csv"

// maxRowErrors aborts an import that is clearly the wrong file.
const maxRowErrors = 10

// columnAliases maps canonical lead fields to the header names exporters use
// for them. First match in the header wins.
var columnAliases = map[string][]string{
	"email":            {"email", "email address", "e-mail"},
	"first_name":       {"first name", "firstname", "given name"},
	"last_name":        {"last name", "lastname", "surname"},
	"full_name":        {"full name", "name"},
	"title":            {"title", "job title", "position"},
	"seniority":        {"seniority", "seniority level"},
	"company_name":     {"company", "company name", "organization", "account name"},
	"company_domain":   {"company domain", "website", "company website", "domain"},
	"company_size":     {"# employees", "employees", "company size", "employee count"},
	"company_industry": {"industry", "company industry"},
	"city":             {"city", "person city"},
	"state":            {"state", "person state", "region"},
	"country":          {"country", "person country"},
	"linkedin_url":     {"person linkedin url", "linkedin url", "linkedin"},
	"email_verified":   {"email status", "email verified"},
	"phone":            {"phone", "phone number", "work direct phone", "mobile phone"},
}

// CSVSource imports an Apollo-style contact export file.
type CSVSource struct {
	path  string
	store store.Store
}

// NewCSVSource creates a CSV file source.
func NewCSVSource(path string, st store.Store) *CSVSource {
	return &CSVSource{path: path, store: st}
}

func (s *CSVSource) Name() string { return SourceCSV }

func (s *CSVSource) Ingest(ctx context.Context, runID string) (*Result, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open csv %s", s.path)
	}
	defer f.Close()

	delim, err := sniffDelimiter(f)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}

	cols := mapColumns(header)
	if _, ok := cols["email"]; !ok {
		return nil, eris.Errorf("ingest: csv %s has no email column", s.path)
	}

	log := zap.L().With(zap.String("source", SourceCSV), zap.String("run_id", runID))
	result := &Result{}
	rowErrors := 0

	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrors++
			log.Warn("bad csv row", zap.Int("line", line), zap.Error(err))
			if rowErrors > maxRowErrors {
				return result, eris.Errorf("ingest: aborting, %d malformed rows in %s", rowErrors, s.path)
			}
			continue
		}

		lead := leadFromRecord(record, cols)
		if !strings.Contains(lead.Email, "@") {
			result.Skipped++
			continue
		}
		lead.RunID = runID

		up, err := s.store.UpsertLead(ctx, lead)
		if err != nil {
			return result, eris.Wrapf(err, "ingest: csv upsert line %d", line)
		}
		result.Fetched++
		if up.Created {
			result.Created++
		}
	}

	return result, nil
}

// sniffDelimiter inspects the header line and picks the candidate that splits
// it into the most fields. Resets the reader to the start afterwards.
func sniffDelimiter(f *os.File) (rune, error) {
	buf := make([]byte, 4096)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return 0, eris.Wrap(err, "ingest: sniff delimiter")
	}
	firstLine, _, _ := strings.Cut(string(buf[:n]), "\n")

	best := ','
	bestCount := strings.Count(firstLine, ",")
	for _, cand := range []rune{';', '\t'} {
		if c := strings.Count(firstLine, string(cand)); c > bestCount {
			best, bestCount = cand, c
		}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, eris.Wrap(err, "ingest: rewind csv")
	}
	return best, nil
}

// mapColumns resolves the alias table against the header. Returns canonical
// field → column index.
func mapColumns(header []string) map[string]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff") // exporters love BOMs
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	cols := map[string]int{}
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			for i, h := range normalized {
				if h == alias {
					cols[field] = i
					break
				}
			}
			if _, ok := cols[field]; ok {
				break
			}
		}
	}
	return cols
}

func leadFromRecord(record []string, cols map[string]int) *model.Lead {
	get := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	lead := &model.Lead{
		Email:           model.NormalizeEmail(get("email")),
		FirstName:       get("first_name"),
		LastName:        get("last_name"),
		FullName:        get("full_name"),
		Title:           get("title"),
		Seniority:       get("seniority"),
		CompanyName:     get("company_name"),
		CompanyDomain:   get("company_domain"),
		CompanyIndustry: get("company_industry"),
		City:            get("city"),
		State:           get("state"),
		Country:         get("country"),
		LinkedInURL:     get("linkedin_url"),
		Phone:           get("phone"),
		Source:          SourceCSV,
	}

	switch strings.ToLower(get("email_verified")) {
	case "verified", "true", "yes", "1":
		lead.EmailVerified = true
	}

	// Employee counts come through as numbers; re-bucket them. Already
	// bucketed values pass through.
	if size := get("company_size"); size != "" {
		if n, err := strconv.Atoi(strings.ReplaceAll(size, ",", "")); err == nil {
			lead.CompanySize = model.CompanySizeBucket(n)
		} else {
			lead.CompanySize = size
		}
	}

	if lead.FullName == "" {
		lead.FullName = JoinName(lead.FirstName, lead.LastName)
	}
	lead.Location = JoinLocation(lead.City, lead.State, lead.Country)

	return lead
}
