package store

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/lib/pq"

	"github.com/hirehub/apiserver/types"
)

func TestSearchQueryWithoutFilters(t *testing.T) {
	c := qt.New(t)

	query, args := searchQuery(JobFilter{})
	c.Assert(strings.Contains(query, "WHERE"), qt.IsFalse)
	c.Assert(strings.HasSuffix(query, "ORDER BY j.posting_date DESC, j.id DESC"), qt.IsTrue)
	c.Assert(args, qt.HasLen, 0)
}

func TestSearchQueryNumbersPlaceholdersInOrder(t *testing.T) {
	c := qt.New(t)
	minSalary := 50000.0

	query, args := searchQuery(JobFilter{
		Title:        "50%_off",
		CountryCode:  "gb",
		Company:      `Acme\Labs`,
		Industries:   []types.Industry{types.IndustryBanking, types.IndustryEducation},
		JobType:      types.JobTypePermanent,
		MinEducation: types.EducationBachelors,
		Experience:   types.ExperienceNone,
		MinSalary:    &minSalary,
	})

	where := query[strings.Index(query, "WHERE ")+len("WHERE ") : strings.Index(query, " ORDER BY")]
	c.Assert(strings.Split(where, " AND "), qt.DeepEquals, []string{
		`j.title ILIKE $1 ESCAPE '\'`,
		`j.country_code = $2`,
		`j.company ILIKE $3 ESCAPE '\'`,
		`j.industry && $4::text[]`,
		`j.job_type = $5`,
		`j.min_education = $6`,
		`j.experience = $7`,
		`j.salary >= $8`,
	})
	c.Assert(args, qt.DeepEquals, []any{
		`%50\%\_off%`,
		"GB",
		`%Acme\\Labs%`,
		pq.Array([]string{"Banking", "Education/Training"}),
		"Permanent",
		"Bachelors",
		"No Experience",
		50000.0,
	})
}

func TestSearchQuerySkipsZeroFields(t *testing.T) {
	c := qt.New(t)
	zero := 0.0

	query, args := searchQuery(JobFilter{JobType: types.JobTypeInternship, MinSalary: &zero})
	c.Assert(strings.Contains(query, "WHERE j.job_type = $1 AND j.salary >= $2 ORDER BY"), qt.IsTrue, qt.Commentf("%s", query))
	c.Assert(args, qt.DeepEquals, []any{"Internship", 0.0})
}
