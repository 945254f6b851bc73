package memstore

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/hirehub/apiserver/internal/store"
	"github.com/hirehub/apiserver/types"
)

func TestJobsSearchFilters(t *testing.T) {
	c := qt.New(t)
	jobs := NewJobs()
	goDev := jobs.Put(types.Job{
		Title: "Go Developer", Company: "Acme", CountryCode: "US",
		Industry: []types.Industry{types.IndustryIT}, JobType: types.JobTypePermanent,
		MinEducation: types.EducationBachelors, Experience: types.ExperienceNone, Salary: 90000,
	})
	tutor := jobs.Put(types.Job{
		Title: "Maths Tutor", Company: "School Board", CountryCode: "GB",
		Industry: []types.Industry{types.IndustryEducation, types.IndustryOthers}, JobType: types.JobTypeTemporary,
		MinEducation: types.EducationMasters, Experience: types.ExperienceFivePlus, Salary: 40000,
	})

	salary := func(v float64) *float64 { return &v }
	tests := []struct {
		name   string
		filter store.JobFilter
		want   []int
	}{
		{name: "no filter", filter: store.JobFilter{}, want: []int{goDev.ID, tutor.ID}},
		{name: "title ignores case", filter: store.JobFilter{Title: "DEVELOP"}, want: []int{goDev.ID}},
		{name: "company", filter: store.JobFilter{Company: "board"}, want: []int{tutor.ID}},
		{name: "country", filter: store.JobFilter{CountryCode: "gb"}, want: []int{tutor.ID}},
		{name: "industry overlap", filter: store.JobFilter{Industries: []types.Industry{types.IndustryBanking, types.IndustryOthers}}, want: []int{tutor.ID}},
		{name: "job type", filter: store.JobFilter{JobType: types.JobTypePermanent}, want: []int{goDev.ID}},
		{name: "education", filter: store.JobFilter{MinEducation: types.EducationMasters}, want: []int{tutor.ID}},
		{name: "experience", filter: store.JobFilter{Experience: types.ExperienceNone}, want: []int{goDev.ID}},
		{name: "salary floor", filter: store.JobFilter{MinSalary: salary(40000)}, want: []int{goDev.ID, tutor.ID}},
		{name: "salary above all", filter: store.JobFilter{MinSalary: salary(100000)}, want: []int{}},
		{name: "filters combine", filter: store.JobFilter{Title: "go", CountryCode: "GB"}, want: []int{}},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			found, err := jobs.Search(context.Background(), tt.filter)
			c.Assert(err, qt.IsNil)
			ids := make([]int, 0, len(found))
			for _, job := range found {
				ids = append(ids, job.ID)
			}
			c.Assert(ids, qt.DeepEquals, tt.want)
		})
	}
}

func TestJobsResumeInUse(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	jobs := NewJobs()
	jobs.Put(types.Job{ApplicantsApplied: []types.Applicant{{ID: 1, Resume: "Grace_1.pdf"}, {ID: 2, Resume: "Grace_1.pdf"}}})

	inUse, err := jobs.ResumeInUse(ctx, "Grace_1.pdf", 1)
	c.Assert(err, qt.IsNil)
	c.Assert(inUse, qt.IsTrue)

	c.Assert(jobs.RemoveApplicant(ctx, 1, 2), qt.IsNil)
	inUse, err = jobs.ResumeInUse(ctx, "Grace_1.pdf", 1)
	c.Assert(err, qt.IsNil)
	c.Assert(inUse, qt.IsFalse)
}

func TestUsersUpdateKeepsPasswordHash(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	users := NewUsers()
	created, err := users.Create(ctx, types.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"})
	c.Assert(err, qt.IsNil)

	plain, err := users.GetByID(ctx, created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(plain.PasswordHash, qt.Equals, "")

	plain.Name = "Ada L."
	_, err = users.Update(ctx, plain)
	c.Assert(err, qt.IsNil)

	secret, err := users.GetByIDWithSecret(ctx, created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(secret.Name, qt.Equals, "Ada L.")
	c.Assert(secret.PasswordHash, qt.Equals, "hash")
}
