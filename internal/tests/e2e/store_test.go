//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/hirehub/apiserver/config"
	"github.com/hirehub/apiserver/internal/db"
	"github.com/hirehub/apiserver/internal/store"
	"github.com/hirehub/apiserver/types"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("postgres", db.URL(config.LoadConfig().Database))
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func createUser(t *testing.T, users *store.UserRepository, email string, role types.Role) types.User {
	t.Helper()

	user, err := users.Create(context.Background(), types.User{Name: "Store User", Email: email, Role: role, PasswordHash: "$2a$10$hash"})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func storeJob(t *testing.T, jobs *store.JobRepository, job types.Job) types.Job {
	t.Helper()

	now := time.Now()
	job.Slug = "store-job"
	job.Description = "Repository level listing."
	job.Address = "1 Main St"
	job.Positions = 1
	job.PostingDate = now
	job.LastDate = now.Add(7 * 24 * time.Hour)
	created, err := jobs.Create(context.Background(), job)
	if err != nil {
		t.Fatalf("create job %q: %v", job.Title, err)
	}
	return created
}

func jobIDs(found []types.Job) []int {
	ids := make([]int, 0, len(found))
	for _, job := range found {
		ids = append(ids, job.ID)
	}
	sort.Ints(ids)
	return ids
}

func TestJobRepositorySearch(t *testing.T) {
	ctx := context.Background()
	conn := openDB(t)
	users := store.NewUserRepository(conn)
	jobs := store.NewJobRepository(conn)

	marker := fmt.Sprintf("S%d", time.Now().UnixNano())
	owner := createUser(t, users, marker+"@example.com", types.RoleEmployer)
	percent := storeJob(t, jobs, types.Job{
		Title: marker + " 100% Remote", Company: "Acme", CountryCode: "US",
		Industry: []types.Industry{types.IndustryIT}, JobType: types.JobTypePermanent,
		MinEducation: types.EducationBachelors, Experience: types.ExperienceNone,
		Salary: 90000, OwnerID: owner.ID,
	})
	thousand := storeJob(t, jobs, types.Job{
		Title: marker + " 1000 Remote", Company: "Bank_Co", CountryCode: "GB",
		Industry: []types.Industry{types.IndustryBanking, types.IndustryOthers}, JobType: types.JobTypeTemporary,
		MinEducation: types.EducationMasters, Experience: types.ExperienceFivePlus,
		Salary: 40000, OwnerID: owner.ID,
	})
	t.Cleanup(func() {
		_, _ = jobs.DeleteByOwner(context.Background(), owner.ID)
		_ = users.Delete(context.Background(), owner.ID)
	})

	salary := func(v float64) *float64 { return &v }
	tests := []struct {
		name   string
		filter store.JobFilter
		want   []int
	}{
		{name: "title", filter: store.JobFilter{Title: marker}, want: []int{percent.ID, thousand.ID}},
		{name: "title case-insensitive", filter: store.JobFilter{Title: marker + " 1000 remote"}, want: []int{thousand.ID}},
		{name: "percent is literal", filter: store.JobFilter{Title: marker + " 100%"}, want: []int{percent.ID}},
		{name: "underscore is literal", filter: store.JobFilter{Title: marker + " 10_0"}, want: []int{}},
		{name: "company underscore", filter: store.JobFilter{Title: marker, Company: "bank_"}, want: []int{thousand.ID}},
		{name: "country", filter: store.JobFilter{Title: marker, CountryCode: "gb"}, want: []int{thousand.ID}},
		{name: "industry overlap", filter: store.JobFilter{Title: marker, Industries: []types.Industry{types.IndustryMarketing, types.IndustryOthers}}, want: []int{thousand.ID}},
		{name: "industry miss", filter: store.JobFilter{Title: marker, Industries: []types.Industry{types.IndustryMarketing}}, want: []int{}},
		{name: "enums combine", filter: store.JobFilter{Title: marker, JobType: types.JobTypeTemporary, MinEducation: types.EducationMasters, Experience: types.ExperienceFivePlus}, want: []int{thousand.ID}},
		{name: "enums conflict", filter: store.JobFilter{Title: marker, JobType: types.JobTypePermanent, Experience: types.ExperienceFivePlus}, want: []int{}},
		{name: "salary floor", filter: store.JobFilter{Title: marker, MinSalary: salary(50000)}, want: []int{percent.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := jobs.Search(ctx, tt.filter)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			got := jobIDs(found)
			want := append([]int(nil), tt.want...)
			sort.Ints(want)
			if fmt.Sprint(got) != fmt.Sprint(want) {
				t.Fatalf("search %+v: got %v, want %v", tt.filter, got, want)
			}
		})
	}

	found, err := jobs.Search(ctx, store.JobFilter{Title: marker, CountryCode: "gb"})
	if err != nil || len(found) != 1 {
		t.Fatalf("reload job: %v %v", found, err)
	}
	if got := found[0].Industry; len(got) != 2 || got[0] != types.IndustryBanking || got[1] != types.IndustryOthers {
		t.Fatalf("industry round trip: %v", got)
	}
}

func TestJobRepositoryApplicants(t *testing.T) {
	ctx := context.Background()
	conn := openDB(t)
	users := store.NewUserRepository(conn)
	jobs := store.NewJobRepository(conn)

	suffix := time.Now().UnixNano()
	owner := createUser(t, users, fmt.Sprintf("owner_%d@example.com", suffix), types.RoleEmployer)
	first := createUser(t, users, fmt.Sprintf("first_%d@example.com", suffix), types.RoleUser)
	second := createUser(t, users, fmt.Sprintf("second_%d@example.com", suffix), types.RoleUser)
	job := storeJob(t, jobs, types.Job{
		Title: "Applicants", Company: "Acme", CountryCode: "US",
		Industry: []types.Industry{types.IndustryIT}, JobType: types.JobTypePermanent,
		MinEducation: types.EducationBachelors, Experience: types.ExperienceNone,
		Salary: 1, OwnerID: owner.ID,
	})
	t.Cleanup(func() {
		_, _ = jobs.DeleteByOwner(context.Background(), owner.ID)
		for _, id := range []int{owner.ID, first.ID, second.ID} {
			_ = users.Delete(context.Background(), id)
		}
	})

	resume := fmt.Sprintf("Store_User_%d.pdf", job.ID)
	if err := jobs.AddApplicant(ctx, job.ID, types.Applicant{ID: first.ID, Resume: resume}); err != nil {
		t.Fatalf("add first applicant: %v", err)
	}
	if err := jobs.AddApplicant(ctx, job.ID, types.Applicant{ID: first.ID, Resume: resume}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate application, got %v", err)
	}
	if err := jobs.AddApplicant(ctx, 0, types.Applicant{ID: first.ID, Resume: resume}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing job, got %v", err)
	}
	if err := jobs.AddApplicant(ctx, job.ID, types.Applicant{ID: second.ID, Resume: resume}); err != nil {
		t.Fatalf("add second applicant: %v", err)
	}

	loaded, err := jobs.GetWithApplicants(ctx, job.ID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if len(loaded.ApplicantsApplied) != 2 || loaded.ApplicantsApplied[0].ID != first.ID {
		t.Fatalf("unexpected applicants: %+v", loaded.ApplicantsApplied)
	}

	applied, err := jobs.ListAppliedBy(ctx, first.ID)
	if err != nil || len(applied) != 1 || applied[0].Job.ID != job.ID || applied[0].Resume != resume {
		t.Fatalf("applied jobs: %+v %v", applied, err)
	}

	resumes, err := jobs.ListResumesByOwner(ctx, owner.ID)
	if err != nil || len(resumes) != 2 {
		t.Fatalf("owner resumes: %v %v", resumes, err)
	}

	if inUse, err := jobs.ResumeInUse(ctx, resume, first.ID); err != nil || !inUse {
		t.Fatalf("expected resume shared with second applicant: %v %v", inUse, err)
	}
	if err := jobs.RemoveApplicant(ctx, job.ID, second.ID); err != nil {
		t.Fatalf("remove applicant: %v", err)
	}
	if err := jobs.RemoveApplicant(ctx, job.ID, second.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound removing twice, got %v", err)
	}
	if inUse, err := jobs.ResumeInUse(ctx, resume, first.ID); err != nil || inUse {
		t.Fatalf("expected resume no longer shared: %v %v", inUse, err)
	}

	if err := users.Delete(ctx, owner.ID); !errors.Is(err, store.ErrReferenced) {
		t.Fatalf("expected owner with jobs to be referenced, got %v", err)
	}
	deleted, err := jobs.DeleteByOwner(ctx, owner.ID)
	if err != nil || deleted != 1 {
		t.Fatalf("delete by owner: %d %v", deleted, err)
	}
	if resumes, err := jobs.ListResumesByOwner(ctx, owner.ID); err != nil || len(resumes) != 0 {
		t.Fatalf("applications should cascade with the job: %v %v", resumes, err)
	}
}

func TestUserRepositoryKeepsHashOutOfPlainReads(t *testing.T) {
	ctx := context.Background()
	conn := openDB(t)
	users := store.NewUserRepository(conn)

	email := fmt.Sprintf("hash_%d@example.com", time.Now().UnixNano())
	user := createUser(t, users, email, types.RoleUser)
	t.Cleanup(func() { _ = users.Delete(context.Background(), user.ID) })

	plain, err := users.GetByID(ctx, user.ID)
	if err != nil || plain.PasswordHash != "" {
		t.Fatalf("GetByID: hash=%q err=%v", plain.PasswordHash, err)
	}
	listed, err := users.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, u := range listed {
		if u.PasswordHash != "" {
			t.Fatalf("List leaked hash for user %d", u.ID)
		}
	}

	secret, err := users.GetByIDWithSecret(ctx, user.ID)
	if err != nil || secret.PasswordHash != "$2a$10$hash" {
		t.Fatalf("GetByIDWithSecret: hash=%q err=%v", secret.PasswordHash, err)
	}
	byEmail, err := users.GetByEmail(ctx, email)
	if err != nil || byEmail.PasswordHash != "$2a$10$hash" {
		t.Fatalf("GetByEmail: hash=%q err=%v", byEmail.PasswordHash, err)
	}

	plain.Name = "Renamed"
	if _, err := users.Update(ctx, plain); err != nil {
		t.Fatalf("update: %v", err)
	}
	if secret, _ := users.GetByIDWithSecret(ctx, user.ID); secret.PasswordHash != "$2a$10$hash" {
		t.Fatalf("update overwrote hash: %q", secret.PasswordHash)
	}
}
