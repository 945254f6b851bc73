// Package memstore holds in-memory repositories with the same contract as
// the Postgres ones in package store. They back the service and handler tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/hirehub/apiserver/internal/store"
	"github.com/hirehub/apiserver/types"
)

// Users is an in-memory UserRepository. Like the Postgres one, only
// GetByIDWithSecret and GetByEmail return the password hash.
type Users struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func NewUsers() *Users {
	return &Users{users: map[int]types.User{}}
}

func (m *Users) GetByID(ctx context.Context, id int) (types.User, error) {
	user, err := m.GetByIDWithSecret(ctx, id)
	user.PasswordHash = ""
	return user, err
}

func (m *Users) GetByIDWithSecret(_ context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *Users) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *Users) List(context.Context) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]types.User, 0, len(m.users))
	for _, user := range m.users {
		user.PasswordHash = ""
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *Users) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, err := m.GetByEmail(ctx, user.Email); err == nil {
		return types.User{}, store.ErrDuplicate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return user, nil
}

func (m *Users) Update(ctx context.Context, user types.User) (types.User, error) {
	if other, err := m.GetByEmail(ctx, user.Email); err == nil && other.ID != user.ID {
		return types.User{}, store.ErrDuplicate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	stored := user
	stored.PasswordHash = existing.PasswordHash
	m.users[user.ID] = stored
	return user, nil
}

func (m *Users) UpdatePassword(_ context.Context, id int, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = hash
	m.users[id] = user
	return nil
}

func (m *Users) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// Jobs is an in-memory JobRepository.
type Jobs struct {
	mu     sync.Mutex
	nextID int
	jobs   map[int]types.Job

	// AddErr, when set, is returned by AddApplicant instead of appending.
	AddErr error
	// LastFilter records the most recent Search call.
	LastFilter store.JobFilter
}

func NewJobs() *Jobs {
	return &Jobs{jobs: map[int]types.Job{}}
}

// Put stores job under a fresh id, keeping its applicants.
func (m *Jobs) Put(job types.Job) types.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	job.ID = m.nextID
	m.jobs[job.ID] = job
	return job
}

func (m *Jobs) sorted(keep func(types.Job) bool) []types.Job {
	jobs := make([]types.Job, 0)
	for _, job := range m.jobs {
		if keep(job) {
			job.ApplicantsApplied = nil
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs
}

func (m *Jobs) List(context.Context) ([]types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(types.Job) bool { return true }), nil
}

func (m *Jobs) Search(_ context.Context, filter store.JobFilter) ([]types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastFilter = filter
	return m.sorted(func(job types.Job) bool { return matches(job, filter) }), nil
}

// matches mirrors the SQL search: substring matches ignore case, equality
// fields compare exactly and industries match on any overlap.
func matches(job types.Job, filter store.JobFilter) bool {
	contains := func(value, sub string) bool {
		return strings.Contains(strings.ToLower(value), strings.ToLower(sub))
	}
	switch {
	case filter.Title != "" && !contains(job.Title, filter.Title),
		filter.Company != "" && !contains(job.Company, filter.Company),
		filter.CountryCode != "" && job.CountryCode != strings.ToUpper(filter.CountryCode),
		filter.JobType != "" && job.JobType != filter.JobType,
		filter.MinEducation != "" && job.MinEducation != filter.MinEducation,
		filter.Experience != "" && job.Experience != filter.Experience,
		filter.MinSalary != nil && job.Salary < *filter.MinSalary:
		return false
	}
	if len(filter.Industries) == 0 {
		return true
	}
	for _, want := range filter.Industries {
		if slices.Contains(job.Industry, want) {
			return true
		}
	}
	return false
}

func (m *Jobs) Get(ctx context.Context, id int) (types.Job, error) {
	job, err := m.GetWithApplicants(ctx, id)
	job.ApplicantsApplied = nil
	return job, err
}

func (m *Jobs) GetWithApplicants(_ context.Context, id int) (types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return types.Job{}, store.ErrNotFound
	}
	job.ApplicantsApplied = append([]types.Applicant(nil), job.ApplicantsApplied...)
	return job, nil
}

func (m *Jobs) ListByOwner(_ context.Context, ownerID int) ([]types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(job types.Job) bool { return job.OwnerID == ownerID }), nil
}

func (m *Jobs) ListAppliedBy(_ context.Context, applicantID int) ([]types.AppliedJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	applied := make([]types.AppliedJob, 0)
	for _, job := range m.sorted(func(types.Job) bool { return true }) {
		for _, a := range m.jobs[job.ID].ApplicantsApplied {
			if a.ID == applicantID {
				applied = append(applied, types.AppliedJob{Job: job, Resume: a.Resume})
			}
		}
	}
	return applied, nil
}

func (m *Jobs) ListResumesByOwner(_ context.Context, ownerID int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resumes := make([]string, 0)
	for _, job := range m.jobs {
		if job.OwnerID != ownerID {
			continue
		}
		for _, a := range job.ApplicantsApplied {
			resumes = append(resumes, a.Resume)
		}
	}
	return resumes, nil
}

func (m *Jobs) ResumeInUse(_ context.Context, name string, exceptApplicantID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		for _, a := range job.ApplicantsApplied {
			if a.Resume == name && a.ID != exceptApplicantID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *Jobs) Create(_ context.Context, job types.Job) (types.Job, error) {
	return m.Put(job), nil
}

func (m *Jobs) Update(_ context.Context, job types.Job) (types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.jobs[job.ID]
	if !ok {
		return types.Job{}, store.ErrNotFound
	}
	job.ApplicantsApplied = existing.ApplicantsApplied
	m.jobs[job.ID] = job
	job.ApplicantsApplied = nil
	return job, nil
}

func (m *Jobs) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *Jobs) DeleteByOwner(_ context.Context, ownerID int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, job := range m.jobs {
		if job.OwnerID == ownerID {
			delete(m.jobs, id)
			n++
		}
	}
	return n, nil
}

func (m *Jobs) AddApplicant(_ context.Context, jobID int, applicant types.Applicant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddErr != nil {
		return m.AddErr
	}
	job, ok := m.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	if job.HasApplicant(applicant.ID) {
		return store.ErrConflict
	}
	job.ApplicantsApplied = append(job.ApplicantsApplied, applicant)
	m.jobs[jobID] = job
	return nil
}

func (m *Jobs) RemoveApplicant(_ context.Context, jobID, applicantID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	kept := job.ApplicantsApplied[:0]
	removed := false
	for _, a := range job.ApplicantsApplied {
		if a.ID == applicantID {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	if !removed {
		return store.ErrNotFound
	}
	job.ApplicantsApplied = kept
	m.jobs[jobID] = job
	return nil
}

// Replace overwrites the stored job with the same id.
func (m *Jobs) Replace(job types.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
}
