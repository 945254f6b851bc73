package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hirehub/apiserver/types"
)

const jobColumns = `j.id, j.title, j.slug, j.description, j.email, j.address, j.country_code,
	j.company, j.industry, j.job_type, j.min_education, j.positions, j.experience,
	j.salary, j.posting_date, j.last_date, j.owner_id, j.created_at, j.updated_at`

// JobFilter narrows a job search. Zero values are ignored.
type JobFilter struct {
	Title        string
	CountryCode  string
	Company      string
	Industries   []types.Industry
	JobType      types.JobType
	MinEducation types.Education
	Experience   types.Experience
	MinSalary    *float64
}

// JobRepository handles persistence for jobs and their applicants.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) List(ctx context.Context) ([]types.Job, error) {
	const query = `SELECT ` + jobColumns + ` FROM jobs j ORDER BY j.posting_date DESC, j.id DESC`
	return r.queryJobs(ctx, query)
}

func (r *JobRepository) Search(ctx context.Context, filter JobFilter) ([]types.Job, error) {
	query, args := searchQuery(filter)
	return r.queryJobs(ctx, query, args...)
}

// searchQuery ANDs one placeholder condition per non-zero filter field.
// Industries match when the job lists any of them.
func searchQuery(filter JobFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Title != "" {
		add(`j.title ILIKE $%d ESCAPE '\'`, containsPattern(filter.Title))
	}
	if filter.CountryCode != "" {
		add(`j.country_code = $%d`, strings.ToUpper(filter.CountryCode))
	}
	if filter.Company != "" {
		add(`j.company ILIKE $%d ESCAPE '\'`, containsPattern(filter.Company))
	}
	if len(filter.Industries) > 0 {
		add(`j.industry && $%d::text[]`, pq.Array(industryStrings(filter.Industries)))
	}
	if filter.JobType != "" {
		add(`j.job_type = $%d`, string(filter.JobType))
	}
	if filter.MinEducation != "" {
		add(`j.min_education = $%d`, string(filter.MinEducation))
	}
	if filter.Experience != "" {
		add(`j.experience = $%d`, string(filter.Experience))
	}
	if filter.MinSalary != nil {
		add(`j.salary >= $%d`, *filter.MinSalary)
	}

	query := `SELECT ` + jobColumns + ` FROM jobs j`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY j.posting_date DESC, j.id DESC`
	return query, args
}

// Get loads a job without its applicant list.
func (r *JobRepository) Get(ctx context.Context, id int) (types.Job, error) {
	const query = `SELECT ` + jobColumns + ` FROM jobs j WHERE j.id = $1`
	return scanJob(r.db.QueryRowContext(ctx, query, id))
}

// GetWithApplicants loads a job and its applicant list in application order.
func (r *JobRepository) GetWithApplicants(ctx context.Context, id int) (types.Job, error) {
	job, err := r.Get(ctx, id)
	if err != nil {
		return types.Job{}, err
	}

	const query = `
		SELECT applicant_id, resume, applied_at
		FROM job_applicants
		WHERE job_id = $1
		ORDER BY applied_at, applicant_id`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return types.Job{}, err
	}
	defer rows.Close()

	job.ApplicantsApplied = make([]types.Applicant, 0)
	for rows.Next() {
		var applicant types.Applicant
		if err := rows.Scan(&applicant.ID, &applicant.Resume, &applicant.AppliedAt); err != nil {
			return types.Job{}, err
		}
		job.ApplicantsApplied = append(job.ApplicantsApplied, applicant)
	}
	if err := rows.Err(); err != nil {
		return types.Job{}, err
	}
	return job, nil
}

func (r *JobRepository) ListByOwner(ctx context.Context, ownerID int) ([]types.Job, error) {
	const query = `SELECT ` + jobColumns + ` FROM jobs j WHERE j.owner_id = $1 ORDER BY j.posting_date DESC, j.id DESC`
	return r.queryJobs(ctx, query, ownerID)
}

// ListAppliedBy returns every job the user has applied to, with the resume
// submitted for each.
func (r *JobRepository) ListAppliedBy(ctx context.Context, applicantID int) ([]types.AppliedJob, error) {
	const query = `
		SELECT ` + jobColumns + `, a.resume
		FROM jobs j
		JOIN job_applicants a ON a.job_id = j.id
		WHERE a.applicant_id = $1
		ORDER BY a.applied_at DESC`
	rows, err := r.db.QueryContext(ctx, query, applicantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make([]types.AppliedJob, 0)
	for rows.Next() {
		var item types.AppliedJob
		var industry pq.StringArray
		if err := rows.Scan(append(jobDest(&item.Job, &industry), &item.Resume)...); err != nil {
			return nil, err
		}
		item.Job.Industry = toIndustries(industry)
		applied = append(applied, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return applied, nil
}

// ListResumesByOwner returns the stored resume names attached to any job the
// owner published.
func (r *JobRepository) ListResumesByOwner(ctx context.Context, ownerID int) ([]string, error) {
	const query = `
		SELECT a.resume
		FROM job_applicants a
		JOIN jobs j ON j.id = a.job_id
		WHERE j.owner_id = $1`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resumes := make([]string, 0)
	for rows.Next() {
		var resume string
		if err := rows.Scan(&resume); err != nil {
			return nil, err
		}
		resumes = append(resumes, resume)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resumes, nil
}

// ResumeInUse reports whether an application other than exceptApplicantID's
// still points at the stored resume name.
func (r *JobRepository) ResumeInUse(ctx context.Context, name string, exceptApplicantID int) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM job_applicants WHERE resume = $1 AND applicant_id <> $2
		)`
	var inUse bool
	if err := r.db.QueryRowContext(ctx, query, name, exceptApplicantID).Scan(&inUse); err != nil {
		return false, err
	}
	return inUse, nil
}

func (r *JobRepository) Create(ctx context.Context, job types.Job) (types.Job, error) {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	const query = `
		INSERT INTO jobs (title, slug, description, email, address, country_code, company,
			industry, job_type, min_education, positions, experience, salary,
			posting_date, last_date, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		job.Title,
		job.Slug,
		job.Description,
		job.Email,
		job.Address,
		job.CountryCode,
		job.Company,
		pq.Array(industryStrings(job.Industry)),
		string(job.JobType),
		string(job.MinEducation),
		job.Positions,
		string(job.Experience),
		job.Salary,
		job.PostingDate,
		job.LastDate,
		job.OwnerID,
		job.CreatedAt,
		job.UpdatedAt,
	).Scan(&job.ID); err != nil {
		return types.Job{}, translateError(err)
	}
	return job, nil
}

// Update persists every mutable field. Owner and creation time are kept.
func (r *JobRepository) Update(ctx context.Context, job types.Job) (types.Job, error) {
	job.UpdatedAt = time.Now()

	const query = `
		UPDATE jobs
		SET title = $1,
			slug = $2,
			description = $3,
			email = $4,
			address = $5,
			country_code = $6,
			company = $7,
			industry = $8,
			job_type = $9,
			min_education = $10,
			positions = $11,
			experience = $12,
			salary = $13,
			posting_date = $14,
			last_date = $15,
			updated_at = $16
		WHERE id = $17`
	result, err := r.db.ExecContext(
		ctx,
		query,
		job.Title,
		job.Slug,
		job.Description,
		job.Email,
		job.Address,
		job.CountryCode,
		job.Company,
		pq.Array(industryStrings(job.Industry)),
		string(job.JobType),
		string(job.MinEducation),
		job.Positions,
		string(job.Experience),
		job.Salary,
		job.PostingDate,
		job.LastDate,
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return types.Job{}, translateError(err)
	}
	if err := expectAffected(result); err != nil {
		return types.Job{}, err
	}
	return job, nil
}

func (r *JobRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM jobs WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// DeleteByOwner removes every job the owner published and reports how many.
func (r *JobRepository) DeleteByOwner(ctx context.Context, ownerID int) (int64, error) {
	const query = `DELETE FROM jobs WHERE owner_id = $1`
	result, err := r.db.ExecContext(ctx, query, ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// AddApplicant appends an applicant to a job unless one with the same id is
// already recorded, in which case ErrConflict is returned.
func (r *JobRepository) AddApplicant(ctx context.Context, jobID int, applicant types.Applicant) error {
	if applicant.AppliedAt.IsZero() {
		applicant.AppliedAt = time.Now()
	}

	const query = `
		INSERT INTO job_applicants (job_id, applicant_id, resume, applied_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id, applicant_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, jobID, applicant.ID, applicant.Resume, applicant.AppliedAt)
	if err != nil {
		if errors.Is(translateError(err), ErrReferenced) {
			return ErrNotFound
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *JobRepository) RemoveApplicant(ctx context.Context, jobID, applicantID int) error {
	const query = `DELETE FROM job_applicants WHERE job_id = $1 AND applicant_id = $2`
	result, err := r.db.ExecContext(ctx, query, jobID, applicantID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *JobRepository) queryJobs(ctx context.Context, query string, args ...any) ([]types.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]types.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func scanJob(row rowScanner) (types.Job, error) {
	var job types.Job
	var industry pq.StringArray
	if err := row.Scan(jobDest(&job, &industry)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Job{}, ErrNotFound
		}
		return types.Job{}, err
	}
	job.Industry = toIndustries(industry)
	return job, nil
}

func jobDest(job *types.Job, industry *pq.StringArray) []any {
	return []any{
		&job.ID,
		&job.Title,
		&job.Slug,
		&job.Description,
		&job.Email,
		&job.Address,
		&job.CountryCode,
		&job.Company,
		industry,
		&job.JobType,
		&job.MinEducation,
		&job.Positions,
		&job.Experience,
		&job.Salary,
		&job.PostingDate,
		&job.LastDate,
		&job.OwnerID,
		&job.CreatedAt,
		&job.UpdatedAt,
	}
}

func industryStrings(industries []types.Industry) []string {
	out := make([]string, len(industries))
	for i, industry := range industries {
		out[i] = string(industry)
	}
	return out
}

func toIndustries(values []string) []types.Industry {
	out := make([]types.Industry, len(values))
	for i, value := range values {
		out[i] = types.Industry(value)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}
