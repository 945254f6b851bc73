package types

import (
	"errors"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"golang.org/x/text/language"
)

// DefaultApplicationWindow is how long a job accepts applications when no
// last date is given.
const DefaultApplicationWindow = 7 * 24 * time.Hour

// ErrInvalidCountryCode is returned for anything that is not an ISO 3166-1
// alpha-2 country.
var ErrInvalidCountryCode = errors.New("please enter a valid 2 character country code")

// Job represents a listing published by an employer.
type Job struct {
	// ID is the unique identifier of the job.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the position.
	Title string `json:"title" db:"title"`

	// Slug is derived from Title and recomputed whenever the title changes.
	Slug string `json:"slug" db:"slug"`

	Description string `json:"description" db:"description"`

	// Email is an optional contact address for the listing.
	Email string `json:"email,omitempty" db:"email"`

	Address string `json:"address" db:"address"`

	// CountryCode is an upper-case ISO 3166-1 alpha-2 code.
	CountryCode string `json:"countryCode" db:"country_code"`

	Company      string     `json:"company" db:"company"`
	Industry     []Industry `json:"industry" db:"industry"`
	JobType      JobType    `json:"jobType" db:"job_type"`
	MinEducation Education  `json:"minEducation" db:"min_education"`
	Positions    int        `json:"positions" db:"positions"`
	Experience   Experience `json:"experience" db:"experience"`
	Salary       float64    `json:"salary" db:"salary"`

	PostingDate time.Time `json:"postingDate" db:"posting_date"`

	// LastDate is the deadline for applications. Applying at or after it fails.
	LastDate time.Time `json:"lastDate" db:"last_date"`

	// OwnerID references the employer or admin who created the job.
	OwnerID int `json:"user" db:"owner_id"`

	// ApplicantsApplied is only loaded when explicitly requested.
	ApplicantsApplied []Applicant `json:"applicantsApplied,omitempty" db:"-"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Applicant is one entry of a job's application list.
type Applicant struct {
	// ID is the applicant's user id.
	ID int `json:"id" db:"applicant_id"`

	// Resume is the stored file name of the uploaded document.
	Resume string `json:"resume" db:"resume"`

	AppliedAt time.Time `json:"appliedAt" db:"applied_at"`
}

// AppliedJob pairs a job with the resume one applicant submitted to it.
type AppliedJob struct {
	Job    Job    `json:"job"`
	Resume string `json:"resume"`
}

// JobSummary is the short form listed under a user's published jobs.
type JobSummary struct {
	ID          int       `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	PostingDate time.Time `json:"postingDate" db:"posting_date"`
}

// HasApplicant reports whether userID already appears in the application list.
func (j Job) HasApplicant(userID int) bool {
	for _, a := range j.ApplicantsApplied {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// AcceptsApplicationsAt reports whether the job is still open at now.
// A job whose last date precedes its posting date never accepts applications.
func (j Job) AcceptsApplicationsAt(now time.Time) bool {
	if j.LastDate.Before(j.PostingDate) {
		return false
	}
	return now.Before(j.LastDate)
}

// Slugify derives the URL-safe identifier of a job title.
func Slugify(title string) string {
	return slug.Make(title)
}

// NormalizeCountryCode trims and upper-cases code and checks it against the
// ISO 3166-1 country table.
func NormalizeCountryCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return "", ErrInvalidCountryCode
	}
	// ParseRegion canonicalizes retired and alias codes (UK, YU), so the
	// result has to round-trip to count as an ISO 3166-1 entry.
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() || region.String() != code {
		return "", ErrInvalidCountryCode
	}
	return code, nil
}

// Industry is a job category.
type Industry string

const (
	IndustryBusiness          Industry = "Business"
	IndustryIT                Industry = "Information Technology"
	IndustryBanking           Industry = "Banking"
	IndustryEducation         Industry = "Education/Training"
	IndustryTelecommunication Industry = "Telecommunication"
	IndustryMarketing         Industry = "Marketing"
	IndustryAdvertising       Industry = "Advertising"
	IndustryOthers            Industry = "Others"
)

var Industries = []Industry{
	IndustryBusiness,
	IndustryIT,
	IndustryBanking,
	IndustryEducation,
	IndustryTelecommunication,
	IndustryMarketing,
	IndustryAdvertising,
	IndustryOthers,
}

func (i Industry) Valid() bool {
	for _, known := range Industries {
		if i == known {
			return true
		}
	}
	return false
}

type JobType string

const (
	JobTypePermanent  JobType = "Permanent"
	JobTypeTemporary  JobType = "Temporary"
	JobTypeInternship JobType = "Internship"
)

func (t JobType) Valid() bool {
	switch t {
	case JobTypePermanent, JobTypeTemporary, JobTypeInternship:
		return true
	}
	return false
}

type Education string

const (
	EducationBachelors Education = "Bachelors"
	EducationMasters   Education = "Masters"
	EducationPhd       Education = "Phd"
)

func (e Education) Valid() bool {
	switch e {
	case EducationBachelors, EducationMasters, EducationPhd:
		return true
	}
	return false
}

type Experience string

const (
	ExperienceNone      Experience = "No Experience"
	ExperienceOneToTwo  Experience = "1 Year - 2 Years"
	ExperienceTwoToFive Experience = "2 Years - 5 Years"
	ExperienceFivePlus  Experience = "5 Years+"
)

func (e Experience) Valid() bool {
	switch e {
	case ExperienceNone, ExperienceOneToTwo, ExperienceTwoToFive, ExperienceFivePlus:
		return true
	}
	return false
}
