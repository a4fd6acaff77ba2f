package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/staff-records-api/internal/models"
)

// SeniorityInput carries everything the seniority computation depends on.
type SeniorityInput struct {
	Active         bool
	EntryDate      *models.Date
	EligibleStarts []models.Date
}

// Seniority is a whole years and months span.
type Seniority struct {
	Years  int
	Months int
}

func (s Seniority) String() string {
	return FormatSeniority(s.Years, s.Months)
}

// CalendarDiff counts whole calendar months between start and now. A month is only complete once
// now reaches the day of month start fell on, capped at the last day of now's month.
func CalendarDiff(start, now models.Date) Seniority {
	months := (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	anniversary := start.Day()
	if last := daysIn(now.Year(), now.Month()); anniversary > last {
		anniversary = last
	}
	if now.Day() < anniversary {
		months--
	}
	if months < 0 {
		return Seniority{}
	}
	return Seniority{Years: months / 12, Months: months % 12}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ComputeSeniority applies the fallback chain: inactive or no usable start gives zero, the profile
// entry date wins over employment records, a future start gives zero.
func ComputeSeniority(in SeniorityInput, now time.Time) Seniority {
	if !in.Active {
		return Seniority{}
	}
	var start *models.Date
	if in.EntryDate != nil && !in.EntryDate.IsZero() {
		start = in.EntryDate
	} else {
		for i := range in.EligibleStarts {
			candidate := in.EligibleStarts[i]
			if candidate.IsZero() {
				continue
			}
			if start == nil || candidate.Before(*start) {
				start = &candidate
			}
		}
	}
	if start == nil {
		return Seniority{}
	}
	today := models.DateOf(now)
	if start.After(today) {
		return Seniority{}
	}
	return CalendarDiff(*start, today)
}

// FormatSeniority renders "{years}年{months}個月".
func FormatSeniority(years, months int) string {
	return fmt.Sprintf("%d年%d個月", years, months)
}

// AggregateEducationFlags ORs each flag independently over records.
func AggregateEducationFlags(records []models.EducationBackground) models.EducationFlags {
	var flags models.EducationFlags
	for _, r := range records {
		flags.IsMaster = flags.IsMaster || r.IsMaster
		flags.IsPhD = flags.IsPhD || r.IsPhD
		flags.IsOverseasStudy = flags.IsOverseasStudy || r.IsOverseasStudy
	}
	return flags
}

// openEnd stands in for the end of an ongoing employment when comparing intervals.
var openEnd = models.NewDate(9999, time.December, 31)

// DetectEmploymentOverlaps returns one warning per pair of intervals sharing at least one day.
func DetectEmploymentOverlaps(records []models.EmploymentRecord) []models.EmploymentOverlap {
	end := func(r models.EmploymentRecord) models.Date {
		if r.DepartureDate == nil || r.DepartureDate.IsZero() {
			return openEnd
		}
		return *r.DepartureDate
	}

	var overlaps []models.EmploymentOverlap
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			a, b := records[i], records[j]
			if a.EntryDate.Before(end(b)) && end(a).After(b.EntryDate) {
				overlaps = append(overlaps, models.EmploymentOverlap{
					RecordID:      a.ID,
					OtherRecordID: b.ID,
					Message: fmt.Sprintf("employment from %s overlaps employment from %s",
						a.EntryDate.String(), b.EntryDate.String()),
				})
			}
		}
	}
	return overlaps
}
