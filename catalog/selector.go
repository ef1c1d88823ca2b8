package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shiro46mt/jp-medicine-master/errs"
)

type selectorKind int

const (
	selectLatest selectorKind = iota
	selectDate
	selectFiscalYear
	selectRevision
)

// Selector picks one snapshot in time. The zero value selects the latest file.
type Selector struct {
	kind selectorKind
	date string
	year int
}

// Latest selects the most recent file.
func Latest() Selector { return Selector{} }

// OnDate selects the newest file valid on date (YYYYMMDD).
func OnDate(date string) Selector { return Selector{kind: selectDate, date: date} }

// FiscalYear selects the year-end snapshot of fiscal year y (April y to March y+1).
func FiscalYear(y int) Selector { return Selector{kind: selectFiscalYear, year: y} }

// RevisionYear selects the newest file published under the price revision of year k.
func RevisionYear(k int) Selector { return Selector{kind: selectRevision, year: k} }

// Choose honors at most one of the inputs, in the order date > fiscal year > revision year.
// Zero values mean "not given".
func Choose(date string, year, revision int) Selector {
	switch {
	case date != "":
		return OnDate(date)
	case year != 0:
		return FiscalYear(year)
	case revision != 0:
		return RevisionYear(revision)
	default:
		return Latest()
	}
}

// ParseSelector builds a selector from raw text inputs (query parameters, CLI flags).
func ParseSelector(date, year, revision string) (Selector, error) {
	date = strings.TrimSpace(date)
	if date != "" {
		if err := ValidateDate(date); err != nil {
			return Selector{}, err
		}
		return OnDate(date), nil
	}

	y, err := parseYear("year", year)
	if err != nil {
		return Selector{}, err
	}
	k, err := parseYear("kaitei", revision)
	if err != nil {
		return Selector{}, err
	}
	return Choose("", y, k), nil
}

// ValidateDate checks that s is a real calendar date in YYYYMMDD form.
func ValidateDate(s string) error {
	if len(s) != 8 || !isDigits(s) {
		return fmt.Errorf("%w: date must be YYYYMMDD, got %q", errs.ErrInvalidSelector, s)
	}
	if _, err := time.Parse("20060102", s); err != nil {
		return fmt.Errorf("%w: date %q is not a calendar date", errs.ErrInvalidSelector, s)
	}
	return nil
}

func parseYear(name, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1900 || y > 9999 {
		return 0, fmt.Errorf("%w: %s must be a 4-digit year, got %q", errs.ErrInvalidSelector, name, s)
	}
	return y, nil
}

// IsLatest reports whether no temporal constraint is set.
func (s Selector) IsLatest() bool { return s.kind == selectLatest }

// Date returns the exact date, if this selector is a date selector.
func (s Selector) Date() (string, bool) { return s.date, s.kind == selectDate }

// Year returns the fiscal year, if this selector is a fiscal-year selector.
func (s Selector) Year() (int, bool) { return s.year, s.kind == selectFiscalYear }

// Revision returns the revision year, if this selector is a revision selector.
func (s Selector) Revision() (int, bool) { return s.year, s.kind == selectRevision }

func (s Selector) String() string {
	switch s.kind {
	case selectDate:
		return "date=" + s.date
	case selectFiscalYear:
		return "year=" + strconv.Itoa(s.year)
	case selectRevision:
		return "kaitei=" + strconv.Itoa(s.year)
	default:
		return "latest"
	}
}
