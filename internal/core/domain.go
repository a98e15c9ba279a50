package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

type (
	RepetitionTypes string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          string
		Date        Date
		Description string
		Amount      Money
		Primary     string // Primary category
		Secondary   string // Secondary category
		Notes       string
		ReceiptRef  string // Reference to an uploaded receipt, if any
	}

	// Budget is a spending limit for a single month. An empty Category
	// means the budget covers the whole month.
	Budget struct {
		ID       string
		Year     int
		Month    int // 1-12
		Category string
		Amount   Money
	}

	SavingsGoal struct {
		ID       string
		Name     string
		Target   Money
		Saved    Money
		Deadline Date // optional
	}

	RecurringExpense struct {
		ID            string
		StartDate     Date
		EndDate       Date // optional
		Every         RepetitionTypes
		Description   string
		Amount        Money
		Primary       string
		Secondary     string
		LastExecution time.Time
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyPrimary     = errors.New("empty primary category")
	ErrEmptyName        = errors.New("empty name")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero (optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// EntityID implements storage.Record.
func (e Expense) EntityID() string { return e.ID }

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Primary) == "" {
		return ErrEmptyPrimary
	}
	return nil
}

// EntityID implements storage.Record.
func (b Budget) EntityID() string { return b.ID }

func (b Budget) Validate() error {
	if b.Year < 1970 {
		return errors.New("invalid year")
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	return b.Amount.Validate()
}

// EntityID implements storage.Record.
func (g SavingsGoal) EntityID() string { return g.ID }

func (g SavingsGoal) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Saved.Cents < 0 {
		return ErrInvalidAmount
	}
	if !g.Deadline.IsEmpty() {
		if err := g.Deadline.Validate(); err != nil {
			return errors.New("invalid deadline: " + err.Error())
		}
	}
	return nil
}

// EntityID implements storage.Record.
func (re RecurringExpense) EntityID() string { return re.ID }

func (re RecurringExpense) Validate() error {
	if err := re.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}

	if !re.EndDate.IsZero() {
		if err := re.EndDate.Validate(); err != nil {
			return errors.New("invalid end date: " + err.Error())
		}

		// Ensure end date is after start date
		if !re.EndDate.After(re.StartDate.Time) && !re.EndDate.Equal(re.StartDate.Time) {
			return errors.New("end date must be after start date")
		}
	}

	switch re.Every {
	case Daily, Weekly, Monthly, Yearly:
		// Valid repetition types
	default:
		return errors.New("invalid repetition type")
	}

	if len(strings.TrimSpace(re.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(re.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}

	if err := re.Amount.Validate(); err != nil {
		return err
	}

	if strings.TrimSpace(re.Primary) == "" {
		return ErrEmptyPrimary
	}

	return nil
}

// Active reports whether the template should still produce expenses at
// the given time, honoring the optional end date.
func (re RecurringExpense) Active(now time.Time) bool {
	if now.Before(re.StartDate.Time) {
		return false
	}
	if !re.EndDate.IsEmpty() && now.After(re.EndDate.Time.AddDate(0, 0, 1)) {
		return false
	}
	return true
}
