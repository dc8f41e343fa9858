package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Normal AccountClass = "Normal"
	ISA    AccountClass = "ISA"
)

// DateLayout is the day-month-year format used by the dividend record.
const DateLayout = "02.01.2006"

// dateParseLayout also accepts single digit days and months.
const dateParseLayout = "2.1.2006"

type (
	// AccountClass governs tax exposure. ISA accounts are tax advantaged.
	AccountClass string

	Date struct {
		time.Time
	}

	// DividendEvent is one declared or realized dividend payment.
	DividendEvent struct {
		Date         Date
		Holder       string // person the payment accrues to
		Custodian    string // broker or platform
		AccountClass AccountClass
		Payer        string // company
		Units        int64
		Amount       decimal.Decimal
		Projected    bool
		Line         int // line in the backing record, 0 when unknown
	}
)

var (
	ErrInvalidDay     = errors.New("invalid day")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidUnits   = errors.New("units must be a positive integer")
	ErrEmptyPayer     = errors.New("empty payer")
	ErrZeroDate       = errors.New("date cannot be zero")
	ErrUnknownAccount = errors.New("unknown account type")
)

// AccountClasses lists the valid account classes in display order.
func AccountClasses() []AccountClass {
	return []AccountClass{Normal, ISA}
}

// ParseAccountClass maps the record's accountType value to an AccountClass.
func ParseAccountClass(s string) (AccountClass, error) {
	switch AccountClass(strings.TrimSpace(s)) {
	case Normal:
		return Normal, nil
	case ISA:
		return ISA, nil
	}
	return "", &ValidationError{Field: "accountType", Value: s, Err: ErrUnknownAccount}
}

func (a AccountClass) String() string {
	return string(a)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
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

// String formats the date the way the record stores it.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a DD.MM.YYYY date.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateParseLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (e DividendEvent) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Payer) == "" {
		return ErrEmptyPayer
	}
	if e.Units <= 0 {
		return ErrInvalidUnits
	}
	switch e.AccountClass {
	case Normal, ISA:
	default:
		return ErrUnknownAccount
	}
	return nil
}
