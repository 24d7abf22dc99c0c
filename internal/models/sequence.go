package models

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// SentinelCode stands in for an organisational level that was not selected.
	SentinelCode = "00"
	// DefaultUnitCode is used when a submission's unit has no code.
	DefaultUnitCode = "0"
)

// SequenceKey identifies one study-number sequence. It is comparable and safe to use as a map key.
type SequenceKey struct {
	TypeChar    string `db:"type_char"`
	Year        int    `db:"year"`
	UnitCode    string `db:"unit_code"`
	CollegeCode string `db:"college_code"`
	ProgramCode string `db:"program_code"`
	ProjectCode string `db:"project_code"`
}

// Validate checks that every component is present.
func (k SequenceKey) Validate() error {
	switch k.TypeChar {
	case "R", "I", "P", "E":
	default:
		return fmt.Errorf("invalid type char %q", k.TypeChar)
	}
	if k.Year <= 0 {
		return fmt.Errorf("invalid year %d", k.Year)
	}
	for name, code := range map[string]string{
		"unit":    k.UnitCode,
		"college": k.CollegeCode,
		"program": k.ProgramCode,
		"project": k.ProjectCode,
	} {
		if strings.TrimSpace(code) == "" {
			return fmt.Errorf("empty %s code", name)
		}
		if strings.Contains(code, "-") {
			return fmt.Errorf("%s code %q contains separator", name, code)
		}
	}
	return nil
}

// Prefix renders the key as the leading part of a reference number.
func (k SequenceKey) Prefix() string {
	return strings.Join([]string{
		k.TypeChar,
		strconv.Itoa(k.Year),
		k.UnitCode,
		k.CollegeCode,
		k.ProgramCode,
		k.ProjectCode,
	}, "-")
}

func (k SequenceKey) String() string {
	return k.Prefix()
}

// Less orders keys component by component.
func (k SequenceKey) Less(o SequenceKey) bool {
	if k.TypeChar != o.TypeChar {
		return k.TypeChar < o.TypeChar
	}
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.UnitCode != o.UnitCode {
		return k.UnitCode < o.UnitCode
	}
	if k.CollegeCode != o.CollegeCode {
		return k.CollegeCode < o.CollegeCode
	}
	if k.ProgramCode != o.ProgramCode {
		return k.ProgramCode < o.ProgramCode
	}
	return k.ProjectCode < o.ProjectCode
}

// FormatStudyNumber zero-pads to two digits. Numbers of 100 and above keep all their digits.
func FormatStudyNumber(n int) string {
	return fmt.Sprintf("%02d", n)
}

// ReferenceNumber is the RIPE code attached to an accepted submission.
type ReferenceNumber string

// NewReferenceNumber assembles the code for a key and its study number.
func NewReferenceNumber(key SequenceKey, studyNumber int) ReferenceNumber {
	return ReferenceNumber(key.Prefix() + "-" + FormatStudyNumber(studyNumber))
}

func (r ReferenceNumber) String() string {
	return string(r)
}
