package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Income PaymentType = iota
	Expense
)

const (
	Weekly Frequency = iota
	BiWeekly
	Monthly
	BiMonthly
	Quarterly
	Annually
)

const (
	Fixed Category = iota
	Mandatory
	Discretionary
	Variable
	Optional
	Target
)

// FrequencyInput selects how ParseFrequency reads its input.
const (
	FrequencyCode FrequencyInput = iota // short code: W, B, M, BI, Q, A
	FrequencyName                       // enum name: Weekly, BiWeekly, ...
)

type (
	PaymentType    int
	Frequency      int
	Category       int
	FrequencyInput int
)

var (
	ErrUnrecognizedFrequency = errors.New("unrecognized frequency")
	ErrUnrecognizedCategory  = errors.New("unrecognized category")
	ErrUnrecognizedType      = errors.New("unrecognized payment type")
)

var paymentTypeNames = [...]string{"Income", "Expense"}

var frequencyNames = [...]string{"Weekly", "BiWeekly", "Monthly", "BiMonthly", "Quarterly", "Annually"}

// frequencyCodes is the short-code table used by the income and expense constructors.
var frequencyCodes = map[string]Frequency{
	"W":  Weekly,
	"B":  BiWeekly,
	"M":  Monthly,
	"BI": BiMonthly,
	"Q":  Quarterly,
	"A":  Annually,
}

var categoryNames = [...]string{"Fixed", "Mandatory", "Discretionary", "Variable", "Optional", "Target"}

func (t PaymentType) String() string {
	if t < 0 || int(t) >= len(paymentTypeNames) {
		return fmt.Sprintf("PaymentType(%d)", int(t))
	}
	return paymentTypeNames[t]
}

// IsValid reports whether t is Income or Expense.
func (t PaymentType) IsValid() bool {
	return t == Income || t == Expense
}

func (f Frequency) String() string {
	if f < 0 || int(f) >= len(frequencyNames) {
		return fmt.Sprintf("Frequency(%d)", int(f))
	}
	return frequencyNames[f]
}

// Code returns the short code for f, or "" when f is out of range.
func (f Frequency) Code() string {
	for code, v := range frequencyCodes {
		if v == f {
			return code
		}
	}
	return ""
}

// IsValid reports whether f is one of the six known frequencies.
func (f Frequency) IsValid() bool {
	return f >= Weekly && f <= Annually
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// IsValid reports whether c is one of the six known categories.
func (c Category) IsValid() bool {
	return c >= Fixed && c <= Target
}

// ParseFrequency resolves a frequency from either a short code or a full
// enum name. Matching is case-insensitive and ignores surrounding spaces.
func ParseFrequency(value string, kind FrequencyInput) (Frequency, error) {
	v := strings.TrimSpace(value)
	switch kind {
	case FrequencyCode:
		if f, ok := frequencyCodes[strings.ToUpper(v)]; ok {
			return f, nil
		}
	case FrequencyName:
		for i, name := range frequencyNames {
			if strings.EqualFold(name, v) {
				return Frequency(i), nil
			}
		}
	default:
		return 0, fmt.Errorf("unknown frequency input kind %d", int(kind))
	}
	return 0, fmt.Errorf("%w: %q", ErrUnrecognizedFrequency, value)
}

// ParseCategory resolves a category by name, case-insensitive.
func ParseCategory(value string) (Category, error) {
	v := strings.TrimSpace(value)
	for i, name := range categoryNames {
		if strings.EqualFold(name, v) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnrecognizedCategory, value)
}

// ParsePaymentType resolves "income" or "expense", case-insensitive.
func ParsePaymentType(value string) (PaymentType, error) {
	v := strings.TrimSpace(value)
	for i, name := range paymentTypeNames {
		if strings.EqualFold(name, v) {
			return PaymentType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnrecognizedType, value)
}
