// internal/models/common.go
package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Base model with common fields. IDs are integers because vendors quote
// them back to us as "RFP-<id>".
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const DateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v)
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
	return nil
}

func (d *Date) scanString(s string) error {
	if len(s) >= len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (Date) GormDataType() string {
	return "date"
}

// Enums
type RFPStatus string

const (
	RFPStatusDraft     RFPStatus = "draft"
	RFPStatusSent      RFPStatus = "sent"
	RFPStatusResponded RFPStatus = "responded"
	RFPStatusClosed    RFPStatus = "closed"
)

func (s RFPStatus) Valid() bool {
	switch s {
	case RFPStatusDraft, RFPStatusSent, RFPStatusResponded, RFPStatusClosed:
		return true
	}
	return false
}

type AssociationStatus string

const (
	AssociationStatusPending   AssociationStatus = "pending"
	AssociationStatusSent      AssociationStatus = "sent"
	AssociationStatusResponded AssociationStatus = "responded"
)

type EmailDirection string

const (
	EmailDirectionIncoming EmailDirection = "incoming"
	EmailDirectionOutgoing EmailDirection = "outgoing"
)

type EmailStatus string

const (
	EmailStatusSent      EmailStatus = "sent"
	EmailStatusFailed    EmailStatus = "failed"
	EmailStatusProcessed EmailStatus = "processed"
)
