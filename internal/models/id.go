package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID is an opaque entity identifier. Values are canonical UUID strings.
type ID string

// NewID returns a fresh random identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// ParseID validates raw as an identifier and returns its canonical form.
func ParseID(raw string) (ID, error) {
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid id %q: %w", raw, err)
	}
	return ID(u.String()), nil
}

func (id ID) String() string { return string(id) }

// IsZero reports whether id is unset.
func (id ID) IsZero() bool { return id == "" }

// Equal compares two identifiers.
func (id ID) Equal(other ID) bool { return id == other }

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) {
	return string(id), nil
}

// Scan implements sql.Scanner.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*id = ID(v)
	case []byte:
		*id = ID(string(v))
	case nil:
		*id = ""
	default:
		return fmt.Errorf("cannot scan %T into models.ID", src)
	}
	return nil
}
