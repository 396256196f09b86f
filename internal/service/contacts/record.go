package contacts

import (
	"strings"

	"github.com/ignite/bulletin-sync/internal/domain"
)

// RawRecord is one incoming record as decoded from the import source.
type RawRecord = map[string]any

// FieldMapping names the keys of a RawRecord.
type FieldMapping struct {
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	City      string
	OptIn     string
}

// DefaultFieldMapping is the key layout of the bulletin signup export.
var DefaultFieldMapping = FieldMapping{
	FirstName: "firstname",
	LastName:  "lastname",
	Email:     "email",
	Mobile:    "mobile",
	City:      "city",
	OptIn:     "climabulletin",
}

// Incoming is a raw record mapped onto directory fields. Phone, City and
// OptIn keep their raw values; Name is derived.
type Incoming struct {
	Email string
	Name  string
	Phone any
	City  any
	OptIn any
}

// Map validates raw and maps it onto directory fields. A record without a
// usable email fails with ErrMissingEmail.
func (m FieldMapping) Map(raw RawRecord) (Incoming, error) {
	email, _ := raw[m.Email].(string)
	if strings.TrimSpace(email) == "" {
		return Incoming{}, ErrMissingEmail
	}

	name := strings.TrimSpace(NormalizeText(raw[m.FirstName]) + " " + NormalizeText(raw[m.LastName]))
	if name == "" {
		name = email
	}

	return Incoming{
		Email: email,
		Name:  name,
		Phone: raw[m.Mobile],
		City:  raw[m.City],
		OptIn: raw[m.OptIn],
	}, nil
}

// value returns the raw incoming value of a comparable field.
func (in Incoming) value(field string) any {
	switch field {
	case domain.FieldName:
		return in.Name
	case domain.FieldEmail:
		return in.Email
	case domain.FieldPhone:
		return in.Phone
	case domain.FieldCity:
		return in.City
	default:
		return nil
	}
}

// createFields is the full write payload for a new contact.
func (in Incoming) createFields() domain.ContactFields {
	fields := domain.ContactFields{
		domain.FieldName:  in.Name,
		domain.FieldEmail: in.Email,
	}
	if in.Phone != nil {
		fields[domain.FieldPhone] = in.Phone
	}
	if in.City != nil {
		fields[domain.FieldCity] = in.City
	}
	return fields
}
