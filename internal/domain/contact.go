package domain

// Field names understood by the directory service for contact writes.
const (
	FieldName  = "name"
	FieldEmail = "email"
	FieldPhone = "phone"
	FieldCity  = "city"
)

// ComparableFields lists the contact fields that are diffed against an
// existing directory record. Email is the lookup key and never diffed.
var ComparableFields = []string{FieldName, FieldPhone, FieldCity}

// ContactRecord is a contact as held by one of the external systems.
// ID is empty for records that have not been created yet.
type ContactRecord struct {
	ID         string `json:"id,omitempty"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	Interested bool   `json:"interested"`
}

// Field returns the stored value of a comparable field by name.
func (c ContactRecord) Field(name string) string {
	switch name {
	case FieldName:
		return c.Name
	case FieldEmail:
		return c.Email
	case FieldPhone:
		return c.Phone
	case FieldCity:
		return c.City
	default:
		return ""
	}
}

// ContactFields is a write payload for the directory. Values are the raw
// incoming values, not their normalized form.
type ContactFields map[string]any

// Category is a named tag that can be attached to many contacts.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is the opaque handle returned by a directory login. Each directory
// implementation defines its own concrete type.
type Session any
