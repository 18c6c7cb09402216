package settings

import "time"

// Kind selects one of the name-keyed settings lists.
type Kind string

const (
	KindChannel       Kind = "channel"
	KindContactMethod Kind = "contact_method"
)

func (k Kind) table() string {
	switch k {
	case KindChannel:
		return "channels"
	case KindContactMethod:
		return "contact_methods"
	}
	return ""
}

func (k Kind) constraint() string {
	return k.table() + "_name_key"
}

// Entry is one option in a settings list.
type Entry struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRequest is the body for adding an entry.
type CreateRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}
