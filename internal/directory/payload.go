package directory

import "github.com/agentstation/contactsync/pkg/contacts"

// payload is the body of create and update requests. The directory's own
// fields are never sent back.
type payload struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Email            string        `json:"email"`
	Description      string        `json:"description"`
	PhoneNumbers     []string      `json:"phone_numbers"`
	AutoCallRecorded contacts.Flag `json:"auto_call_recorded"`
}

func toPayload(c contacts.Contact) payload {
	phones := c.PhoneNumbers
	if phones == nil {
		phones = []string{}
	}
	return payload{
		ID:               c.ID,
		Name:             c.Name,
		Email:            c.Email,
		Description:      c.Description,
		PhoneNumbers:     phones,
		AutoCallRecorded: c.AutoCallRecorded,
	}
}
