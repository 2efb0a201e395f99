package types

// Candidate is an unqualified discovery result. It is never persisted.
type Candidate struct {
	Handle  string   `json:"handle"`
	Title   string   `json:"title,omitempty"`
	Snippet string   `json:"snippet,omitempty"`
	RawText string   `json:"raw_text,omitempty"`
	Contact Contacts `json:"contact,omitempty"`
}

// Contacts holds contact details found on a candidate's page.
type Contacts struct {
	Emails []string `json:"emails,omitempty"`
	Phones []string `json:"phones,omitempty"`
}

// FirstEmail returns the first email found, or "".
func (c Contacts) FirstEmail() string {
	if len(c.Emails) == 0 {
		return ""
	}
	return c.Emails[0]
}

// FirstPhone returns the first phone found, or "".
func (c Contacts) FirstPhone() string {
	if len(c.Phones) == 0 {
		return ""
	}
	return c.Phones[0]
}
