// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PersonalData is the structured block the AI collaborator appends to its
// report. Every field is optional; an absent field stays at its zero value.
type PersonalData struct {
	FullName   string `json:"fullName,omitempty" yaml:"full_name,omitempty"`
	CPF        string `json:"cpf,omitempty" yaml:"cpf,omitempty"`
	BirthDate  string `json:"birthDate,omitempty" yaml:"birth_date,omitempty"`
	Location   string `json:"location,omitempty" yaml:"location,omitempty"`
	Occupation string `json:"occupation,omitempty" yaml:"occupation,omitempty"`

	Contact Contact `json:"contact" yaml:"contact"`
	Family  Family  `json:"family" yaml:"family"`
}

// Contact lists the e-mail addresses and phone numbers found for the target.
type Contact struct {
	Emails []string `json:"emails" yaml:"emails"`
	Phones []string `json:"phones" yaml:"phones"`
}

// Family maps the target's relatives.
type Family struct {
	Spouse   string   `json:"spouse,omitempty" yaml:"spouse,omitempty"`
	Children []string `json:"children" yaml:"children"`
	Parents  []string `json:"parents" yaml:"parents"`
	Others   []string `json:"others" yaml:"others"`
}
