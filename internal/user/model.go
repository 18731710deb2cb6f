package user

import "time"

// User is a registered patient account with the profile fields the intake
// flow draws on.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	Gender        string    `json:"gender,omitempty"`
	Age           int       `json:"age,omitempty"`
	Comorbidities []string  `json:"comorbidities,omitempty"`
	Medications   []string  `json:"medications,omitempty"`
	Allergies     []string  `json:"allergies,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
