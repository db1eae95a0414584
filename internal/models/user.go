package models

// User is a staff account that can log in to the admin pages.
type User struct {
	// ID is assigned by the store on creation.
	ID int64

	// Username is matched case-sensitively at login.
	Username string

	// PasswordHash is a bcrypt hash. Plain passwords are never stored.
	PasswordHash string
}
