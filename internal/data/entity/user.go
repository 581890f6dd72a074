package entity

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type UserType string

const (
	UserTypeTrekker UserType = "trekker"
	UserTypeGuide   UserType = "guide"
)

// User is the slim identity record this service reads for authorization.
// Account issuance and credentials live in the external identity service.
type User struct {
	Base
	Name     string   `db:"name"`
	Email    string   `db:"email"`
	Role     UserRole `db:"role"`
	UserType UserType `db:"user_type"`
}
