package domain

import "time"

// UserRole distinguishes passengers from drivers.
type UserRole string

const (
	UserRolePassenger UserRole = "passenger"
	UserRoleDriver    UserRole = "driver"
)

// User is a registered passenger or driver.
type User struct {
	ID        string
	Name      string
	Phone     string
	Role      UserRole
	CreatedAt time.Time
}
