package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles
type Role string

const (
	RoleFarmer   Role = "farmer"
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// ParseRole converts a raw string into a Role
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleFarmer, RoleCustomer, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

func (r Role) String() string {
	return string(r)
}

// User represents a marketplace account
type User struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Phone           string    `json:"phone,omitempty"`
	Role            Role      `json:"role"`
	IsActive        bool      `json:"is_active"`
	IsEmailVerified bool      `json:"is_email_verified"`
	FarmName        string    `json:"farm_name,omitempty"`
	FarmLocation    string    `json:"farm_location,omitempty"`
	ProfileImage    string    `json:"profile_image,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsFarmer reports whether the user sells animals
func (u *User) IsFarmer() bool {
	return u.Role == RoleFarmer
}

// FarmerSummary is the public view of a farmer
type FarmerSummary struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	FarmName     string    `json:"farm_name,omitempty"`
	FarmLocation string    `json:"farm_location,omitempty"`
	ProfileImage string    `json:"profile_image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary returns the public farmer view of the user
func (u *User) Summary() FarmerSummary {
	return FarmerSummary{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		FarmName:     u.FarmName,
		FarmLocation: u.FarmLocation,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}

// UserFilter narrows the admin user listing
type UserFilter struct {
	Role   *Role
	Search string
}

// UserStats aggregates account counters for admins
type UserStats struct {
	TotalUsers          int `json:"total_users"`
	TotalFarmers        int `json:"total_farmers"`
	TotalCustomers      int `json:"total_customers"`
	ActiveUsers         int `json:"active_users"`
	InactiveUsers       int `json:"inactive_users"`
	RecentRegistrations int `json:"recent_registrations"`
}

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func (a Actor) IsAdmin() bool    { return a.Role == RoleAdmin }
func (a Actor) IsFarmer() bool   { return a.Role == RoleFarmer }
func (a Actor) IsCustomer() bool { return a.Role == RoleCustomer }
