package model

// UserRole is carried in access tokens issued by the identity service
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)
