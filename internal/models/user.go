package models

// User is the authenticated profile returned by the /user endpoints
type User struct {
	ID        string `json:"_id,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	EmailID   string `json:"emailId"`
	Role      string `json:"role,omitempty"`
}

// DisplayName returns the best human-readable name for the user
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.EmailID
}

// LoginRequest is the body of POST /user/login
type LoginRequest struct {
	EmailID  string `json:"emailId"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /user/register
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	EmailID   string `json:"emailId"`
	Password  string `json:"password"`
}

// AuthResponse is returned by check, login and register
type AuthResponse struct {
	User    *User  `json:"user"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success,omitempty"`
}

// MessageResponse is a generic {success, message} body
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
