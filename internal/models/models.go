package models

import "time"

// DefaultPhotoPath is the placeholder reference stored for users without a photo
const DefaultPhotoPath = "uploads/default-avatar.png"

// User represents a registered account. Password holds the bcrypt hash.
type User struct {
	ID        int64
	Name      string
	Email     string
	Password  string
	Photo     *string
	CreatedAt time.Time
}

// UserResponse is the outbound projection of a user; it has no password field.
type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Photo     *string   `json:"photo"`
	CreatedAt time.Time `json:"created_at"`
}

// Response projects the user for serialization
func (u *User) Response() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Photo:     u.Photo,
		CreatedAt: u.CreatedAt,
	}
}

// UserUpdate carries the fields to change; nil fields are left untouched.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Photo    *string
}

// Empty reports whether the update changes nothing
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Password == nil && u.Photo == nil
}

// Post represents a post authored by a user
type Post struct {
	ID        int64     `json:"id"`
	Image     *string   `json:"image"`
	Content   *string   `json:"content"`
	City      *string   `json:"city"`
	Country   *string   `json:"country"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
