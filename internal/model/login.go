package model

import "time"

// LoginRecord is one successful sign-in.
type LoginRecord struct {
	ID        int64         `json:"id" db:"id"`
	UserType  RecipientType `json:"user_type" db:"user_type"`
	UserID    int64         `json:"user_id" db:"user_id"`
	Username  string        `json:"username" db:"username"`
	IPAddress string        `json:"ip_address" db:"ip_address"`
	LoginTime time.Time     `json:"login_time" db:"login_time"`
}
