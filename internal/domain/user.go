// Package domain contains entity without logic, just meta-data
package domain

const MaxUserIDLen = 36

type UserID string

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}
