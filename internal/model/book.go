package model

import "time"

// Book is one physical catalog item. There is exactly one copy per record.
type Book struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Author      string    `json:"author" db:"author"`
	Publisher   string    `json:"publisher" db:"publisher"`
	ISBN        string    `json:"isbn" db:"isbn"`
	Description string    `json:"description,omitempty" db:"description"`
	CoverMime   string    `json:"cover_mime,omitempty" db:"cover_mime"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Book search fields.
const (
	BookFieldTitle     = "title"
	BookFieldAuthor    = "author"
	BookFieldPublisher = "publisher"
	BookFieldISBN      = "isbn"
)

// BookFields lists the searchable book fields in merge order.
var BookFields = []string{BookFieldTitle, BookFieldAuthor, BookFieldPublisher, BookFieldISBN}

// Member search fields.
const (
	MemberFieldName  = "name"
	MemberFieldPhone = "phone"
)

// MemberFields lists the searchable member fields in merge order.
var MemberFields = []string{MemberFieldName, MemberFieldPhone}

// Notice is a board announcement published by an admin.
type Notice struct {
	ID        int64      `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	Content   string     `json:"content" db:"content"`
	Author    string     `json:"author" db:"author"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}
