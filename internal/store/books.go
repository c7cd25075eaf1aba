package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
)

const bookColumns = `id, title, author, publisher, isbn, description,
	COALESCE(cover_mime, '') AS cover_mime, created_at`

// bookSearchColumns maps a search field to its column. ISBNs are matched
// without dashes; text fields are compared case-insensitively.
var bookSearchColumns = map[string]string{
	model.BookFieldTitle:     "fold(title)",
	model.BookFieldAuthor:    "fold(author)",
	model.BookFieldPublisher: "fold(publisher)",
	model.BookFieldISBN:      "REPLACE(isbn, '-', '')",
}

// CreateBook creates a new book.
func CreateBook(ctx context.Context, q sqlx.ExtContext, b model.Book) (*model.Book, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO books (title, author, publisher, isbn, description) VALUES (?, ?, ?, ?, ?)`,
		b.Title, b.Author, b.Publisher, b.ISBN, b.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting book id: %w", err)
	}

	return GetBook(ctx, q, id)
}

// GetBook returns a book by ID, or nil if it does not exist.
func GetBook(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Book, error) {
	var b model.Book
	err := sqlx.GetContext(ctx, q, &b, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting book: %w", err)
	}
	return &b, nil
}

// ListBooks returns all books ordered by ID.
func ListBooks(ctx context.Context, q sqlx.QueryerContext) ([]model.Book, error) {
	var books []model.Book
	if err := sqlx.SelectContext(ctx, q, &books, `SELECT `+bookColumns+` FROM books ORDER BY id`); err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	return books, nil
}

// SearchBooksByField returns books whose field contains keyword.
func SearchBooksByField(ctx context.Context, q sqlx.QueryerContext, field, keyword string) ([]model.Book, error) {
	column, ok := bookSearchColumns[field]
	if !ok {
		return nil, fmt.Errorf("unknown book search field %q", field)
	}

	var books []model.Book
	err := sqlx.SelectContext(ctx, q, &books,
		`SELECT `+bookColumns+` FROM books
		 WHERE instr(`+column+`, ?) > 0
		 ORDER BY id`, normalizeKeyword(field, keyword),
	)
	if err != nil {
		return nil, fmt.Errorf("searching books by %s: %w", field, err)
	}
	return books, nil
}

// UpdateBook updates a book's catalog metadata.
func UpdateBook(ctx context.Context, q sqlx.ExecerContext, b model.Book) error {
	result, err := q.ExecContext(ctx,
		`UPDATE books SET title = ?, author = ?, publisher = ?, isbn = ?, description = ?
		 WHERE id = ?`,
		b.Title, b.Author, b.Publisher, b.ISBN, b.Description, b.ID,
	)
	if err != nil {
		return fmt.Errorf("updating book: %w", err)
	}
	return expectRow(result, "book")
}

// DeleteBook removes a book and its closed loan history. A book that is
// currently lent or requested cannot be removed.
func DeleteBook(ctx context.Context, db *sqlx.DB, id int64) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	open, err := GetOpenLoanByBook(ctx, tx, id)
	if err != nil {
		return err
	}
	if open != nil {
		return fmt.Errorf("book %d has an open loan: %w", id, model.ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE book_id = ?`, id); err != nil {
		return fmt.Errorf("deleting book loans: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	if err := expectRow(result, "book"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing book deletion: %w", err)
	}
	return nil
}

// SetBookCover sets a book's cover image data.
func SetBookCover(ctx context.Context, q sqlx.ExecerContext, id int64, image []byte, mime string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE books SET cover = ?, cover_mime = ? WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting book cover: %w", err)
	}
	return expectRow(result, "book")
}

// GetBookCover returns a book's cover image data and MIME type.
func GetBookCover(ctx context.Context, q sqlx.QueryerContext, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := q.QueryRowxContext(ctx,
		`SELECT cover, cover_mime FROM books WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting book cover: %w", err)
	}
	return image, mime.String, nil
}
