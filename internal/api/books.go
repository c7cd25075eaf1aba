package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/circulation"
	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/search"
	"github.com/erazemk/izposoja/internal/store"
)

// BooksHandler handles catalog endpoints.
type BooksHandler struct {
	DB    *sqlx.DB
	Loans *circulation.Service
}

type bookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Publisher   string `json:"publisher"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
}

func (req bookRequest) validate() error {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" {
		return errors.New("title and author required")
	}
	return nil
}

func (req bookRequest) book() model.Book {
	return model.Book{
		Title:       strings.TrimSpace(req.Title),
		Author:      strings.TrimSpace(req.Author),
		Publisher:   strings.TrimSpace(req.Publisher),
		ISBN:        strings.TrimSpace(req.ISBN),
		Description: req.Description,
	}
}

type bookListEntry struct {
	model.Book
	Borrowed bool `json:"borrowed"`
}

// List handles GET /api/books?field=&q=.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	books, err := search.Books(r.Context(), h.DB, query.Get("field"), query.Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	borrowed, err := h.Loans.BorrowedBookIDs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]bookListEntry, 0, len(books))
	for _, b := range books {
		_, lent := borrowed[b.ID]
		out = append(out, bookListEntry{Book: b, Borrowed: lent})
	}
	jsonResponse(w, http.StatusOK, out)
}

// Borrowed handles GET /api/books/borrowed.
func (h *BooksHandler) Borrowed(w http.ResponseWriter, r *http.Request) {
	set, err := h.Loans.BorrowedBookIDs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	jsonResponse(w, http.StatusOK, ids)
}

// Create handles POST /api/books.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := store.CreateBook(r.Context(), h.DB, req.book())
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("book created", "book", book.ID, "title", book.Title)
	jsonResponse(w, http.StatusCreated, book)
}

// Get handles GET /api/books/{id}.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	loan, err := h.Loans.OpenLoanForBook(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := map[string]any{
		"book":     book,
		"borrowed": loan != nil,
	}
	// Only admins see who holds the book.
	if loan != nil && GetClaims(r.Context()).Role == model.RoleAdmin {
		resp["loan"] = loan
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Update handles PUT /api/books/{id}.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	var req bookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	b := req.book()
	b.ID = id
	if err := store.UpdateBook(r.Context(), h.DB, b); err != nil {
		writeError(w, r, err)
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, book)
}

// Delete handles DELETE /api/books/{id}.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	if err := store.DeleteBook(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("book deleted", "book", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "book deleted"})
}

// UploadCover handles PUT /api/books/{id}/cover. The body is the raw image.
func (h *BooksHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	defer r.Body.Close()
	cover, err := imaging.ProcessCover(r.Body)
	if err != nil {
		switch {
		case errors.Is(err, imaging.ErrTooLarge):
			jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, imaging.ErrUnsupported):
			jsonError(w, http.StatusUnsupportedMediaType, err.Error())
		default:
			jsonError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	if err := store.SetBookCover(r.Context(), h.DB, id, cover.Data, cover.MIME); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("book cover updated", "book", id, "width", cover.Width, "height", cover.Height)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "cover uploaded"})
}

// GetCover handles GET /api/books/{id}/cover.
func (h *BooksHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	data, mime, err := store.GetBookCover(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no cover")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// History handles GET /api/books/{id}/loans.
func (h *BooksHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	loans, err := h.Loans.FindByBook(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(loans))
}
