package web

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/gitsource"
	"github.com/conorfennell/recall/internal/profile"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/conorfennell/recall/internal/sync"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Server holds the dependencies for the HTTP server.
type Server struct {
	db        *storage.DB
	store     *profile.Store
	syncer    *sync.Syncer
	router    *http.ServeMux
	templates *template.Template
	logger    *slog.Logger
	now       func() time.Time
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, store *profile.Store, syncer *sync.Syncer, logger *slog.Logger) (*Server, error) {
	tpl, err := template.New("").Funcs(template.FuncMap{
		"date": func(t time.Time) string { return t.Format(time.DateOnly) },
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:        db,
		store:     store,
		syncer:    syncer,
		router:    http.NewServeMux(),
		templates: tpl,
		logger:    logger,
		now:       time.Now,
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return err
	}
	fileServer := http.FileServer(http.FS(staticFS))

	s.router.Handle("GET /static/", http.StripPrefix("/static/", fileServer))
	s.router.Handle("GET /", fileServer)

	// Study session
	s.router.HandleFunc("GET /deck", s.handleGetDeck)
	s.router.HandleFunc("GET /review/next", s.handleGetNextReview)
	s.router.HandleFunc("GET /review/answer/{id}", s.handleShowAnswer)
	s.router.HandleFunc("POST /review/{id}", s.handlePostReview)

	// Item management
	s.router.HandleFunc("GET /items", s.handleGetItems)
	s.router.HandleFunc("POST /items", s.handlePostItem)
	s.router.HandleFunc("GET /items/{id}", s.handleGetItem)
	s.router.HandleFunc("POST /items/{id}", s.handleEditItem)
	s.router.HandleFunc("DELETE /items/{id}", s.handleDeleteItem)

	// Source management
	s.router.HandleFunc("GET /sources", s.handleGetSources)
	s.router.HandleFunc("POST /sources", s.handlePostSource)
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource)
	s.router.HandleFunc("POST /sync", s.handlePostSync)
	return nil
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("Error rendering template", "template", name, "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// handleGetDeck renders the deck view, showing the number of due items.
func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	due := s.store.Due(s.now(), category)
	s.render(w, "deck", map[string]any{
		"DueCount":    len(due),
		"HasDueCards": len(due) > 0,
		"Category":    category,
		"Categories":  s.store.Categories(),
	})
}

// handleGetNextReview renders the front of the next due item.
func (s *Server) handleGetNextReview(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	due := s.store.Due(s.now(), category)
	if len(due) == 0 {
		s.render(w, "deck", map[string]any{
			"DueCount":    0,
			"HasDueCards": false,
			"Category":    category,
			"Categories":  s.store.Categories(),
		})
		return
	}
	s.render(w, "card_front", map[string]any{
		"Item":     due[0],
		"Category": category,
		"Left":     len(due),
	})
}

// handleShowAnswer renders the back of an item with the rating buttons.
func (s *Server) handleShowAnswer(w http.ResponseWriter, r *http.Request) {
	item, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.render(w, "card_back", map[string]any{
		"Item":     item,
		"Category": r.URL.Query().Get("category"),
		"Ratings":  domain.Ratings(),
	})
}

// handlePostReview grades an item and renders the next one.
func (s *Server) handlePostReview(w http.ResponseWriter, r *http.Request) {
	rating, err := domain.ParseRating(r.PostFormValue("rating"))
	if err != nil {
		http.Error(w, "Invalid rating", http.StatusBadRequest)
		return
	}

	action := profile.ReviewItem{ID: r.PathValue("id"), Rating: rating, At: s.now()}
	if err := s.store.Dispatch(r.Context(), action); err != nil {
		if errors.Is(err, profile.ErrItemNotFound) {
			http.NotFound(w, r)
			return
		}
		s.fail(w, "Error reviewing item", err)
		return
	}

	s.handleGetNextReview(w, r)
}

func (s *Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	s.render(w, "items", map[string]any{"Items": s.store.Snapshot()})
}

// handlePostItem adds a hand-written item and re-renders the item list.
func (s *Server) handlePostItem(w http.ResponseWriter, r *http.Request) {
	item, err := deck.NewItem(deck.Draft{
		Front:    r.PostFormValue("front"),
		Back:     r.PostFormValue("back"),
		Category: r.PostFormValue("category"),
	}, s.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.Dispatch(r.Context(), profile.AddItems{Items: []domain.ReviewItem{item}}); err != nil {
		s.fail(w, "Error adding item", err)
		return
	}
	s.render(w, "item_list", map[string]any{"Items": s.store.Snapshot()})
}

// handleGetItem renders one item with its review history.
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.renderItemDetail(w, r, item)
}

// handleEditItem replaces the text of an item and keeps its schedule.
func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	current, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	edited, err := deck.Edit(current, deck.Draft{
		Front:    r.PostFormValue("front"),
		Back:     r.PostFormValue("back"),
		Category: r.PostFormValue("category"),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.Dispatch(r.Context(), profile.UpdateItem{Item: edited}); err != nil {
		if errors.Is(err, profile.ErrItemNotFound) {
			http.NotFound(w, r)
			return
		}
		s.fail(w, "Error updating item", err)
		return
	}
	item, _ := s.store.Get(edited.ID)
	s.renderItemDetail(w, r, item)
}

func (s *Server) renderItemDetail(w http.ResponseWriter, r *http.Request, item domain.ReviewItem) {
	history, err := s.db.ReviewLogs(r.Context(), item.ID)
	if err != nil {
		s.fail(w, "Error getting review history", err)
		return
	}
	s.render(w, "item_detail", map[string]any{"Item": item, "History": history})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Dispatch(r.Context(), profile.DeleteItem{ID: r.PathValue("id")}); err != nil {
		if errors.Is(err, profile.ErrItemNotFound) {
			http.NotFound(w, r)
			return
		}
		s.fail(w, "Error deleting item", err)
		return
	}
	s.render(w, "item_list", map[string]any{"Items": s.store.Snapshot()})
}

// handleGetSources renders the main sources management page.
func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetAllSources(r.Context())
	if err != nil {
		s.fail(w, "Error getting sources", err)
		return
	}
	s.render(w, "sources", map[string]any{"Sources": sources})
}

// handlePostSource adds a new source and re-renders the source list.
func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.PostFormValue("path"))
	if path == "" {
		http.Error(w, "Path cannot be empty", http.StatusBadRequest)
		return
	}

	sourceType := storage.SourceType(path)
	if sourceType == storage.SourceGit {
		if _, err := gitsource.LocalPath(s.syncer.ReposDir, path); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	existing, err := s.db.FindSourceByPath(r.Context(), path)
	if err != nil {
		s.fail(w, "Error looking up source", err)
		return
	}
	if existing == nil {
		if _, err := s.db.InsertSource(r.Context(), path, sourceType); err != nil {
			s.fail(w, "Error inserting new source", err)
			return
		}
	}
	s.renderSourceList(w, r)
}

// handleDeleteSource deletes a source and re-renders the source list.
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid source ID", http.StatusBadRequest)
		return
	}

	if err := s.store.Dispatch(r.Context(), profile.DetachSource{SourceID: id}); err != nil {
		s.fail(w, "Error detaching items from source", err)
		return
	}
	if err := s.db.DeleteSource(r.Context(), id); err != nil {
		s.fail(w, "Error deleting source", err)
		return
	}
	s.renderSourceList(w, r)
}

// handlePostSync runs a sync in the foreground and re-renders the source list.
func (s *Server) handlePostSync(w http.ResponseWriter, r *http.Request) {
	if _, err := s.syncer.RunSync(r.Context()); err != nil {
		s.fail(w, "Error running sync", err)
		return
	}
	s.render(w, "sync_success", nil)
	s.renderSourceList(w, r)
}

func (s *Server) renderSourceList(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetAllSources(r.Context())
	if err != nil {
		s.fail(w, "Error getting sources", err)
		return
	}
	s.render(w, "source_list", map[string]any{"Sources": sources})
}
