package web

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/kashifkhan1020/KamiNewMods/internal/intake"
	"github.com/kashifkhan1020/KamiNewMods/internal/model"
	"github.com/kashifkhan1020/KamiNewMods/internal/queue"
	"github.com/kashifkhan1020/KamiNewMods/internal/resolve"
	"github.com/kashifkhan1020/KamiNewMods/internal/telegram"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AdminHeader carries the shared secret on privileged API calls.
const AdminHeader = "X-Admin-Secret"

// WebhookSecretHeader is set by Telegram when the webhook was registered
// with a secret_token.
const WebhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type itemView struct {
	*model.Item
	ShareURL string `json:"share_url"`
}

func viewOf(it *model.Item) itemView {
	return itemView{Item: it, ShareURL: resolve.ShareLink(it)}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func kindVar(r *http.Request) (model.Kind, error) {
	kind, err := model.ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		return "", fmt.Errorf("%w: %w", intake.ErrInvalidFormat, err)
	}
	return kind, nil
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	var kind model.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, err := model.ParseKind(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		kind = k
	}
	items, err := s.store.List(r.Context(), kind)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]itemView, len(items))
	for i := range items {
		views[i] = viewOf(&items[i])
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	kind, err := kindVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	item, err := s.store.Get(r.Context(), kind, mux.Vars(r)["key"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(item))
}

// createRequest is the JSON body of POST /api/items/{kind}; which fields
// apply depends on the kind.
type createRequest struct {
	Slug        string              `json:"slug"`
	Name        string              `json:"name"`
	Category    string              `json:"category"`
	Description string              `json:"description"`
	Link        string              `json:"link"`
	Size        string              `json:"size"`
	HTML        string              `json:"html"`
	CSS         string              `json:"css"`
	JS          string              `json:"js"`
	Title       string              `json:"title"`
	Body        string              `json:"body"`
	Format      model.ArticleFormat `json:"format"`
	Source      string              `json:"source"`
	Excerpt     string              `json:"excerpt"`
}

// submittedFormat refuses raw HTML bodies; those only come from the
// readability import.
func submittedFormat(raw model.ArticleFormat) (model.ArticleFormat, error) {
	if raw == model.FormatHTML {
		return "", fmt.Errorf("%w: html articles are created by import only", intake.ErrInvalidFormat)
	}
	return raw, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	kind, err := kindVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var item *model.Item
	if isMultipart(r) {
		item, err = s.createFromForm(w, r, kind)
	} else {
		item, err = s.createFromJSON(r, kind)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(item))
}

func (s *Server) createFromJSON(r *http.Request, kind model.Kind) (*model.Item, error) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: decode body: %w", intake.ErrInvalidFormat, err)
	}

	ctx := r.Context()
	switch kind {
	case model.KindWebsite:
		return s.intake.AddWebsite(ctx, intake.WebsiteRequest{
			Slug: req.Slug, Name: req.Name, HTML: req.HTML, CSS: req.CSS, JS: req.JS,
		})
	case model.KindArticle:
		format, err := submittedFormat(req.Format)
		if err != nil {
			return nil, err
		}
		return s.intake.AddArticle(ctx, intake.ArticleRequest{
			Slug:     req.Slug,
			Category: req.Category,
			Title:    req.Title,
			Body:     req.Body,
			Format:   format,
			Source:   req.Source,
			Excerpt:  req.Excerpt,
		})
	case model.KindArchive:
		return s.intake.AddLink(ctx, intake.LinkRequest{
			Slug:        req.Slug,
			Name:        req.Name,
			Category:    req.Category,
			SizeLabel:   req.Size,
			Description: req.Description,
			Link:        req.Link,
		})
	}
	return nil, fmt.Errorf("%w: %s items need a multipart upload", intake.ErrInvalidFormat, kind)
}

func (s *Server) createFromForm(w http.ResponseWriter, r *http.Request, kind model.Kind) (*model.Item, error) {
	if err := s.parseMultipart(w, r); err != nil {
		return nil, fmt.Errorf("%w: %w", intake.ErrInvalidFormat, err)
	}
	defer r.MultipartForm.RemoveAll()

	ups, closeAll := uploadsFrom(r, "file")
	defer closeAll()

	ctx := r.Context()
	switch kind {
	case model.KindMedia:
		return s.intake.AddMedia(ctx, intake.MediaRequest{
			Slug:     r.FormValue("slug"),
			Name:     r.FormValue("name"),
			Category: r.FormValue("category"),
			Files:    ups,
		})
	case model.KindArchive:
		return s.intake.AddArchive(ctx, intake.ArchiveRequest{
			Slug:        r.FormValue("slug"),
			Name:        r.FormValue("name"),
			Category:    r.FormValue("category"),
			Description: r.FormValue("description"),
			Files:       ups,
		})
	case model.KindArticle:
		format, err := submittedFormat(model.ArticleFormat(r.FormValue("format")))
		if err != nil {
			return nil, err
		}
		req := intake.ArticleRequest{
			Slug:     r.FormValue("slug"),
			Category: r.FormValue("category"),
			Title:    r.FormValue("title"),
			Body:     r.FormValue("body"),
			Format:   format,
			Source:   r.FormValue("source"),
		}
		images, closeImages := uploadsFrom(r, "image")
		defer closeImages()
		if len(images) > 0 {
			req.Image = &images[0]
		}
		return s.intake.AddArticle(ctx, req)
	case model.KindWebsite:
		return s.intake.AddWebsite(ctx, intake.WebsiteRequest{
			Slug: r.FormValue("slug"),
			Name: r.FormValue("name"),
			HTML: r.FormValue("html"),
			CSS:  r.FormValue("css"),
			JS:   r.FormValue("js"),
		})
	}
	return nil, fmt.Errorf("%w: unknown kind %s", intake.ErrInvalidFormat, kind)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.Check(r.Header.Get(AdminHeader)); err != nil {
		s.metrics.AdminDenied("http")
		s.logger.Warn("Rejected delete", zap.String("remote", r.RemoteAddr))
		s.writeError(w, err)
		return
	}
	kind, err := kindVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	removed, err := s.intake.Remove(r.Context(), kind, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(removed))
}

type importRequest struct {
	URL      string `json:"url"`
	Slug     string `json:"slug"`
	Category string `json:"category"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		http.Error(w, "article import is not enabled", http.StatusServiceUnavailable)
		return
	}
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}
	if req.Slug != "" && !model.ValidSlug(req.Slug) {
		http.Error(w, model.ErrInvalidSlug.Error(), http.StatusBadRequest)
		return
	}

	job := queue.ImportJob{URL: req.URL, Slug: req.Slug, Category: req.Category}
	if err := s.queue.Push(r.Context(), job); err != nil {
		s.logger.Error("Failed to queue import", zap.Error(err))
		http.Error(w, "Failed to queue", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "url": req.URL})
}

// handleWebhook accepts Telegram updates. It always answers 200 once the
// update decodes so Telegram does not redeliver it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.bot == nil {
		http.NotFound(w, r)
		return
	}
	if s.webhookSecret != "" &&
		subtle.ConstantTimeCompare([]byte(r.Header.Get(WebhookSecretHeader)), []byte(s.webhookSecret)) != 1 {
		s.metrics.AdminDenied("webhook")
		s.logger.Warn("Rejected webhook call", zap.String("remote", r.RemoteAddr))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var u telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}
	if err := s.bot.HandleUpdate(r.Context(), u); err != nil {
		s.logger.Error("Failed to handle update", zap.Int64("update_id", u.UpdateID), zap.Error(err))
	}
	w.WriteHeader(http.StatusOK)
}
