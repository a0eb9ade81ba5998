package web

import (
	"errors"
	"html/template"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/kashifkhan1020/KamiNewMods/internal/intake"
	"github.com/kashifkhan1020/KamiNewMods/internal/model"
	"github.com/kashifkhan1020/KamiNewMods/internal/resolve"
	"github.com/kashifkhan1020/KamiNewMods/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>File Hosting</title>
<style>
body { font-family: 'Segoe UI', Tahoma, sans-serif; max-width: 960px; margin: 30px auto; padding: 0 20px; color: #333; }
.flash { background: #eef7ee; border: 1px solid #9c9; padding: 10px; border-radius: 6px; }
table { width: 100%; border-collapse: collapse; }
td, th { text-align: left; padding: 6px 8px; border-bottom: 1px solid #eee; }
</style>
</head>
<body>
<h1>File Hosting</h1>
{{with .Flash}}<p class="flash">{{.}}</p>{{end}}
<form method="POST" action="/add">
<input name="link" placeholder="https://..." required>
<input name="name" placeholder="Name">
<input name="category" placeholder="Category">
<input name="size" placeholder="Size">
<button type="submit">Share Link</button>
</form>
<form method="POST" action="/upload" enctype="multipart/form-data">
<input type="file" name="file">
<button type="submit">Upload</button>
</form>
{{range .Groups}}
<h2>{{.Title}} ({{len .Items}})</h2>
<table>
{{range .Items}}<tr><td><a href="{{.Link}}">{{.Item.Name}}</a></td><td>{{.Item.Category}}</td><td>{{.Size}}</td><td>{{.Item.CreatedAt.Format "2006-01-02 15:04"}}</td></tr>
{{else}}<tr><td colspan="4">Nothing here yet.</td></tr>
{{end}}</table>
{{end}}
</body>
</html>
`))

type dashboardRow struct {
	Item model.Item
	Link string
	Size string
}

type dashboardGroup struct {
	Title string
	Items []dashboardRow
}

var groupTitles = map[model.Kind]string{
	model.KindWebsite: "Websites",
	model.KindArticle: "Articles",
	model.KindMedia:   "Media",
	model.KindArchive: "Downloads",
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	req, err := resolve.ParseQuery(r.URL.Query())
	switch {
	case err == nil:
		s.serveResolution(w, r, req)
		return
	case errors.Is(err, resolve.ErrNoRequest):
		s.serveDashboard(w, r)
		return
	default:
		s.writeError(w, err)
	}
}

func (s *Server) serveDashboard(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context(), "")
	if err != nil {
		s.logger.Error("Failed to list items", zap.Error(err))
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	byKind := make(map[model.Kind][]dashboardRow)
	for _, it := range items {
		row := dashboardRow{Item: it, Link: resolve.ShareLink(&it)}
		if it.Archive != nil {
			row.Size = it.Archive.SizeLabel
		}
		byKind[it.Kind] = append(byKind[it.Kind], row)
	}
	groups := make([]dashboardGroup, 0, len(model.Kinds))
	for _, kind := range model.Kinds {
		groups = append(groups, dashboardGroup{Title: groupTitles[kind], Items: byKind[kind]})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := map[string]interface{}{
		"Flash":  s.flash.pop(r),
		"Groups": groups,
	}
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
	}
}

// handleAdd is the dashboard's share-link form.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	link := r.FormValue("link")
	if link == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	item, err := s.intake.AddLink(r.Context(), intake.LinkRequest{
		Name:      r.FormValue("name"),
		Category:  r.FormValue("category"),
		SizeLabel: r.FormValue("size"),
		Link:      link,
	})
	if err != nil {
		s.logger.Error("Failed to add link", zap.Error(err))
		s.flash.set(r, "❌ Failed to add link: "+err.Error())
	} else {
		s.flash.set(r, "✅ Link added: "+item.Name)
	}

	// Redirect back home
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleView serves /view/{kind}/{key}, the path form of a share link.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, err := model.ParseKind(vars["kind"])
	if err != nil {
		s.notFound(w)
		return
	}

	req := resolve.Request{Mode: resolve.ModeForKind(kind), Key: vars["key"]}
	if vars["kind"] == "image" || vars["kind"] == "imagelink" {
		req.Mode = resolve.ModeImage
	}
	if raw := r.URL.Query().Get("file"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 {
			http.Error(w, "invalid file index", http.StatusBadRequest)
			return
		}
		req.FileIndex = idx
	}
	s.serveResolution(w, r, req)
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		s.notFound(w)
		return
	}
	res, err := s.resolver.OpenFile(r.Context(), vars["id"], index)
	if err != nil {
		s.resolutionError(w, err)
		return
	}
	s.writeResult(w, r, res)
}

func (s *Server) serveResolution(w http.ResponseWriter, r *http.Request, req resolve.Request) {
	res, err := s.resolver.Resolve(r.Context(), req)
	if err != nil {
		s.resolutionError(w, err)
		return
	}
	s.writeResult(w, r, res)
}

func (s *Server) resolutionError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.notFound(w)
		return
	}
	s.writeError(w, err)
}

// notFound is the one response for every unresolvable link.
func (s *Server) notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write(resolve.NotFoundPage())
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, res *resolve.Result) {
	if res.Redirect != "" {
		http.Redirect(w, r, res.Redirect, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	if res.Blob == nil {
		w.Write(res.Body)
		return
	}
	defer res.Blob.Close()

	disposition := "inline"
	if res.Attachment {
		disposition = "attachment"
	}
	if res.Filename != "" {
		if v := mime.FormatMediaType(disposition, map[string]string{"filename": res.Filename}); v != "" {
			disposition = v
		}
	}
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if res.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(res.Size, 10))
	}
	if _, err := io.Copy(w, res.Blob); err != nil {
		s.logger.Warn("Blob stream interrupted", zap.Error(err))
	}
}
