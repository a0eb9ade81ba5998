package resolve

import "html/template"

var articleTmpl = template.Must(template.New("article").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: 'Segoe UI', Tahoma, sans-serif; max-width: 760px; margin: 40px auto; padding: 0 20px; line-height: 1.6; color: #333; }
img.cover { max-width: 100%; border-radius: 10px; margin-bottom: 20px; }
.meta { color: #888; font-size: 0.9rem; }
</style>
</head>
<body>
<article>
{{if .ImageURL}}<img class="cover" src="{{.ImageURL}}" alt="{{.Title}}">{{end}}
<h1>{{.Title}}</h1>
<p class="meta">{{.Date}}{{if .Category}} · {{.Category}}{{end}}{{if .Source}} · <a href="{{.Source}}">source</a>{{end}}</p>
<div class="content">{{.Body}}</div>
</article>
</body>
</html>
`))

var mediaTmpl = template.Must(template.New("media").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Name}}</title>
<style>
body { margin: 0; background: #111; display: flex; align-items: center; justify-content: center; min-height: 100vh; }
img, video { max-width: 100vw; max-height: 100vh; }
</style>
</head>
<body>
{{if .Video}}<video src="{{.URL}}" type="{{.MimeType}}" controls autoplay></video>{{else}}<img src="{{.URL}}" alt="{{.Name}}">{{end}}
</body>
</html>
`))

var notFoundPage = []byte(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Content not found</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 80px 20px;">
<h1>Content not found</h1>
<p>The link you followed does not point to any hosted content.</p>
</body>
</html>
`)

// NotFoundPage is the uniform body for every unresolvable link.
func NotFoundPage() []byte {
	return notFoundPage
}
