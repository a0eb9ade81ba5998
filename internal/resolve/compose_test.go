package resolve

import (
	"strings"
	"testing"

	"github.com/kashifkhan1020/KamiNewMods/internal/model"

	"github.com/stretchr/testify/assert"
)

const page = `<!DOCTYPE html>
<html>
<head>
<title>Demo</title>
</head>
<body>
<h1>Hi</h1>
</body>
</html>`

func TestCompose_InjectsBothSources(t *testing.T) {
	c := Compose(model.Website{
		HTML: page,
		CSS:  "h1 { color: red; }",
		JS:   "console.log('hi');",
	}, "Demo")

	assert.False(t, c.Wrapped)
	assert.Empty(t, c.Missing)
	assert.Contains(t, c.HTML, "<style>\nh1 { color: red; }\n</style>\n</head>")
	assert.Contains(t, c.HTML, "<script>\nconsole.log('hi');\n</script>\n</body>")
	assert.Less(t, strings.Index(c.HTML, "<style>"), strings.Index(c.HTML, "<body>"))
}

func TestCompose_EmptySourcesLeaveHTMLUntouched(t *testing.T) {
	c := Compose(model.Website{HTML: page}, "")
	assert.Equal(t, page, c.HTML)
	assert.Empty(t, c.Missing)
}

func TestCompose_CaseInsensitiveAnchors(t *testing.T) {
	c := Compose(model.Website{
		HTML: "<HTML><HEAD></HEAD><BODY>x</BODY></HTML>",
		CSS:  "p{}",
		JS:   "f()",
	}, "")
	assert.Empty(t, c.Missing)
	assert.Contains(t, c.HTML, "<style>\np{}\n</style>\n</HEAD>")
	assert.Contains(t, c.HTML, "<script>\nf()\n</script>\n</BODY>")
}

func TestCompose_ScriptGoesBeforeLastBody(t *testing.T) {
	doc := "<html><head></head><body><pre>&lt;/body&gt; and </body> inline</pre></body></html>"
	c := Compose(model.Website{HTML: doc, JS: "go()"}, "")
	assert.True(t, strings.HasSuffix(c.HTML, "<script>\ngo()\n</script>\n</body></html>"))
	assert.Equal(t, 1, strings.Count(c.HTML, "<script>"))
}

func TestCompose_MissingAnchors(t *testing.T) {
	// A full document without a head: CSS has nowhere to go.
	doc := "<html><body>content</body></html>"
	c := Compose(model.Website{HTML: doc, CSS: "a{}", JS: "b()"}, "")

	assert.Equal(t, []string{AnchorHead}, c.Missing)
	assert.NotContains(t, c.HTML, "<style>")
	assert.Contains(t, c.HTML, "<script>\nb()\n</script>\n</body>")

	c = Compose(model.Website{HTML: "<html><head></head></html>", CSS: "a{}", JS: "b()"}, "")
	assert.Equal(t, []string{AnchorBody}, c.Missing)
	assert.NotContains(t, c.HTML, "<script>")
}

func TestCompose_WrapsFragments(t *testing.T) {
	c := Compose(model.Website{HTML: "<h1>Only a heading</h1>", CSS: "h1{}", JS: "x()"}, "My <Site>")

	assert.True(t, c.Wrapped)
	assert.Empty(t, c.Missing)
	assert.Contains(t, c.HTML, "<title>My &lt;Site&gt;</title>")
	assert.Contains(t, c.HTML, "<h1>Only a heading</h1>")
	assert.Contains(t, c.HTML, "<style>\nh1{}\n</style>\n</head>")
	assert.Contains(t, c.HTML, "<script>\nx()\n</script>\n</body>")
}
