package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const reportCSS = `
body{font-family:Georgia,'Times New Roman',serif;color:#1c1917;max-width:860px;margin:0 auto;padding:2rem 1.5rem;line-height:1.55;background:#fff;}
h1{font-size:1.6rem;border-bottom:2px solid #292524;padding-bottom:0.4rem;}
h2{font-size:1.2rem;margin-top:2rem;border-bottom:1px solid #d6d3d1;padding-bottom:0.25rem;}
h3{font-size:1rem;margin-top:1.25rem;}
table{width:100%;border-collapse:collapse;font-size:0.85rem;margin:0.75rem 0;}
th,td{border:1px solid #a8a29e;padding:0.35rem 0.5rem;text-align:left;vertical-align:top;}
thead th{background:#f5f5f4;font-weight:700;}
code{background:#f5f5f4;padding:0.1rem 0.3rem;border-radius:3px;font-size:0.85em;}
pre{background:#f5f5f4;padding:0.75rem;overflow-x:auto;font-size:0.8rem;border:1px solid #e7e5e4;}
blockquote{border-left:3px solid #a8a29e;margin-left:0;padding-left:1rem;color:#57534e;}
`

// HTMLReport converts a markdown report into a standalone HTML document.
func HTMLReport(title, markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>" + reportCSS + "</style></head><body>" +
		content.String() +
		"</body></html>", nil
}
