package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

// rendererBinary is the external HTML-to-PDF engine.
const rendererBinary = "wkhtmltopdf"

// wellKnownRendererPaths are checked when no renderer path is
// configured, before falling back to PATH.
var wellKnownRendererPaths = []string{
	`C:\Program Files\wkhtmltopdf\bin\wkhtmltopdf.exe`,
	"/usr/local/bin/wkhtmltopdf",
	"/usr/bin/wkhtmltopdf",
}

// renderArgs are the fixed page options passed to the renderer.
var renderArgs = []string{
	"--page-size", "A4",
	"--margin-top", "0.75in",
	"--margin-right", "0.75in",
	"--margin-bottom", "0.75in",
	"--margin-left", "0.75in",
	"--encoding", "UTF-8",
	"--no-outline",
	"--enable-local-file-access",
}

// toPDF renders doc to a PDF at outPath through wkhtmltopdf. The HTML
// goes through a temporary file which is removed whether or not
// rendering succeeds.
func (c *Converter) toPDF(ctx context.Context, doc Document, outPath string) error {
	binary, err := c.findRenderer()
	if err != nil {
		return err
	}

	page := doc.HTML
	if doc.BaseURL != "" {
		page = injectBase(page, doc.BaseURL)
	}

	tmp, err := os.CreateTemp("", "imap-file-mover-*.html")
	if err != nil {
		return fmt.Errorf("creating temp html: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(page); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp html: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp html: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	args := append(append([]string{}, renderArgs...), tmpPath, outPath)
	cmd := exec.CommandContext(ctx, binary, args...)

	if out, err := cmd.CombinedOutput(); err != nil {
		return &ConversionError{
			Format:  model.FormatPDF,
			Message: fmt.Sprintf("%s failed: %s", rendererBinary, strings.TrimSpace(string(out))),
			Err:     err,
		}
	}

	c.logger.Debugf("rendered %s", outPath)
	return nil
}

// findRenderer locates the wkhtmltopdf binary: the configured path
// first, then well-known install locations, then PATH.
func (c *Converter) findRenderer() (string, error) {
	candidates := make([]string, 0, len(wellKnownRendererPaths)+1)
	if c.rendererPath != "" {
		candidates = append(candidates, c.rendererPath)
	}
	candidates = append(candidates, wellKnownRendererPaths...)

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if found, err := exec.LookPath(rendererBinary); err == nil {
		return found, nil
	}

	return "", &ConversionError{
		Format:  model.FormatPDF,
		Message: fmt.Sprintf("%s not found; configure wkhtmltopdf_path or install it", rendererBinary),
	}
}

// injectBase adds a <base href> to the document head when none is
// present, so relative resource references resolve during rendering.
func injectBase(page, baseURL string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return page
	}

	var head *html.Node
	var hasBase bool

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Head:
				if head == nil {
					head = n
				}
			case atom.Base:
				hasBase = true
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if hasBase || head == nil {
		return page
	}

	base := &html.Node{
		Type:     html.ElementNode,
		Data:     "base",
		DataAtom: atom.Base,
		Attr:     []html.Attribute{{Key: "href", Val: baseURL}},
	}
	if head.FirstChild != nil {
		head.InsertBefore(base, head.FirstChild)
	} else {
		head.AppendChild(base)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return page
	}
	return buf.String()
}
