package convert

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/fetch"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/sanitize"
)

// resourceDirName holds downloaded images next to the markdown file.
const resourceDirName = "_resources"

// strippedElements are removed wholesale before conversion.
var strippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"meta":   true,
	"link":   true,
	"head":   true,
}

// droppedAttrPattern matches presentation and accessibility attributes
// that only add noise to markdown output.
var droppedAttrPattern = regexp.MustCompile(`^(id|data-.*|aria-.*|role|tabindex|dir|lang)$`)

var (
	blankRunPattern = regexp.MustCompile(`\n{3,}`)
	trailingPattern = regexp.MustCompile(`[ \t]+\n`)
	intraRunPattern = regexp.MustCompile(`(\S)[ \t]{2,}`)
)

// CSS fragments that leak through conversion when style content ends
// up in text nodes. Applied in order: media blocks first, then id
// selector blocks, then bare rule bodies.
var (
	mediaBlockPattern = regexp.MustCompile(`@media[^{]*\{[^}]*\}`)
	idBlockPattern    = regexp.MustCompile(`#[\w-]+\s*\{[^}]*\}`)
	cssRulePattern    = regexp.MustCompile(`\{[^}]*\}`)
)

// toMarkdown cleans doc's HTML, downloads referenced images into a
// _resources directory beside outPath, converts to markdown, and
// writes the result with doc.Frontmatter prepended.
func (c *Converter) toMarkdown(ctx context.Context, doc Document, outPath string) error {
	root, err := html.Parse(strings.NewReader(doc.HTML))
	if err != nil {
		return &ConversionError{
			Format:  model.FormatMarkdown,
			Message: "parsing html",
			Err:     err,
		}
	}

	images := c.downloadImages(ctx, root, doc.BaseURL, filepath.Dir(outPath))

	stripElements(root)
	stripAttributes(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return &ConversionError{
			Format:  model.FormatMarkdown,
			Message: "rendering cleaned html",
			Err:     err,
		}
	}

	cleaned := blankRunPattern.ReplaceAllString(buf.String(), "\n\n")

	markdown, err := htmltomarkdown.ConvertString(cleaned)
	if err != nil {
		return &ConversionError{
			Format:  model.FormatMarkdown,
			Message: "converting to markdown",
			Err:     err,
		}
	}

	markdown = rewriteImageEmbeds(markdown, images)
	markdown = normalizeWhitespace(markdown)
	markdown = stripCSSLeftovers(markdown)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	content := doc.Frontmatter + markdown
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	return nil
}

// downloadImages saves every non-data image referenced by the tree
// into outDir/_resources and returns the source-URL to local-filename
// mapping. Download failures are logged and skipped, never fatal.
func (c *Converter) downloadImages(ctx context.Context, root *html.Node, baseURL, outDir string) map[string]string {
	srcs := imageSources(root)
	if len(srcs) == 0 {
		return nil
	}

	resourceDir := filepath.Join(outDir, resourceDirName)
	images := make(map[string]string)
	stamp := time.Now().Format("20060102150405")

	for _, src := range srcs {
		if _, done := images[src]; done {
			continue
		}

		resolved := src
		if baseURL != "" {
			r, err := fetch.Resolve(baseURL, src)
			if err != nil {
				c.logger.Warnf("skipping image %s: %v", src, err)
				continue
			}
			resolved = r
		}

		data, err := c.downloader.Download(ctx, resolved)
		if err != nil {
			c.logger.Warnf("downloading image %s: %v", resolved, err)
			continue
		}

		if err := os.MkdirAll(resourceDir, 0o755); err != nil {
			c.logger.Warnf("creating %s: %v", resourceDir, err)
			return images
		}

		// Collision suffixing keeps names unique within a document
		// and across documents converted in the same second.
		name := fmt.Sprintf("Pasted image %s%s", stamp, imageExt(resolved))
		localPath := sanitize.UniquePath(resourceDir, name)

		if err := os.WriteFile(localPath, data, 0o644); err != nil {
			c.logger.Warnf("writing image %s: %v", localPath, err)
			continue
		}

		images[src] = filepath.Base(localPath)
		c.logger.Debugf("downloaded image %s -> %s", resolved, filepath.Base(localPath))
	}

	return images
}

// imageSources returns the src of every <img> in the tree, skipping
// inline data URIs.
func imageSources(root *html.Node) []string {
	var srcs []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, attr := range n.Attr {
				if attr.Key == "src" && attr.Val != "" && !strings.HasPrefix(attr.Val, "data:") {
					srcs = append(srcs, attr.Val)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return srcs
}

// stripElements removes non-content elements from the tree.
func stripElements(n *html.Node) {
	var next *html.Node
	for child := n.FirstChild; child != nil; child = next {
		next = child.NextSibling

		if child.Type == html.ElementNode && strippedElements[child.Data] {
			n.RemoveChild(child)
			continue
		}
		stripElements(child)
	}
}

// stripAttributes removes style, class, and droppedAttrPattern
// attributes from every element.
func stripAttributes(n *html.Node) {
	if n.Type == html.ElementNode && len(n.Attr) > 0 {
		kept := n.Attr[:0]
		for _, attr := range n.Attr {
			if attr.Key == "style" || attr.Key == "class" {
				continue
			}
			if droppedAttrPattern.MatchString(attr.Key) {
				continue
			}
			kept = append(kept, attr)
		}
		n.Attr = kept
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		stripAttributes(child)
	}
}

// rewriteImageEmbeds replaces markdown and residual HTML image
// references to downloaded URLs with wiki-style embeds of the local
// copies.
func rewriteImageEmbeds(markdown string, images map[string]string) string {
	for src, name := range images {
		embed := fmt.Sprintf("![[%s]]", name)

		mdRef := regexp.MustCompile(`!\[[^\]]*\]\(` + regexp.QuoteMeta(src) + `(?:\s+"[^"]*")?\)`)
		markdown = mdRef.ReplaceAllString(markdown, embed)

		htmlRef := regexp.MustCompile(`<img[^>]*src=["']?` + regexp.QuoteMeta(src) + `["']?[^>]*/?>`)
		markdown = htmlRef.ReplaceAllString(markdown, embed)
	}
	return markdown
}

// normalizeWhitespace applies the output whitespace rules: LF line
// endings, at most one blank line in a row, no trailing spaces, and
// single spaces inside lines. Idempotent.
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = trailingPattern.ReplaceAllString(s, "\n")
	s = blankRunPattern.ReplaceAllString(s, "\n\n")
	s = intraRunPattern.ReplaceAllString(s, "$1 ")
	return s
}

// stripCSSLeftovers removes CSS fragments that survived conversion.
func stripCSSLeftovers(s string) string {
	s = mediaBlockPattern.ReplaceAllString(s, "")
	s = idBlockPattern.ReplaceAllString(s, "")
	s = cssRulePattern.ReplaceAllString(s, "")
	return s
}

// imageExt guesses a file extension from an image URL, defaulting to
// .png.
func imageExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".png"
	}

	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".bmp":
		return ext
	}
	return ".png"
}
