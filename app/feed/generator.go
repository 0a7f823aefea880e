package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dpetrov/link-comb/app/cfg"
	"github.com/dpetrov/link-comb/app/database"
)

// Generator renders a source's resolved articles as RSS 2.0. Item links are
// the canonical destination URLs, never the wrapped aggregator form.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(source database.Source, articles []database.Article) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", cmp.Or(source.Title, source.Name), 4)
	g.writeElement(&buf, "link", source.Link, 4)
	description := source.Description
	if description == "" {
		description = fmt.Sprintf("Resolved feed from %s", source.FeedURL)
	}
	g.writeElement(&buf, "description", description, 4)

	var selfLink string
	if cfg.Get().BaseUrl != "" {
		selfLink = fmt.Sprintf("%s/feeds/%s", cfg.Get().BaseUrl, source.Name)
	} else {
		selfLink = fmt.Sprintf("http://localhost:%s/feeds/%s", cfg.Get().Port, source.Name)
	}
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	if len(articles) > 0 {
		lastBuildDate = cmp.Or(articles[0].PublishedAt, articles[0].CreatedAt, lastBuildDate)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("LinkComb/%s", cfg.Get().Version), 4)
	if source.Language != "" {
		g.writeElement(&buf, "language", source.Language, 4)
	}

	if source.ImageURL != "" {
		buf.WriteString("    <image>\n")
		g.writeElement(&buf, "url", source.ImageURL, 6)
		g.writeElement(&buf, "title", cmp.Or(source.Title, source.Name), 6)
		g.writeElement(&buf, "link", source.Link, 6)
		buf.WriteString("    </image>\n")
	}

	for _, article := range articles {
		g.writeArticle(&buf, article)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeArticle(buf *bytes.Buffer, article database.Article) {
	buf.WriteString("    <item>\n")

	g.writeElement(buf, "title", article.Title, 6)
	g.writeElement(buf, "link", article.ResolvedURL, 6)
	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"false\">%s</guid>\n",
		html.EscapeString(article.GUID)))

	if article.Description != "" {
		g.writeElement(buf, "description", article.Description, 6)
	}

	if !article.PublishedAt.IsZero() {
		g.writeElement(buf, "pubDate", article.PublishedAt.Format(time.RFC1123Z), 6)
	}

	if article.Content != "" {
		buf.WriteString("      <content:encoded><![CDATA[")
		// Nested CDATA terminators would break the document.
		buf.WriteString(strings.ReplaceAll(article.Content, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, name, value string, indent int) {
	if value == "" {
		return
	}

	var escaped bytes.Buffer
	xml.EscapeText(&escaped, []byte(value))

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<" + name + ">")
	buf.Write(escaped.Bytes())
	buf.WriteString("</" + name + ">\n")
}
