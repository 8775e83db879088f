package fetcher

import (
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/cockroachdb/errors"
	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// processHTMLContent extracts content from HTML using readability and converts it to Markdown.
// It falls back to a plain conversion, then to the raw body string.
func processHTMLContent(body string, urlStr string) string {
	markdown, err := readableMarkdown(body, urlStr)
	if err == nil {
		return markdown
	}
	zap.S().Warnw("failed to process HTML content with readability, falling back to basic conversion",
		"url", urlStr, "error", err)

	markdown, err = convertHTMLToMarkdown(body)
	if err != nil {
		zap.S().Warnw("fallback HTML conversion also failed", "url", urlStr, "error", err)
		return body
	}
	return markdown
}

func readableMarkdown(htmlContent, urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse URL")
	}

	article, err := readability.FromReader(strings.NewReader(htmlContent), parsedURL)
	if err != nil {
		return "", errors.Wrap(err, "failed to extract content with readability")
	}

	markdown, err := convertHTMLToMarkdown(article.Content)
	if err != nil {
		return "", err
	}

	// Add title as heading if available
	if article.Title != "" {
		markdown = "# " + article.Title + "\n\n" + markdown
	}
	if article.Byline != "" {
		markdown += "\n\n---\n\nAuthor: " + article.Byline
	}

	zap.S().Debugw("processed HTML with readability to Markdown",
		"url", urlStr,
		"title", article.Title,
		"byline", article.Byline,
		"markdown_length", len(markdown))

	return markdown, nil
}

func convertHTMLToMarkdown(htmlContent string) (string, error) {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(htmlContent)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert HTML to Markdown")
	}
	return markdown, nil
}
