package antiabuse

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/baechuer/curation-service/internal/domain"
)

var urlPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"]+`)

// ContentResult describes a body that passed the heuristics.
type ContentResult struct {
	ShouldReview bool
	URL          string
}

// ExtractURLs returns every link-looking token in body, in order.
func ExtractURLs(body string) []string {
	return urlPattern.FindAllString(body, -1)
}

// CheckContent applies the content heuristics to a raw body. It is pure.
// The text around a link must pass the same checks as plain text; exactly
// one URL then passes but is flagged for review.
func CheckContent(body string, minLength int) (ContentResult, error) {
	if strings.TrimSpace(body) == "" {
		return ContentResult{}, domain.ErrRejected(domain.RejectEmptyInput, "Please write something before posting.")
	}

	urls := ExtractURLs(body)
	if len(urls) > 1 {
		return ContentResult{}, domain.ErrRejected(domain.RejectMultiLink, "Only one link is allowed per comment.")
	}

	text := Normalize(urlPattern.ReplaceAllString(body, " "))
	if !hasMeaningfulRune(text) {
		return ContentResult{}, domain.ErrRejected(domain.RejectNoContent, "Please add some words, not just emoji or punctuation.")
	}
	if utf8.RuneCountInString(text) < minLength {
		return ContentResult{}, domain.ErrRejected(domain.RejectTooShort, "Your comment is too short.")
	}
	if len(urls) == 1 {
		return ContentResult{ShouldReview: true, URL: urls[0]}, nil
	}
	return ContentResult{}, nil
}
