package blog

import "strings"

// MaxTags is the number of tags kept on a post.
const MaxTags = 8

// ExcerptLength is the number of body characters used for a derived excerpt.
const ExcerptLength = 160

// NormalizeTags splits a comma-separated tag list into lowercased, trimmed,
// non-empty, de-duplicated tags, keeping the first MaxTags.
func NormalizeTags(input string) []string {
	tags := make([]string, 0, MaxTags)
	seen := make(map[string]struct{}, MaxTags)
	for _, raw := range strings.Split(input, ",") {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}

// JoinTags renders tags back into the comma-separated form used by post forms.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// DeriveExcerpt returns excerpt when it is non-blank, otherwise the first
// ExcerptLength characters of body followed by "..." when body is longer.
func DeriveExcerpt(excerpt, body string) string {
	if e := strings.TrimSpace(excerpt); e != "" {
		return e
	}
	runes := []rune(body)
	if len(runes) <= ExcerptLength {
		return body
	}
	return string(runes[:ExcerptLength]) + "..."
}
