package render

import "strings"

// Variables is the substitution context for step 1 of the pipeline
// (spec.md §4.3 step 1).
type Variables struct {
	Name            string
	Email           string
	UnsubscribeURL  string
	SiteURL         string
	PrimaryColor    string
}

// substituteVariables recognises `{{name}}` and the legacy
// `{{subscriber.name}}` token, plus `{{unsubscribe_url}}`, which is
// rendered as an anchor styled in the brand's primary color so it is
// visually distinct from the surrounding body text.
func substituteVariables(content string, v Variables) string {
	unsubscribeAnchor := content
	replacements := []struct {
		token string
		value string
	}{
		{"{{name}}", v.Name},
		{"{{subscriber.name}}", v.Name},
		{"{{email}}", v.Email},
		{"{{subscriber.email}}", v.Email},
		{"{{site_url}}", v.SiteURL},
		{"{{unsubscribe_url}}", unsubscribeAnchorHTML(v.UnsubscribeURL, v.PrimaryColor)},
	}
	for _, r := range replacements {
		unsubscribeAnchor = strings.ReplaceAll(unsubscribeAnchor, r.token, r.value)
	}
	return unsubscribeAnchor
}

func unsubscribeAnchorHTML(url, color string) string {
	if url == "" {
		return ""
	}
	if color == "" {
		color = "#3366cc"
	}
	return `<a href="` + url + `" style="color:` + color + `;text-decoration:underline;">unsubscribe</a>`
}
