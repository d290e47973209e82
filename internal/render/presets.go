package render

import (
	"fmt"
	"html"

	"github.com/driftloop/mailcore/internal/domain"
)

// presets maps a template id to the function that wraps rendered body
// content into a full HTML document. There is no inheritance between
// presets (spec.md §9) — each entry is a complete, standalone layout.
var presets = map[string]func(subject, body string, brand *domain.BrandSettings) string{
	"simple":     simplePreset,
	"newsletter": newsletterPreset,
}

const defaultPresetID = "simple"

func wrapPreset(templateID, subject, body string, brand *domain.BrandSettings) string {
	fn, ok := presets[templateID]
	if !ok {
		fn = presets[defaultPresetID]
	}
	return fn(subject, body, brand)
}

func simplePreset(subject, body string, brand *domain.BrandSettings) string {
	primary := orDefault(brand.PrimaryColor, "#3366cc")
	logo := ""
	if brand.LogoURL != "" {
		logo = fmt.Sprintf(`<img src="%s" alt="%s" style="max-height:48px;margin-bottom:16px;">`, html.EscapeString(brand.LogoURL), html.EscapeString(brand.SenderName))
	}
	footer := brand.FooterText
	if footer == "" {
		footer = fmt.Sprintf("%s &middot; %s", html.EscapeString(brand.SenderName), html.EscapeString(brand.CompanyAddress))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body style="margin:0;padding:0;background:#f5f5f5;font-family:sans-serif;">
<table role="presentation" width="100%%" cellpadding="0" cellspacing="0"><tr><td align="center">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;margin:24px 0;">
<tr><td style="padding:24px;">
%s
<h1 style="font-size:20px;color:%s;margin:0 0 16px;">%s</h1>
<div style="font-size:15px;line-height:1.5;color:#222;">
%s
</div>
</td></tr>
<tr><td style="padding:16px 24px;border-top:1px solid #eee;font-size:12px;color:#888;">
%s
</td></tr>
</table>
</td></tr></table>
</body>
</html>`, html.EscapeString(subject), logo, primary, html.EscapeString(subject), body, footer)
}

// newsletterPreset is a wider, banner-style layout for recurring digest
// content (SPEC_FULL.md expansion: §4.3) — a masthead bar in the brand
// color above the body instead of simplePreset's inline heading.
func newsletterPreset(subject, body string, brand *domain.BrandSettings) string {
	primary := orDefault(brand.PrimaryColor, "#3366cc")
	logo := ""
	if brand.LogoURL != "" {
		logo = fmt.Sprintf(`<img src="%s" alt="%s" style="max-height:40px;">`, html.EscapeString(brand.LogoURL), html.EscapeString(brand.SenderName))
	}
	footer := brand.FooterText
	if footer == "" {
		footer = fmt.Sprintf("%s &middot; %s", html.EscapeString(brand.SenderName), html.EscapeString(brand.CompanyAddress))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body style="margin:0;padding:0;background:#eeeeee;font-family:sans-serif;">
<table role="presentation" width="100%%" cellpadding="0" cellspacing="0"><tr><td align="center">
<table role="presentation" width="680" cellpadding="0" cellspacing="0" style="background:#ffffff;margin:24px 0;">
<tr><td style="padding:20px 28px;background:%s;">%s</td></tr>
<tr><td style="padding:28px;">
<div style="font-size:15px;line-height:1.6;color:#222;">
%s
</div>
</td></tr>
<tr><td style="padding:16px 28px;border-top:1px solid #eee;font-size:12px;color:#888;">
%s
</td></tr>
</table>
</td></tr></table>
</body>
</html>`, html.EscapeString(subject), primary, logo, body, footer)
}
