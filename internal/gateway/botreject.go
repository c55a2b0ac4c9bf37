package gateway

import "regexp"

// Crawlers and link-preview fetchers can never complete the OAuth or
// session-token dance, so they are cut off before any session work.
var botRe = regexp.MustCompile(`(?i)(bot|crawler|spider|crawling|slurp|bingpreview|facebookexternalhit|whatsapp|telegram|linkedinbot|embedly|quora link preview|pinterest|vkshare|headlesschrome|lighthouse)`)

func isBot(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	return botRe.MatchString(userAgent)
}
