package redirect

import (
	"net/url"
	"regexp"
)

type Device string

const (
	DeviceDesktop Device = "desktop"
	DeviceIOS     Device = "ios"
	DeviceAndroid Device = "android"
)

var (
	botPattern = regexp.MustCompile(`(?i)bot|crawl|spider|slurp|facebookexternalhit|facebookcatalog|` +
		`embedly|quora link preview|outbrain|pinterest|vkshare|w3c_validator|whatsapp|` +
		`skypeuripreview|nuzzel|redditbot|flipboard|tumblr|bitlybot|google-inspectiontool|` +
		`headlesschrome|lighthouse|curl/|wget/|python-requests|go-http-client|okhttp|axios/|` +
		`node-fetch|postmanruntime|insomnia|httpie|metauri|iframely|mastodon|bluesky|preview`)
	iosPattern     = regexp.MustCompile(`iPhone|iPad|iPod`)
	androidPattern = regexp.MustCompile(`(?i)android`)
)

// IsBot classifies a requester. An explicit bot=1 or bot=0 query flag wins
// over the user-agent heuristic.
func IsBot(userAgent string, query url.Values) bool {
	switch query.Get("bot") {
	case "1", "true":
		return true
	case "0", "false":
		return false
	}
	return userAgent != "" && botPattern.MatchString(userAgent)
}

func DetectDevice(userAgent string) Device {
	switch {
	case iosPattern.MatchString(userAgent):
		return DeviceIOS
	case androidPattern.MatchString(userAgent):
		return DeviceAndroid
	default:
		return DeviceDesktop
	}
}

// isQRScan reports whether the request came from a generated QR code.
func isQRScan(query url.Values) bool {
	v := query.Get("qr")
	return v == "1" || v == "true"
}
