// Package bypass recognizes bot-protection walls in fetched pages. A page
// behind a challenge has no supplier data, so scrapers report it as a failure
// instead of an empty result.
package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Response is the part of a fetched page the detectors look at. Browser
// rendered pages have Status 200 and no Header.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Detector examines a response and reports the protection vendor that
// blocked or challenged it.
type Detector func(res Response) (detected bool, vendor string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
		detectRateLimit,
	}
}

// Analyze runs res through detectors in order and returns the first vendor
// that matched.
func Analyze(res Response, detectors []Detector) (vendor string, blocked bool) {
	for _, d := range detectors {
		if detected, v := d(res); detected {
			return v, true
		}
	}
	return "", false
}

// Check runs the default detectors against a browser-rendered page.
func Check(html string) (vendor string, blocked bool) {
	return Analyze(Response{Status: http.StatusOK, Body: []byte(html)}, DefaultDetectors())
}

func blockedStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusServiceUnavailable
}

func containsAny(body []byte, needles ...string) bool {
	for _, n := range needles {
		if bytes.Contains(body, []byte(n)) {
			return true
		}
	}
	return false
}

func detectCloudflare(res Response) (bool, string) {
	// The interstitial is served with 200 once JavaScript runs it in a browser.
	if containsAny(res.Body, "<title>Just a moment...</title>", "challenge-platform/h/") {
		return true, "Cloudflare"
	}
	if !blockedStatus(res.Status) {
		return false, ""
	}
	if strings.Contains(strings.ToLower(res.Header.Get("Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	if containsAny(res.Body,
		"cf-browser-verification",
		"cloudflare-nginx",
		"cf-turnstile",
		"Attention Required! | Cloudflare",
	) {
		return true, "Cloudflare"
	}
	return false, ""
}

func detectAkamai(res Response) (bool, string) {
	if res.Status != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(res.Header.Get("Server")), "akamai") {
		return true, "Akamai"
	}
	// Generic "Access Denied ... Reference #" block page.
	if containsAny(res.Body, "Reference #") && containsAny(res.Body, "Access Denied") {
		return true, "Akamai"
	}
	return false, ""
}

func detectDataDome(res Response) (bool, string) {
	if containsAny(res.Body, "geo.captcha-delivery.com") {
		return true, "DataDome"
	}
	if res.Status != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(res.Header.Get("Server")), "datadome") ||
		res.Header.Get("X-DataDome") != "" ||
		res.Header.Get("X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if containsAny(res.Body, "datadome") {
		return true, "DataDome"
	}
	return false, ""
}

func detectPerimeterX(res Response) (bool, string) {
	if containsAny(res.Body, "px-captcha", "_pxBlock") {
		return true, "PerimeterX"
	}
	if res.Status != http.StatusForbidden {
		return false, ""
	}
	if res.Header.Get("X-Px-Captcha") != "" || containsAny(res.Body, "client.perimeterx.net") {
		return true, "PerimeterX"
	}
	return false, ""
}

func detectRateLimit(res Response) (bool, string) {
	if res.Status == http.StatusTooManyRequests {
		return true, "RateLimit"
	}
	return false, ""
}
