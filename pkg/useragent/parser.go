// Package useragent classifies User-Agent strings for access analytics.
package useragent

import (
	"fmt"
	"os"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

// DeviceInfo represents parsed device information.
type DeviceInfo struct {
	DeviceType string // mobile, desktop, tablet, bot, unknown
	Browser    string // Chrome, Firefox, Safari, etc.
	OS         string // Windows, iOS, Android, etc.
	Raw        string // Original User-Agent string
}

// Parser wraps the uap-go parser with device type detection. A nil
// *Parser is usable: Classify then falls back to keyword heuristics.
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// NewParser creates a parser from a uap-core regexes file.
func NewParser(regexFilePath string, log *zap.Logger) (*Parser, error) {
	regexBytes, err := os.ReadFile(regexFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read regexes file %s: %w", regexFilePath, err)
	}

	parser, err := uaparser.NewFromBytes(regexBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create User-Agent parser: %w", err)
	}

	log.Info("User-Agent parser initialized", zap.String("regexes_file", regexFilePath))

	return &Parser{
		parser: parser,
		log:    log,
	}, nil
}

// Classify parses a User-Agent string into device information.
func (p *Parser) Classify(userAgent string) *DeviceInfo {
	if userAgent == "" {
		return &DeviceInfo{DeviceType: "unknown", Browser: "unknown", OS: "unknown"}
	}

	if p == nil || p.parser == nil {
		return classifyHeuristic(userAgent)
	}

	client := p.parser.Parse(userAgent)

	info := &DeviceInfo{
		Browser: orUnknown(client.UserAgent.Family),
		OS:      orUnknown(client.Os.Family),
		Raw:     userAgent,
	}
	info.DeviceType = deviceType(client, userAgent)

	return info
}

// deviceType maps parsed client info onto the coarse device buckets
// stored with each access entry.
func deviceType(client *uaparser.Client, userAgent string) string {
	if isBot(client.UserAgent.Family, userAgent) {
		return "bot"
	}

	osFamily := client.Os.Family
	switch {
	case containsFold(osFamily, "iOS"):
		if containsFold(userAgent, "iPad") {
			return "tablet"
		}
		return "mobile"
	case containsFold(osFamily, "Android"):
		// Android tablets typically omit "Mobile" from the User-Agent.
		if !containsFold(userAgent, "Mobile") {
			return "tablet"
		}
		return "mobile"
	case containsFold(osFamily, "Windows Phone"), containsFold(osFamily, "BlackBerry"):
		return "mobile"
	}

	device := client.Device.Family
	if containsFold(device, "iPad") || containsFold(device, "Tablet") || containsFold(device, "Kindle") {
		return "tablet"
	}

	for _, desktop := range []string{"Windows", "Mac OS X", "macOS", "Linux", "Ubuntu", "Chrome OS", "FreeBSD"} {
		if containsFold(osFamily, desktop) {
			return "desktop"
		}
	}

	return "unknown"
}

// classifyHeuristic is the keyword fallback used when no regexes file
// is available.
func classifyHeuristic(userAgent string) *DeviceInfo {
	info := &DeviceInfo{Browser: "unknown", OS: "unknown", Raw: userAgent}

	switch {
	case isBot("", userAgent):
		info.DeviceType = "bot"
	case containsFold(userAgent, "iPad"), containsFold(userAgent, "Tablet"), containsFold(userAgent, "Kindle"):
		info.DeviceType = "tablet"
	case containsFold(userAgent, "Mobile"), containsFold(userAgent, "Android"), containsFold(userAgent, "iPhone"):
		info.DeviceType = "mobile"
	default:
		info.DeviceType = "desktop"
	}

	return info
}

func isBot(uaFamily, userAgent string) bool {
	indicators := []string{
		"Googlebot", "Bingbot", "Slurp", "DuckDuckBot", "Baiduspider",
		"YandexBot", "facebookexternalhit", "Twitterbot", "LinkedInBot",
		"WhatsApp", "Telegram", "bot", "crawler", "spider", "scraper",
	}

	for _, indicator := range indicators {
		if containsFold(uaFamily, indicator) || containsFold(userAgent, indicator) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	if s == "" || substr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func orUnknown(s string) string {
	if s == "" || s == "Other" {
		return "unknown"
	}
	return s
}
