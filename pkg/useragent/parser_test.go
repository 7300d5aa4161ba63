package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_NilParserHeuristics(t *testing.T) {
	var p *Parser

	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", "mobile"},
		{"android phone", "Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile Safari/537.36", "mobile"},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)", "tablet"},
		{"googlebot", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", "bot"},
		{"curl scraper", "my-scraper/1.0", "bot"},
		{"windows desktop", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0", "desktop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := p.Classify(tt.ua)
			assert.Equal(t, tt.want, info.DeviceType)
		})
	}
}

func TestClassify_EmptyUserAgent(t *testing.T) {
	var p *Parser

	info := p.Classify("")
	assert.Equal(t, "unknown", info.DeviceType)
	assert.Equal(t, "unknown", info.Browser)
	assert.Equal(t, "unknown", info.OS)
}
