package utils

import (
	"fmt"

	"github.com/mssola/user_agent"
)

// DeviceInfo summarizes a parsed User-Agent header
type DeviceInfo struct {
	Browser  string `json:"browser"`
	OS       string `json:"os"`
	Platform string `json:"platform"`
	Mobile   bool   `json:"mobile"`
	Bot      bool   `json:"bot"`
}

// ParseUserAgent extracts device details from a raw User-Agent header.
// Returns a zero-value DeviceInfo for an empty header.
func ParseUserAgent(rawUA string) DeviceInfo {
	if rawUA == "" {
		return DeviceInfo{}
	}

	ua := user_agent.New(rawUA)
	browser, version := ua.Browser()

	info := DeviceInfo{
		Browser:  browser,
		OS:       ua.OS(),
		Platform: ua.Platform(),
		Mobile:   ua.Mobile(),
		Bot:      ua.Bot(),
	}
	if version != "" {
		info.Browser = fmt.Sprintf("%s %s", browser, version)
	}

	return info
}
