// Package device turns a User-Agent header into the device summary stored on
// check-in events.
package device

import (
	"context"

	"github.com/mssola/useragent"

	"flock/pkg/requestcontext"
)

// Info is what a check-in records about the submitting device.
type Info struct {
	UserAgent      string `json:"user_agent,omitempty"`
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OS             string `json:"os,omitempty"`
	Platform       string `json:"platform,omitempty"`
	Mobile         bool   `json:"mobile"`
	Bot            bool   `json:"bot"`
}

// IsZero reports whether no device information was captured.
func (i Info) IsZero() bool {
	return i.UserAgent == ""
}

// Parse summarises a raw User-Agent string.
func Parse(raw string) Info {
	if raw == "" {
		return Info{}
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	return Info{
		UserAgent:      raw,
		Browser:        name,
		BrowserVersion: version,
		OS:             ua.OS(),
		Platform:       ua.Platform(),
		Mobile:         ua.Mobile(),
		Bot:            ua.Bot(),
	}
}

// FromContext parses the User-Agent captured by the metadata middleware.
func FromContext(ctx context.Context) Info {
	return Parse(requestcontext.UserAgent(ctx))
}
