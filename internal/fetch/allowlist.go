package fetch

import (
	"fmt"
	"net/url"
	"strings"
)

// AllowList restricts outbound URLs to known hosts. An entry matches the
// host itself and any of its subdomains; "*" admits every host.
type AllowList struct {
	hosts []string
	any   bool
}

func NewAllowList(hosts []string) *AllowList {
	al := &AllowList{}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		switch h {
		case "":
		case "*":
			al.any = true
		default:
			al.hosts = append(al.hosts, strings.TrimPrefix(h, "."))
		}
	}
	return al
}

// Check parses raw and verifies scheme and host.
func (a *AllowList) Check(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrURLNotAllowed, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrURLNotAllowed, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrURLNotAllowed)
	}
	if a.any {
		return u, nil
	}
	for _, h := range a.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: host %q", ErrURLNotAllowed, host)
}
