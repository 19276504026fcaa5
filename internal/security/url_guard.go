package security

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

var (
	// ErrDisallowedScheme はhttp/https以外のスキームを表す。
	ErrDisallowedScheme = errors.New("disallowed URL scheme")
	// ErrBlockedHost は内部ネットワーク宛てのホストを表す。
	ErrBlockedHost = errors.New("blocked host")
)

// blockedPrefixes は画像取り込みで拒否する宛先。
// safeurlもDial時に同等の検証を行うが、DNS解決前に弾けるものはここで弾く。
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"), // クラウドメタデータを含む
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// URLGuard は外部画像URLへのアクセスをSSRFから守る。
type URLGuard struct {
	timeout time.Duration
}

// NewURLGuard はURLGuardを生成する。timeoutはHTTPクライアント全体のタイムアウト。
func NewURLGuard(timeout time.Duration) *URLGuard {
	return &URLGuard{timeout: timeout}
}

// Client はsafeurlでラップしたHTTPクライアントを返す。
// 接続先IPはDNS解決後にDialerで検証されるため、DNS再バインディングも防げる。
func (g *URLGuard) Client() *http.Client {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(g.timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(cfg).Client
}

// Validate はDNS解決を伴わない静的な検証を行う。
func (g *URLGuard) Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: %q", ErrDisallowedScheme, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: empty host", ErrBlockedHost)
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}

	if ip := net.ParseIP(host); ip != nil {
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			return fmt.Errorf("%w: %s", ErrBlockedHost, host)
		}
		addr = addr.Unmap()
		for _, p := range blockedPrefixes {
			if p.Contains(addr) {
				return fmt.Errorf("%w: %s", ErrBlockedHost, addr)
			}
		}
	}

	return nil
}
