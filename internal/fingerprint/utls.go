package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile represents a recognized TLS fingerprint profile.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // one browser preset per connection
)

// Profiles lists every accepted profile name.
var Profiles = []Profile{ProfileGo, ProfileChrome, ProfileFirefox, ProfileSafari, ProfileRandom}

// ParseProfile validates a profile name.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Profiles {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("fingerprint: unknown profile %q", s)
}

// Options tunes the returned transport.
type Options struct {
	// InsecureSkipVerify disables certificate checks. Tests only.
	InsecureSkipVerify bool
}

// Transport returns an http.RoundTripper that performs the TLS handshake
// with the ClientHello of the given browser profile. ProfileGo returns a
// plain clone of http.DefaultTransport.
func Transport(p Profile, opts Options) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if p == ProfileGo {
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return transport, nil
	}

	ids, err := helloIDs(p)
	if err != nil {
		return nil, err
	}

	dial := transport.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn, err := newUClient(tcpConn, &utls.Config{
			ServerName:         host,
			InsecureSkipVerify: opts.InsecureSkipVerify,
		}, ids[rand.IntN(len(ids))])
		if err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("fingerprint: utls handshake failed: %w", err)
		}
		return uConn, nil
	}

	return transport, nil
}

// helloIDs returns the ClientHellos a profile draws from. Random picks
// among the static browser presets; uTLS's own randomized hellos produce
// extension sets some servers reject.
func helloIDs(p Profile) ([]utls.ClientHelloID, error) {
	switch p {
	case ProfileChrome:
		return []utls.ClientHelloID{utls.HelloChrome_Auto}, nil
	case ProfileFirefox:
		return []utls.ClientHelloID{utls.HelloFirefox_Auto}, nil
	case ProfileSafari:
		return []utls.ClientHelloID{utls.HelloIOS_Auto}, nil
	case ProfileRandom:
		return []utls.ClientHelloID{utls.HelloChrome_Auto, utls.HelloFirefox_Auto, utls.HelloIOS_Auto}, nil
	default:
		return nil, fmt.Errorf("fingerprint: unknown profile %q", p)
	}
}

// newUClient builds a uTLS client whose ALPN only offers http/1.1. The
// connection is handed to net/http as an opaque net.Conn, which it always
// speaks HTTP/1.1 over, so an h2 negotiation would break the exchange.
func newUClient(conn net.Conn, cfg *utls.Config, id utls.ClientHelloID) (*utls.UConn, error) {
	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %s spec: %w", id.Str(), err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	uConn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uConn.ApplyPreset(&spec); err != nil {
		return nil, fmt.Errorf("fingerprint: apply preset: %w", err)
	}
	return uConn, nil
}
