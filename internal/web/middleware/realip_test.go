package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func mustNets(t *testing.T, cidrs ...string) []*net.IPNet {
	t.Helper()
	var nets []*net.IPNet
	for _, c := range cidrs {
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			t.Fatalf("ParseCIDR(%q) error = %v", c, err)
		}
		nets = append(nets, network)
	}
	return nets
}

func seenRemoteAddr(trusted []*net.IPNet, remoteAddr string, headers map[string]string) string {
	var seen string
	h := RealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

func TestRealIP(t *testing.T) {
	proxy := mustNets(t, "10.0.0.0/8")

	tests := []struct {
		name       string
		trusted    []*net.IPNet
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "trusted proxy with X-Real-IP",
			trusted:    proxy,
			remoteAddr: "10.1.2.3:4100",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "trusted proxy with X-Forwarded-For chain",
			trusted:    proxy,
			remoteAddr: "10.1.2.3:4100",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.1.2.3"},
			want:       "203.0.113.9",
		},
		{
			name:       "X-Real-IP wins over X-Forwarded-For",
			trusted:    proxy,
			remoteAddr: "10.1.2.3:4100",
			headers: map[string]string{
				"X-Real-IP":       "203.0.113.9",
				"X-Forwarded-For": "198.51.100.7",
			},
			want: "203.0.113.9",
		},
		{
			name:       "untrusted peer keeps socket address",
			trusted:    proxy,
			remoteAddr: "198.51.100.7:5000",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "198.51.100.7:5000",
		},
		{
			name:       "no trusted set keeps socket address",
			trusted:    nil,
			remoteAddr: "10.1.2.3:4100",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "10.1.2.3:4100",
		},
		{
			name:       "garbage header is ignored",
			trusted:    proxy,
			remoteAddr: "10.1.2.3:4100",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			want:       "10.1.2.3:4100",
		},
		{
			name:       "trusted proxy without headers keeps socket address",
			trusted:    proxy,
			remoteAddr: "10.1.2.3:4100",
			want:       "10.1.2.3:4100",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := seenRemoteAddr(tt.trusted, tt.remoteAddr, tt.headers)
			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}
