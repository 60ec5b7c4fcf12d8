package httpkit

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSOptions lists what browser clients may do against the job API.
// AllowedOrigins entries match exactly; "*" admits any origin and
// "https://*.example.com" admits that domain's subdomains.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAgeSeconds    int
}

// originMatcher decides whether a request Origin may read responses.
type originMatcher struct {
	any      bool
	exact    map[string]bool
	wildcard [][2]string // scheme prefix, domain suffix
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{exact: make(map[string]bool)}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
		case o == "*":
			m.any = true
		case strings.Contains(o, "://*."):
			scheme, host, _ := strings.Cut(o, "://*")
			m.wildcard = append(m.wildcard, [2]string{scheme + "://", host})
		default:
			m.exact[strings.TrimSuffix(o, "/")] = true
		}
	}
	return m
}

func (m originMatcher) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if m.any || m.exact[origin] {
		return true
	}
	for _, w := range m.wildcard {
		rest, ok := strings.CutPrefix(origin, w[0])
		if ok && len(rest) > len(w[1]) && strings.HasSuffix(rest, w[1]) {
			return true
		}
	}
	return false
}

// CORS answers preflights itself and decorates responses to admitted
// origins. Requests from other origins pass through without CORS headers.
func CORS(opt CORSOptions) func(http.Handler) http.Handler {
	methods := opt.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := opt.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "Accept", "X-Request-ID"}
	}
	maxAge := opt.MaxAgeSeconds
	if maxAge <= 0 {
		maxAge = 600
	}
	match := newOriginMatcher(opt.AllowedOrigins)

	preflight := http.Header{}
	preflight.Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
	preflight.Set("Access-Control-Allow-Headers", strings.Join(headers, ", "))
	preflight.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
	exposed := strings.Join(opt.ExposedHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")
			origin := r.Header.Get("Origin")
			isPreflight := r.Method == http.MethodOptions

			if match.allows(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				if opt.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if isPreflight {
					for k, v := range preflight {
						h[k] = append([]string(nil), v...)
					}
				} else if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
			}

			if isPreflight {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
