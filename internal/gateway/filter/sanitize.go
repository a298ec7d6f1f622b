package filter

import (
	"net/http"
	"net/url"
	"regexp"

	"github.com/noteloom/noteloom/pkg/httpx"
)

// Patterns stripped from query parameter keys and values before the
// request is forwarded. Case-insensitive.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*/?\s*script[^>]*>`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)vbscript\s*:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)\bexpression\s*\(`),
}

func stripUnsafe(s string) string {
	for _, p := range unsafePatterns {
		s = p.ReplaceAllString(s, "")
	}
	return s
}

// SanitizeQuery rewrites the raw query only when stripping actually
// removed something. A clean request keeps its original encoding
// byte-for-byte.
func SanitizeQuery() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.RawQuery == "" {
				next.ServeHTTP(w, r)
				return
			}

			values, err := url.ParseQuery(r.URL.RawQuery)
			if err != nil {
				// Unparseable queries pass through untouched; the
				// downstream will reject them on its own terms.
				next.ServeHTTP(w, r)
				return
			}

			changed := false
			clean := make(url.Values, len(values))
			for key, vals := range values {
				cleanKey := stripUnsafe(key)
				if cleanKey != key {
					changed = true
				}
				for _, v := range vals {
					cleanVal := stripUnsafe(v)
					if cleanVal != v {
						changed = true
					}
					clean.Add(cleanKey, cleanVal)
				}
			}

			if changed {
				r.URL.RawQuery = clean.Encode()
			}
			next.ServeHTTP(w, r)
		})
	}
}
