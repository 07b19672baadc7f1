package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                     "/",
		"/metrics":                             "/metrics",
		"/v1/needs-lists/abc":                  "/v1/needs-lists/:id",
		"/v1/needs-lists/abc/submit":           "/v1/needs-lists/:id/submit",
		"/v1/needs-lists/abc/lock/extend":      "/v1/needs-lists/:id/lock/extend",
		"/v1/change-requests/xyz":              "/v1/change-requests/:id",
		"/v1/change-requests/xyz/approve":      "/v1/change-requests/:id/approve",
		"/v1/stock/ITM-AB12CD":                 "/v1/stock/:sku",
		"/v1/stock/movements":                  "/v1/stock/movements",
		"/v1/stock/movements?limit=10":         "/v1/stock/movements",
		"/v1/needs-lists":                      "/v1/needs-lists",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
