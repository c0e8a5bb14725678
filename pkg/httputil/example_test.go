package httputil_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/wonny/twscan/pkg/config"
	"github.com/wonny/twscan/pkg/httputil"
	"github.com/wonny/twscan/pkg/logger"
)

// Example_getJSON decodes a JSON endpoint
func Example_getJSON() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stat":"OK"}`))
	}))
	defer server.Close()

	client := httputil.New(&config.Config{}, logger.Nop())

	var out struct {
		Stat string `json:"stat"`
	}
	if err := client.GetJSON(context.Background(), server.URL, &out); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(out.Stat)
	// Output: OK
}

// Example_bearer attaches a token to every request
func Example_bearer() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Println(r.Header.Get("Authorization"))
	}))
	defer server.Close()

	client := httputil.New(&config.Config{}, logger.Nop()).
		WithHeader("Authorization", "Bearer token").
		DisableRetry()

	resp, err := client.PostJSON(context.Background(), server.URL, map[string]string{"to": "U123"})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	resp.Body.Close()
	// Output: Bearer token
}
