package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListScraper_PlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.UserAgent())
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("1.2.3.4:8080\r\n0.0.0.0:80\nnope\n5.6.7.8:3128\n1.2.3.4:8080\n"))
	}))
	defer srv.Close()

	got, err := NewListScraper(srv.URL, "test-agent", time.Second).Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.3.4:8080", "5.6.7.8:3128"}, got)
}

func TestListScraper_HTMLTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body>
<table>
  <tr><th>IP</th><th>Port</th><th>Country</th></tr>
  <tr><td>1.2.3.4</td><td>8080</td><td>RS 1</td></tr>
  <tr><td> 9.8.7.6 </td><td> 3128 </td><td>US</td></tr>
  <tr><td>0.0.0.0</td><td>80</td><td>-</td></tr>
</table>
<pre>4.4.4.4:80
garbage</pre>
</body></html>`))
	}))
	defer srv.Close()

	got, err := NewListScraper(srv.URL, "", time.Second).Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.3.4:8080", "9.8.7.6:3128", "4.4.4.4:80"}, got)
}

func TestListScraper_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewListScraper(srv.URL, "", time.Second).Scrape(context.Background())
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
	assert.Equal(t, srv.URL, fetchErr.Source)
}

func TestListScraper_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewListScraper(url, "", time.Second).Scrape(context.Background())
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Zero(t, fetchErr.StatusCode)
	assert.Error(t, fetchErr.Unwrap())
}
