package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"lms-scraper/lib/browser"

	"github.com/stretchr/testify/require"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://campus.example.edu/login/index.php", want: "https://campus.example.edu"},
		{in: "https://campus.example.edu/", want: "https://campus.example.edu"},
		{in: "http://campus.example.edu:8080/my/", want: "http://campus.example.edu:8080"},
		{in: "  https://campus.example.edu  ", want: "https://campus.example.edu"},
		{in: "not a url at all", wantErr: true},
	}
	for _, c := range cases {
		got, err := NormalizeBaseURL(c.in)
		if c.wantErr {
			require.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

func TestGetPageSendsSessionCookies(t *testing.T) {
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("MoodleSession"); err == nil {
			gotCookie = c.Value
		}
		w.Write([]byte(`<html><body><h1 id="title">Course Index</h1></body></html>`))
	}))
	defer server.Close()

	client, err := NewClient(Options{
		BaseURL: server.URL,
		Session: browser.Session{
			Cookies: []browser.Cookie{{Name: "MoodleSession", Value: "abc123"}},
		},
	})
	require.NoError(t, err)

	doc, err := client.GetPage(context.Background(), server.URL+"/my/courses.php")
	require.NoError(t, err)
	require.Equal(t, "abc123", gotCookie)
	require.Equal(t, "Course Index", doc.Find("#title").Text())
}

func TestGetPageErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.GetPage(context.Background(), server.URL+"/course/view.php?id=2")
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "https://campus.example.edu"})
	require.NoError(t, err)

	require.Equal(t, "https://campus.example.edu/course/view.php?id=4",
		client.Resolve("/course/view.php?id=4"))
	require.Equal(t, "https://other.example.edu/x", client.Resolve("https://other.example.edu/x"))
	require.Equal(t, "https://campus.example.edu/page", client.Resolve("/page#section-2"))
}
