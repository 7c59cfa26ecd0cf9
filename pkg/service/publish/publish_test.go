package publish_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/service/publish"
)

func TestPublish(t *testing.T) {
	ctx := context.Background()

	article := &model.Article{
		Content:         "<p>Body</p>",
		MetaTitle:       "Title",
		MetaDescription: "Description",
	}

	t.Run("posts the article and returns the public URL", func(t *testing.T) {
		var gotPath, gotAuth string
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
			json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
				"id":  "post-42",
				"url": "https://cms.example.com/post-42",
			})
		}))
		defer srv.Close()

		c, err := publish.New(srv.URL, "secret-token", publish.WithHTTPClient(srv.Client()))
		gt.NoError(t, err).Required()

		result, err := c.Publish(ctx, article)
		gt.NoError(t, err).Required()
		gt.Value(t, result.PublicURL).Equal("https://cms.example.com/post-42")
		gt.Value(t, result.RemoteID).Equal("post-42")
		gt.Value(t, gotPath).Equal("/api/posts")
		gt.Value(t, gotAuth).Equal("Bearer secret-token")
		gt.Value(t, gotBody["meta_title"]).Equal("Title")
	})

	t.Run("rejected publish is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		c, err := publish.New(srv.URL, "", publish.WithHTTPClient(srv.Client()))
		gt.NoError(t, err).Required()

		_, err = c.Publish(ctx, article)
		gt.Value(t, err).NotNil()
	})

	t.Run("response without a URL is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"id": "post-1"}) //nolint:errcheck
		}))
		defer srv.Close()

		c, err := publish.New(srv.URL, "", publish.WithHTTPClient(srv.Client()))
		gt.NoError(t, err).Required()

		_, err = c.Publish(ctx, article)
		gt.Value(t, err).NotNil()
	})

	t.Run("missing base URL is a construction error", func(t *testing.T) {
		_, err := publish.New("", "")
		gt.Value(t, err).NotNil()
	})
}
