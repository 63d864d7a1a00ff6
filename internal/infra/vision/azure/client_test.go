package azure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/computervision/imageanalysis:analyze", r.URL.Path)
		require.Equal(t, "2024-02-01", r.URL.Query().Get("api-version"))
		require.Equal(t, "caption,tags", r.URL.Query().Get("features"))
		require.Equal(t, "false", r.URL.Query().Get("gender-neutral-caption"))
		require.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		require.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, "img", string(body))

		_, _ = w.Write([]byte(`{
			"captionResult": {"text": "a bridge over a river", "confidence": 0.81},
			"denseCaptionsResult": {"values": [{"text": "a car", "confidence": 0.6, "boundingBox": {"x": 1, "y": 2, "w": 30, "h": 40}}]},
			"tagsResult": {"values": [{"name": "bridge", "confidence": 0.99}]},
			"readResult": {"blocks": [{"lines": [{"text": "MOST"}, {"text": "PONIATOWSKIEGO"}]}]}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/", "secret", "", []string{"caption", "tags"}, 0)
	require.NoError(t, err)

	summary, err := client.Analyze(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Equal(t, "a bridge over a river", summary.MainCaption.Text)
	require.Len(t, summary.DenseCaptions, 1)
	require.Equal(t, 30, summary.DenseCaptions[0].BoundingBox.Width)
	require.Equal(t, "bridge", summary.Tags[0].Name)
	require.Equal(t, "MOST\nPONIATOWSKIEGO", summary.OCRText)
}

func TestAnalyzeSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"401"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "secret", "", nil, 0)
	require.NoError(t, err)

	_, err = client.Analyze(context.Background(), []byte("img"))
	require.ErrorContains(t, err, "status=401")
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient("", "key", "", nil, 0)
	require.Error(t, err)
	_, err = NewClient("https://example.cognitiveservices.azure.com", " ", "", nil, 0)
	require.Error(t, err)
}
