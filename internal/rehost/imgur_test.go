package rehost

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImgur_Upload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Client-ID abc123", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "PNGDATA", string(data))
		assert.Equal(t, "picture.png", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"link":"https://i.imgur.com/xyz.png"},"success":true,"status":200}`))
	}))
	defer server.Close()

	imgur := NewImgur(ImgurConfig{ClientID: "abc123", Endpoint: server.URL, Timeout: 5 * time.Second})
	link, err := imgur.Upload(context.Background(), []byte("PNGDATA"), "https://forum.example.com/data/picture.png")

	require.NoError(t, err)
	assert.Equal(t, "https://i.imgur.com/xyz.png", link)
}

func TestImgur_UploadRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"data":{"error":"rate limit"},"success":false,"status":429}`))
	}))
	defer server.Close()

	imgur := NewImgur(ImgurConfig{ClientID: "abc123", Endpoint: server.URL})
	_, err := imgur.Upload(context.Background(), []byte("x"), "x.png")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
