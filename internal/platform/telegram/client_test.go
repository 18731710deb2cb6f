package telegram

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendDocument(t *testing.T) {
	var gotPath string
	var gotChatID string
	var gotFile []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotChatID = r.FormValue("chat_id")

		file, header, err := r.FormFile("document")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "case_abc.pdf", header.Filename)
		gotFile, _ = io.ReadAll(file)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("test-token")
	c.baseURL = srv.URL

	err := c.SendDocument(42, []byte("pdf-bytes"), "case_abc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/bottest-token/sendDocument", gotPath)
	assert.Equal(t, "42", gotChatID)
	assert.Equal(t, []byte("pdf-bytes"), gotFile)
}

func TestSendMessageSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("test-token")
	c.baseURL = srv.URL

	err := c.SendMessage(42, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
