package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeHooks struct {
	stripe, telegram int
}

func (f *fakeHooks) HandleStripeWebhook(w http.ResponseWriter, _ *http.Request) {
	f.stripe++
	w.WriteHeader(http.StatusOK)
}

func (f *fakeHooks) HandleTelegramWebhook(w http.ResponseWriter, _ *http.Request) {
	f.telegram++
	w.WriteHeader(http.StatusOK)
}

func TestRouter(t *testing.T) {
	hooks := &fakeHooks{}
	h := Router(hooks)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodPost, "/webhook/stripe", http.StatusOK},
		{http.MethodPost, "/webhook/telegram", http.StatusOK},
		{http.MethodGet, "/webhook/stripe", http.StatusMethodNotAllowed},
		{http.MethodGet, "/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}")))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, 1, hooks.stripe)
	assert.Equal(t, 1, hooks.telegram)
}

func TestHealthBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Router(&fakeHooks{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "OK", rec.Body.String())
}
