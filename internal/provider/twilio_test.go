package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insider-one/notification-dispatcher/internal/config"
	"github.com/insider-one/notification-dispatcher/internal/domain"
)

func newTwilio(t *testing.T, handler http.HandlerFunc) *TwilioClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTwilioClient(config.TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		BaseURL:    srv.URL + "/",
		Timeout:    time.Second,
	})
}

func TestTwilioClient_SendMessage(t *testing.T) {
	c := newTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15551234567", r.PostForm.Get("To"))
		assert.Equal(t, "OTP: Your code is 482913", r.PostForm.Get("Body"))
		assert.Empty(t, r.PostForm.Get("ContentSid"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	})

	resp, err := c.SendMessage(context.Background(), &domain.MessageRequest{
		To:   "+15551234567",
		From: "+15550000000",
		Body: "OTP: Your code is 482913",
	})

	require.NoError(t, err)
	assert.Equal(t, "SM123", resp.MessageID)
	assert.Equal(t, "queued", resp.Status)
}

func TestTwilioClient_SendTemplate(t *testing.T) {
	c := newTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "HX42", r.PostForm.Get("ContentSid"))
		assert.Empty(t, r.PostForm.Get("Body"))

		var vars map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("ContentVariables")), &vars))
		assert.Equal(t, map[string]string{"1": "OTP"}, vars)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM9","status":"accepted"}`))
	})

	resp, err := c.SendMessage(context.Background(), &domain.MessageRequest{
		To:                "whatsapp:+15551234567",
		TemplateID:        "HX42",
		TemplateVariables: map[string]string{"1": "OTP"},
	})

	require.NoError(t, err)
	assert.Equal(t, "SM9", resp.MessageID)
}

func TestTwilioClient_ErrorPayload(t *testing.T) {
	c := newTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":20429,"message":"Too Many Requests","status":429}`))
	})

	_, err := c.SendMessage(context.Background(), &domain.MessageRequest{To: "+15551234567", Body: "x"})

	var pe domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "provider error (status 429, code 20429): Too Many Requests", pe.Error())
	assert.True(t, pe.Retryable)
	assert.ErrorIs(t, err, domain.ErrProviderError)
}
