package softap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-home/provision-go/pkg/transport"
)

func testCreds(t *testing.T) transport.Credentials {
	t.Helper()
	creds, err := transport.NewCredentials("HomeNet", "hunter22")
	require.NoError(t, err)
	return creds
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func cfgJSON(ssids ...string) string {
	body := `{"nw":{"ins":[`
	for i, ssid := range ssids {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"ssid":%q}`, ssid)
	}
	return body + `]}}`
}

func TestSendCredentialsSavesAndVerifies(t *testing.T) {
	var gotForm map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/settings/wifi", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"CS": r.PostForm.Get("CS"),
			"PW": r.PostForm.Get("PW"),
			"SV": r.PostForm.Get("SV"),
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/json/cfg", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cfgJSON("HomeNet"))
	})

	client := newTestClient(t, mux)
	result := client.SendCredentials(context.Background(), testCreds(t))

	require.True(t, result.OK, "result: %v", result)
	assert.Equal(t, "HomeNet", gotForm["CS"])
	assert.Equal(t, "hunter22", gotForm["PW"])
	assert.Equal(t, "1", gotForm["SV"])
}

func TestSendCredentialsReadBackMismatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/settings/wifi", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/json/cfg", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cfgJSON("SomeOtherNet"))
	})

	client := newTestClient(t, mux)
	result := client.SendCredentials(context.Background(), testCreds(t))

	require.False(t, result.OK)
	assert.Equal(t, transport.ReasonRejected, result.Reason)
}

func TestSendCredentialsServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	result := client.SendCredentials(context.Background(), testCreds(t))
	require.False(t, result.OK)
	assert.Equal(t, transport.ReasonProtocol, result.Reason)
}

func TestSendCredentialsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := New(Config{BaseURL: url})
	require.NoError(t, err)

	result := client.SendCredentials(context.Background(), testCreds(t))
	require.False(t, result.OK)
	assert.Equal(t, transport.ReasonUnreachable, result.Reason)
}

func TestVerifySavedMatchesAnyInstance(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/cfg", r.URL.Path)
		fmt.Fprint(w, cfgJSON("GuestNet", "HomeNet"))
	}))

	saved, err := client.VerifySaved(context.Background(), testCreds(t))
	require.NoError(t, err)
	assert.True(t, saved)
}

func TestVerifySavedBadJSON(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	}))

	_, err := client.VerifySaved(context.Background(), testCreds(t))
	require.Error(t, err)
}

func TestRebootCleanResponse(t *testing.T) {
	var gotBody []byte
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/state", r.URL.Path)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.Reboot(context.Background()))
	assert.JSONEq(t, `{"rb":true}`, string(gotBody))
}

func TestRebootConnectionDropIsSuccess(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok, "test server must support hijacking")
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))

	assert.NoError(t, client.Reboot(context.Background()))
}

func TestRebootRefused(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))

	assert.Error(t, client.Reboot(context.Background()))
}

func TestNewValidatesBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"default", "", false},
		{"explicit", "http://192.168.4.1", false},
		{"trailing slash trimmed", "http://192.168.4.1/", false},
		{"missing scheme", "192.168.4.1", true},
		{"garbage", "://bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(Config{BaseURL: tt.baseURL})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBaseURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "softap", client.Name())
			assert.NoError(t, client.Close())
		})
	}
}
