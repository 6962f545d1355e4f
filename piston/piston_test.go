package piston

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(zaptest.NewLogger(t),
		WithRuntimesURL(server.URL+"/runtimes"),
		WithExecuteURL(server.URL+"/execute"),
	)
}

func TestRuntimes(t *testing.T) {
	t.Run("PreservesOrderAndIgnoresExtraFields", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/runtimes", r.URL.Path)
			_, _ = w.Write([]byte(`[
				{"language":"python","version":"3.10.0","aliases":["py"],"extra":true},
				{"language":"javascript","version":"18.15.0","runtime":"node"}
			]`))
		})

		runtimes, err := client.Runtimes(context.Background())
		require.NoError(t, err)
		require.Len(t, runtimes, 2)
		assert.Equal(t, "python", runtimes[0].Language)
		assert.Equal(t, "3.10.0", runtimes[0].Version)
		assert.Equal(t, []string{"py"}, runtimes[0].Aliases)
		assert.Equal(t, "javascript", runtimes[1].Language)
		assert.Equal(t, "node", runtimes[1].Runtime)
	})

	t.Run("NonSuccessStatus", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := client.Runtimes(context.Background())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
		assert.Equal(t, "request failed with status code 503", apiErr.Error())
	})

	t.Run("MalformedBody", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"language":`))
		})

		_, err := client.Runtimes(context.Background())
		require.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("TransportFailure", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()

		client := New(zaptest.NewLogger(t), WithRuntimesURL(server.URL))
		_, err := client.Runtimes(context.Background())
		require.ErrorIs(t, err, ErrTransport)
	})
}

func TestExecute(t *testing.T) {
	t.Run("SendsJSONPayload", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/execute", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"language":"python","version":"3.10.0","files":[{"content":"print(5)"}]}`, string(body))

			_, _ = w.Write([]byte(`{"language":"python","version":"3.10.0","run":{"stdout":"5\n","stderr":"","code":0,"signal":null,"output":"5\n"}}`))
		})

		resp, err := client.Execute(context.Background(), ExecuteRequest{
			Language: "python",
			Version:  "3.10.0",
			Files:    []File{{Content: "print(5)"}},
		})
		require.NoError(t, err)
		require.NotNil(t, resp.Run)
		assert.Equal(t, "5\n", resp.Run.Stdout)
		require.NotNil(t, resp.Run.Code)
		assert.Equal(t, 0, *resp.Run.Code)
		assert.Nil(t, resp.Run.Signal)
		assert.True(t, json.Valid(resp.Raw))
	})

	t.Run("MissingRunField", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"compile":{"stdout":""}}`))
		})

		resp, err := client.Execute(context.Background(), ExecuteRequest{Language: "c", Version: "10.2.0"})
		require.NoError(t, err)
		assert.Nil(t, resp.Run)
		assert.JSONEq(t, `{"compile":{"stdout":""}}`, string(resp.Raw))
	})

	t.Run("ErrorBodyMessage", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"bad language"}`))
		})

		_, err := client.Execute(context.Background(), ExecuteRequest{Language: "cobol"})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "bad language", apiErr.Message)
		assert.JSONEq(t, `{"message":"bad language"}`, string(apiErr.Body))
	})

	t.Run("ErrorBodyNotJSON", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
		})

		_, err := client.Execute(context.Background(), ExecuteRequest{Language: "python"})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Empty(t, apiErr.Message)
	})

	t.Run("MalformedBodyKeepsPayload", func(t *testing.T) {
		for _, body := range []string{`[1,2]`, `<html>oops</html>`, `{"run":"x"}`} {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := client.Execute(context.Background(), ExecuteRequest{Language: "python"})
			require.ErrorIs(t, err, ErrMalformedResponse, body)

			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed, body)
			assert.Equal(t, body, string(malformed.Body))
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Execute(ctx, ExecuteRequest{Language: "python"})
		require.ErrorIs(t, err, ErrTransport)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

// countingTransport records how many requests went through it
type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	return http.DefaultTransport.RoundTrip(req)
}

func TestClientOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	t.Run("TimeoutKeepsCustomHTTPClient", func(t *testing.T) {
		transport := &countingTransport{}
		custom := &http.Client{Transport: transport}

		client := New(zaptest.NewLogger(t),
			WithHTTPClient(custom),
			WithTimeout(5*time.Second),
			WithRuntimesURL(server.URL),
		)

		_, err := client.Runtimes(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, transport.calls)
		assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
		assert.Zero(t, custom.Timeout)
	})

	t.Run("ZeroTimeout", func(t *testing.T) {
		client := New(zaptest.NewLogger(t), WithTimeout(0))
		assert.Zero(t, client.httpClient.Timeout)
	})
}
