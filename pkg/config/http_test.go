// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/hopwatch/hopwatch/internal/helper"
	"github.com/hopwatch/hopwatch/pkg/checks/runtime"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testConfigURL = "https://config.example.com/runtime.yaml"

func newTestHttpLoader(t *testing.T, cfg HttpLoaderConfig) *HttpLoader {
	t.Helper()
	l := NewHttpLoader(&Config{
		Loader: LoaderConfig{
			Type:     "http",
			Interval: time.Second,
			Http:     cfg,
		},
	}, make(chan runtime.Config, 1))
	httpmock.ActivateNonDefault(l.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return l
}

func TestHttpLoader_getRuntimeConfig(t *testing.T) {
	want := expectedTestConfig()
	body, err := yaml.Marshal(want)
	require.NoError(t, err)

	l := newTestHttpLoader(t, HttpLoaderConfig{
		Url:      testConfigURL,
		RetryCfg: helper.RetryConfig{Count: 1, Delay: time.Millisecond},
	})
	httpmock.RegisterResponder(http.MethodGet, testConfigURL,
		httpmock.NewBytesResponder(http.StatusOK, body))

	got, err := l.getRuntimeConfig(t.Context())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestHttpLoader_getRuntimeConfig_SetsAuthHeader(t *testing.T) {
	body, err := yaml.Marshal(expectedTestConfig())
	require.NoError(t, err)

	l := newTestHttpLoader(t, HttpLoaderConfig{
		Url:      testConfigURL,
		Token:    "my-cool-token",
		RetryCfg: helper.RetryConfig{Count: 1, Delay: time.Millisecond},
	})
	httpmock.RegisterResponder(http.MethodGet, testConfigURL,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer my-cool-token", req.Header.Get("Authorization"))
			return httpmock.NewBytesResponse(http.StatusOK, body), nil
		})

	_, err = l.getRuntimeConfig(t.Context())
	require.NoError(t, err)
}

func TestHttpLoader_getRuntimeConfig_RetriesOnFailure(t *testing.T) {
	l := newTestHttpLoader(t, HttpLoaderConfig{
		Url:      testConfigURL,
		RetryCfg: helper.RetryConfig{Count: 2, Delay: time.Millisecond},
	})
	httpmock.RegisterResponder(http.MethodGet, testConfigURL,
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	_, err := l.getRuntimeConfig(t.Context())
	assert.Error(t, err)
	assert.Equal(t, 3, httpmock.GetTotalCallCount(), "initial attempt plus two retries")
}

func TestHttpLoader_getRuntimeConfig_MalformedResponse(t *testing.T) {
	l := newTestHttpLoader(t, HttpLoaderConfig{
		Url:      testConfigURL,
		RetryCfg: helper.RetryConfig{Count: 1, Delay: time.Millisecond},
	})
	httpmock.RegisterResponder(http.MethodGet, testConfigURL,
		httpmock.NewStringResponder(http.StatusOK, "this is not a valid yaml content"))

	_, err := l.getRuntimeConfig(t.Context())
	assert.Error(t, err)
}

func TestHttpLoader_Run_DeliversConfig(t *testing.T) {
	body, err := yaml.Marshal(expectedTestConfig())
	require.NoError(t, err)

	cRuntime := make(chan runtime.Config, 1)
	l := NewHttpLoader(&Config{
		Loader: LoaderConfig{
			Type:     "http",
			Interval: 0,
			Http: HttpLoaderConfig{
				Url:      testConfigURL,
				RetryCfg: helper.RetryConfig{Count: 1, Delay: time.Millisecond},
			},
		},
	}, cRuntime)
	httpmock.ActivateNonDefault(l.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder(http.MethodGet, testConfigURL,
		httpmock.NewBytesResponder(http.StatusOK, body))

	require.NoError(t, l.Run(t.Context()))
	assert.Equal(t, expectedTestConfig(), <-cRuntime)
}
