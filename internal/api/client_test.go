package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"imsenvista/internal/config"
	"imsenvista/internal/models"
	"imsenvista/internal/testdata"
)

// fakeEnvista serves canned bodies by path and records what it saw
type fakeEnvista struct {
	routes   map[string]response
	hits     atomic.Int32
	lastReq  atomic.Pointer[http.Request]
	fallback response
}

type response struct {
	status int
	body   []byte
}

func newFakeEnvista(t *testing.T, routes map[string]response) (*fakeEnvista, *httptest.Server) {
	t.Helper()
	f := &fakeEnvista{routes: routes, fallback: response{status: http.StatusNotFound, body: []byte(`{"message":"not found"}`)}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.lastReq.Store(r.Clone(context.Background()))

		resp, ok := f.routes[r.URL.RequestURI()]
		if !ok {
			resp = f.fallback
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		w.Write(resp.body)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBaseURL(baseURL),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	client, err := NewClient("test-token", opts...)
	require.NoError(t, err)
	return client
}

func ok(body []byte) response {
	return response{status: http.StatusOK, body: body}
}

func TestNewClient(t *testing.T) {
	client, err := NewClient("token")
	require.NoError(t, err)
	require.NotNil(t, client)

	assert.Equal(t, DefaultBaseURL, client.transport.baseURL)
	assert.Equal(t, "Bearer", client.transport.authScheme)
	assert.Equal(t, defaultTimeout, client.transport.httpClient.Timeout)
}

func TestNewClient_EmptyToken(t *testing.T) {
	for _, token := range []string{"", "   "} {
		client, err := NewClient(token)
		assert.Nil(t, client)

		var authErr *AuthenticationError
		require.ErrorAs(t, err, &authErr)
		assert.Zero(t, authErr.StatusCode)
	}
}

func TestNewClient_InvalidOptions(t *testing.T) {
	_, err := NewClient("token", WithLanguage("fr"))
	var langErr *UnsupportedLanguageError
	assert.ErrorAs(t, err, &langErr)

	_, err = NewClient("token", WithBaseURL(""))
	assert.Error(t, err)

	_, err = NewClient("token", WithHTTPClient(nil))
	assert.Error(t, err)

	_, err = NewClient("token", WithAuthScheme(" "))
	assert.Error(t, err)
}

func TestGetStationInfo(t *testing.T) {
	fake, srv := newFakeEnvista(t, map[string]response{
		"/stations/22": ok(testdata.Station22(t)),
	})
	client := newTestClient(t, srv.URL, WithLanguage("en"))

	station, err := client.GetStationInfo(context.Background(), 22)
	require.NoError(t, err)

	assert.Equal(t, 22, station.ID)
	assert.Equal(t, "JERUSALEM GIVAT RAM", station.Name)
	assert.Len(t, station.Monitors, 16)

	req := fake.lastReq.Load()
	require.NotNil(t, req)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "en", req.Header.Get("Accept-Language"))
}

func TestGetStationInfo_AuthScheme(t *testing.T) {
	fake, srv := newFakeEnvista(t, map[string]response{
		"/stations/22": ok(testdata.Station22(t)),
	})
	client := newTestClient(t, srv.URL, WithAuthScheme("ApiToken"))

	_, err := client.GetStationInfo(context.Background(), 22)
	require.NoError(t, err)
	assert.Equal(t, "ApiToken test-token", fake.lastReq.Load().Header.Get("Authorization"))
	assert.Empty(t, fake.lastReq.Load().Header.Get("Accept-Language"))
}

func TestGetAllStationsInfo(t *testing.T) {
	_, srv := newFakeEnvista(t, map[string]response{
		"/stations": ok(testdata.Stations(t)),
	})
	client := newTestClient(t, srv.URL)

	stations, err := client.GetAllStationsInfo(context.Background())
	require.NoError(t, err)
	assert.Len(t, stations, 3)
}

func TestGetRegions(t *testing.T) {
	_, srv := newFakeEnvista(t, map[string]response{
		"/regions":    ok(testdata.Regions(t)),
		"/regions/13": ok(testdata.Region13(t)),
	})
	client := newTestClient(t, srv.URL)

	regions, err := client.GetAllRegionsInfo(context.Background())
	require.NoError(t, err)
	assert.Len(t, regions, 2)

	region, err := client.GetRegionInfo(context.Background(), 13)
	require.NoError(t, err)
	assert.Equal(t, 13, region.ID)
	assert.Equal(t, []int{178}, region.StationIDs())
}

func TestGetRegionInfo_NotFound(t *testing.T) {
	_, srv := newFakeEnvista(t, nil)
	client := newTestClient(t, srv.URL)

	_, err := client.GetRegionInfo(context.Background(), 9999)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, notFound.URL, "/regions/9999")
}

func TestGetLatestStationData_Idempotent(t *testing.T) {
	fake, srv := newFakeEnvista(t, map[string]response{
		"/stations/22/data/latest": ok(testdata.Latest22(t)),
	})
	client := newTestClient(t, srv.URL)

	first, err := client.GetLatestStationData(context.Background(), 22, ChannelOptions{})
	require.NoError(t, err)
	second, err := client.GetLatestStationData(context.Background(), 22, ChannelOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 2, fake.hits.Load(), "every call must hit the service")

	td, present := first.Data[0].Value(models.VarTD)
	require.True(t, present)
	assert.InDelta(t, 18.6, td, 1e-9)
}

func TestReadingOperations_Paths(t *testing.T) {
	body := testdata.Range22(t)
	fake, srv := newFakeEnvista(t, map[string]response{
		"/stations/22/data/7/latest":                      ok(body),
		"/stations/22/data/earliest":                      ok(body),
		"/stations/22/data/daily":                         ok(body),
		"/stations/22/data/7/daily/2024/03/14":            ok(body),
		"/stations/22/data?from=2024/03/14&to=2024/03/15": ok(body),
		"/stations/22/data/monthly/2024/03":               ok(body),
		"/stations/22/data/monthly":                       ok(body),
	})
	client := newTestClient(t, srv.URL)
	client.now = func() time.Time { return date(2024, time.March, 15) }
	ctx := context.Background()
	ch := ChannelOptions{ChannelID: ptr.To(7)}

	calls := []struct {
		name string
		call func() (*models.StationMeteorologicalReadings, error)
	}{
		{"latest", func() (*models.StationMeteorologicalReadings, error) { return client.GetLatestStationData(ctx, 22, ch) }},
		{"earliest", func() (*models.StationMeteorologicalReadings, error) {
			return client.GetEarliestStationData(ctx, 22, ChannelOptions{})
		}},
		{"daily", func() (*models.StationMeteorologicalReadings, error) {
			return client.GetDailyStationData(ctx, 22, ChannelOptions{})
		}},
		{"from date", func() (*models.StationMeteorologicalReadings, error) {
			return client.GetStationDataFromDate(ctx, 22, date(2024, time.March, 14), ch)
		}},
		{"range", func() (*models.StationMeteorologicalReadings, error) {
			return client.GetStationDataByDateRange(ctx, 22, date(2024, time.March, 14), date(2024, time.March, 15), ChannelOptions{})
		}},
		{"monthly by year", func() (*models.StationMeteorologicalReadings, error) {
			return client.GetMonthlyStationData(ctx, 22, MonthlyOptions{Year: ptr.To("2024")})
		}},
		{"monthly current", func() (*models.StationMeteorologicalReadings, error) {
			return client.GetMonthlyStationData(ctx, 22, MonthlyOptions{})
		}},
	}

	for _, c := range calls {
		t.Run(c.name, func(t *testing.T) {
			readings, err := c.call()
			require.NoError(t, err)
			assert.Equal(t, 22, readings.StationID)
			assert.Len(t, readings.Data, 3)
		})
	}
	assert.EqualValues(t, len(calls), fake.hits.Load())
}

func TestGetStationDataByDateRange_InvalidRangeMakesNoRequest(t *testing.T) {
	fake, srv := newFakeEnvista(t, nil)
	client := newTestClient(t, srv.URL)

	_, err := client.GetStationDataByDateRange(context.Background(), 22,
		date(2024, time.March, 10), date(2024, time.March, 9), ChannelOptions{})

	var rangeErr *InvalidRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Zero(t, fake.hits.Load())
}

func TestGetMonthlyStationData_InvalidMonthMakesNoRequest(t *testing.T) {
	fake, srv := newFakeEnvista(t, nil)
	client := newTestClient(t, srv.URL)

	for _, month := range []string{"1", "13", "00", "ab", "123"} {
		_, err := client.GetMonthlyStationData(context.Background(), 22,
			MonthlyOptions{Month: ptr.To(month), Year: ptr.To("2024")})
		var paramErr *InvalidParameterError
		require.ErrorAs(t, err, &paramErr, month)
	}
	assert.Zero(t, fake.hits.Load())
}

func TestGetLatestStationData_NoContent(t *testing.T) {
	_, srv := newFakeEnvista(t, map[string]response{
		"/stations/22/data/latest": {status: http.StatusNoContent},
	})
	client := newTestClient(t, srv.URL)

	readings, err := client.GetLatestStationData(context.Background(), 22, ChannelOptions{})
	require.NoError(t, err)
	assert.Equal(t, 22, readings.StationID)
	assert.NotNil(t, readings.Data)
	assert.Empty(t, readings.Data)
}

func TestGetStationInfo_NoContent(t *testing.T) {
	_, srv := newFakeEnvista(t, map[string]response{
		"/stations/22": {status: http.StatusNoContent},
	})
	client := newTestClient(t, srv.URL)

	_, err := client.GetStationInfo(context.Background(), 22)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusNoContent, svcErr.StatusCode)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			var authErr *AuthenticationError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
		}},
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) {
			var authErr *AuthenticationError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, http.StatusForbidden, authErr.StatusCode)
		}},
		{"not found", http.StatusNotFound, func(t *testing.T, err error) {
			var notFound *NotFoundError
			require.ErrorAs(t, err, &notFound)
		}},
		{"server error", http.StatusInternalServerError, func(t *testing.T, err error) {
			var svcErr *ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
			assert.Equal(t, `{"error":"boom"}`, svcErr.Body)
		}},
		{"too many requests", http.StatusTooManyRequests, func(t *testing.T, err error) {
			var svcErr *ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, http.StatusTooManyRequests, svcErr.StatusCode)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeEnvista(t, map[string]response{
				"/stations/22/data/latest": {status: tt.status, body: []byte(`{"error":"boom"}`)},
			})
			client := newTestClient(t, srv.URL)

			_, err := client.GetLatestStationData(context.Background(), 22, ChannelOptions{})
			tt.check(t, err)
		})
	}
}

func TestTransportError_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := newTestClient(t, url)
	_, err := client.GetAllStationsInfo(context.Background())

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Contains(t, transportErr.URL, "/stations")
}

func TestTransportError_Deadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetDailyStationData(ctx, 22, ChannelOptions{})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseErrorPropagates(t *testing.T) {
	_, srv := newFakeEnvista(t, map[string]response{
		"/stations/22/data/latest": ok([]byte(`{"stationId": 22, "data": [{"channels": []}]}`)),
		"/stations/22":             ok([]byte(`{"stationId": 22, "name": "X"}`)),
	})
	client := newTestClient(t, srv.URL)

	_, err := client.GetLatestStationData(context.Background(), 22, ChannelOptions{})
	var parseErr *models.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "data[0].datetime", parseErr.Field)

	_, err = client.GetStationInfo(context.Background(), 22)
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "location", parseErr.Field)
}

func TestGetMetricDescriptions(t *testing.T) {
	client, err := NewClient("token")
	require.NoError(t, err)

	vars := client.GetMetricDescriptions()
	assert.Len(t, vars, 20)

	found := false
	for _, v := range vars {
		if v.Code == models.VarTD {
			found = true
			assert.Equal(t, "°C", v.Unit)
		}
	}
	assert.True(t, found)
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := config.EnvistaConfig{
		BaseURL:    "http://localhost:9000/v1/envista/",
		Token:      "token",
		Language:   "he",
		AuthScheme: "ApiToken",
		Timeout:    5 * time.Second,
	}

	client, err := NewClientFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/v1/envista", client.transport.baseURL)
	assert.Equal(t, "ApiToken", client.transport.authScheme)
	assert.Equal(t, LanguageHebrew, client.transport.language)
	assert.Equal(t, 5*time.Second, client.transport.httpClient.Timeout)

	_, err = NewClientFromConfig(config.EnvistaConfig{}, nil)
	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestIDMismatchIsLogged(t *testing.T) {
	_, srv := newFakeEnvista(t, map[string]response{
		"/stations/23":             ok(testdata.Station22(t)),
		"/regions/7":               ok(testdata.Region13(t)),
		"/stations/23/data/latest": ok(testdata.Latest22(t)),
		"/stations/22":             ok(testdata.Station22(t)),
	})

	var logs bytes.Buffer
	client := newTestClient(t, srv.URL, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	ctx := context.Background()

	station, err := client.GetStationInfo(ctx, 23)
	require.NoError(t, err)
	assert.Equal(t, 22, station.ID)
	assert.Contains(t, logs.String(), "station id mismatch in response")
	assert.Contains(t, logs.String(), "requested=23 got=22")

	logs.Reset()
	region, err := client.GetRegionInfo(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 13, region.ID)
	assert.Contains(t, logs.String(), "region id mismatch in response")

	logs.Reset()
	_, err = client.GetLatestStationData(ctx, 23, ChannelOptions{})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "station id mismatch in response")

	logs.Reset()
	_, err = client.GetStationInfo(ctx, 22)
	require.NoError(t, err)
	assert.Empty(t, logs.String())
}
