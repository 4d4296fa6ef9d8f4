package stooq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tst "github.com/BenPfeffer-bot/AssetManagementTracker/internal/testing"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient(tst.SilentLogger())
	c.baseURL = srv.URL
	return c, srv
}

func TestFetchDailyParsesCSV(t *testing.T) {
	var gotQuery map[string]string
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"s":  r.URL.Query().Get("s"),
			"d1": r.URL.Query().Get("d1"),
			"d2": r.URL.Query().Get("d2"),
			"i":  r.URL.Query().Get("i"),
		}
		w.Write([]byte("Date,Open,High,Low,Close,Volume\n" +
			"2024-01-02,100,102,99,101.5,12000\n" +
			"2024-01-03,101.5,103,100,102.25,9000\n"))
	})
	defer srv.Close()

	from := tst.Day(2024, time.January, 1)
	to := tst.Day(2024, time.January, 31)
	points, err := c.FetchDaily(context.Background(), "SPY.US", from, to)
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, tst.Day(2024, time.January, 2), points[0].Date)
	assert.Equal(t, 101.5, points[0].Close)
	assert.Equal(t, 102.25, points[1].Close)

	assert.Equal(t, "spy.us", gotQuery["s"])
	assert.Equal(t, "20240101", gotQuery["d1"])
	assert.Equal(t, "20240131", gotQuery["d2"])
	assert.Equal(t, "d", gotQuery["i"])
}

func TestFetchDailySkipsBadRows(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Date,Open,High,Low,Close,Volume\n" +
			"2024-01-02,100,102,99,101.5,12000\n" +
			"not-a-date,1,1,1,1,1\n" +
			"2024-01-03,100,102,99,0,12000\n" +
			"2024-01-04,100,102,99,-3,12000\n" +
			"2024-01-05,100,102,99,abc,12000\n" +
			"2024-01-08,100,102,99,104,12000\n"))
	})
	defer srv.Close()

	points, err := c.FetchDaily(context.Background(), "SPY.US", time.Now().AddDate(0, -1, 0), time.Now())
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, 101.5, points[0].Close)
	assert.Equal(t, 104.0, points[1].Close)
}

func TestFetchDailyNonOKStatus(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer srv.Close()

	_, err := c.FetchDaily(context.Background(), "SPY.US", time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestFetchDailyEmptyData(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Date,Open,High,Low,Close,Volume\n"))
	})
	defer srv.Close()

	_, err := c.FetchDaily(context.Background(), "BOGUS.US", time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no price data")
}

func TestFetchDailyMissingColumns(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Foo,Bar\n1,2\n"))
	})
	defer srv.Close()

	_, err := c.FetchDaily(context.Background(), "SPY.US", time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Date/Close")
}

func TestFetchDailyContextCancelled(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchDaily(ctx, "SPY.US", time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
}
