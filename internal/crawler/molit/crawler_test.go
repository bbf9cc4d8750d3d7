package molit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgh3326/rent-radar/internal/domain"
	"github.com/mgh3326/rent-radar/internal/fetch"
	"github.com/mgh3326/rent-radar/internal/logger"
)

func testClient() *fetch.Client {
	return fetch.NewClient(fetch.Config{
		RequestTimeout: time.Second,
		MaxRetries:     0,
		BaseDelay:      time.Millisecond,
	}, nil, logger.NewNop())
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, time.September, 15, 12, 0, 0, 0, time.UTC)
	}
}

func tradeItemXML(day int) string {
	return fmt.Sprintf(`<item>
		<dealYear>2025</dealYear>
		<dealMonth>9</dealMonth>
		<dealDay>%d</dealDay>
		<umdNm>아현동</umdNm>
		<deposit>10,000</deposit>
		<monthlyRent>50</monthlyRent>
	</item>`, day)
}

func TestRunWalksMonthWindow(t *testing.T) {
	var months []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("serviceKey"))
		assert.Equal(t, "11440", r.URL.Query().Get("LAWD_CD"))
		months = append(months, r.URL.Query().Get("DEAL_YMD"))

		w.Write([]byte(`<response><body><items>` + tradeItemXML(1) + `</items></body></response>`))
	}))
	defer server.Close()

	c := New(testClient(), logger.NewNop(), Config{
		APIKey:      "test-key",
		Endpoint:    server.URL,
		RegionCodes: []string{"11440"},
		FetchMonths: 2,
	}, WithClock(fixedClock()))

	result, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"202509", "202508"}, months)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, domain.RentMonthly, result.Rows[0].RentType)
}

func TestTargetMonthsCrossesYearBoundary(t *testing.T) {
	c := New(testClient(), logger.NewNop(), Config{
		RegionCodes: []string{"11110"},
		FetchMonths: 3,
	}, WithClock(func() time.Time {
		return time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	}))

	assert.Equal(t, []string{"202601", "202512", "202511"}, c.targetMonths())
}

func TestRunSchemaMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Items exist but none carries a contract date.
		w.Write([]byte(`<response><body><items>
			<item><deposit>1,000</deposit></item>
		</items></body></response>`))
	}))
	defer server.Close()

	c := New(testClient(), logger.NewNop(), Config{
		APIKey:      "k",
		Endpoint:    server.URL,
		RegionCodes: []string{"11110"},
		FetchMonths: 1,
	}, WithClock(fixedClock()))

	_, err := c.Run(context.Background())
	require.Error(t, err)

	var mismatch *domain.SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "molit", mismatch.Source)
}

func TestRunFetchFailureRecordedAsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := New(testClient(), logger.NewNop(), Config{
		APIKey:      "k",
		Endpoint:    server.URL,
		RegionCodes: []string{"11110"},
		FetchMonths: 1,
	}, WithClock(fixedClock()))

	result, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Len(t, result.Errors, 1)
}
