package observability

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danmuck/farectl/internal/desfire"
	"github.com/danmuck/farectl/internal/testutil/cardtest"
	"github.com/danmuck/farectl/internal/testutil/testlog"
	"github.com/danmuck/farectl/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("farectl-a", "GET", "/health", 200, 12*time.Millisecond)
	RecordClassification("")
	RecordDump(nil, errors.New("boom"), time.Millisecond)
}

func TestDumpOutcome(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{&transport.Error{Op: "transceive", Err: transport.ErrLinkLost}, OutcomeTransport},
		{fmt.Errorf("get version: %w", desfire.ErrProtocol), OutcomeProtocol},
		{errors.New("other"), OutcomeError},
	}
	for _, tc := range cases {
		if got := DumpOutcome(tc.err); got != tc.want {
			t.Fatalf("DumpOutcome(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestRecordDumpCountsFiles(t *testing.T) {
	testlog.Start(t)
	c := cardtest.Purse(t, "1009123456789012", 100, cardtest.Tx(0x31, -90, 60, "SVC 012 "))

	okBefore := testutil.ToFloat64(dumpsTotal.WithLabelValues(OutcomeOK))
	logBefore := testutil.ToFloat64(filesTotal.WithLabelValues("log"))
	RecordDump(c, nil, 20*time.Millisecond)

	if got := testutil.ToFloat64(dumpsTotal.WithLabelValues(OutcomeOK)); got != okBefore+1 {
		t.Fatalf("ok dumps = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(filesTotal.WithLabelValues("log")); got != logBefore+1 {
		t.Fatalf("log files = %v, want %v", got, logBefore+1)
	}
}

func TestRequestMetricsMiddleware(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()), RequestMetricsMiddleware("test"))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("test", "GET", "/ping", "200"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("test", "GET", "/ping", "200")); got != before+1 {
		t.Fatalf("requests = %v, want %v", got, before+1)
	}
}
