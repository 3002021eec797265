package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.OrderCreated()
		m.Confirmation(OutcomeConfirmed)
		m.Rejection()
		m.KeysAdded(3)
		m.SetAvailableKeys(2)
		m.RegisterRuntime()
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})
	assert.NotNil(t, m.Instrument("noop", next))
}

func TestCounters(t *testing.T) {
	m := New()

	m.OrderCreated()
	m.OrderCreated()
	m.Confirmation(OutcomeConfirmed)
	m.Confirmation(OutcomeNoKey)
	m.Confirmation(OutcomeNoKey)
	m.KeysAdded(5)
	m.SetAvailableKeys(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirmations.WithLabelValues(OutcomeConfirmed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.confirmations.WithLabelValues(OutcomeNoKey)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.keysAdded))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.availableKeys))
}

func TestInstrumentAndHandler(t *testing.T) {
	m := New()

	handler := m.Instrument("orders", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("orders", http.MethodPost, "201")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "keyshop_http_requests_total"))
}

func TestRegisterRuntime(t *testing.T) {
	m := New()
	m.RegisterRuntime()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"], "expected go runtime collector")
}
