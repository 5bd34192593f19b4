package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRequestIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("tools/list"))
	RecordRequest("tools/list")
	after := testutil.ToFloat64(requestsTotal.WithLabelValues("tools/list"))
	assert.Equal(t, before+1, after)
}

func TestRecordOverloadIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(overloadedTotal.WithLabelValues("tools/call"))
	RecordOverload("tools/call")
	after := testutil.ToFloat64(overloadedTotal.WithLabelValues("tools/call"))
	assert.Equal(t, before+1, after)
}

func TestRecordHandlerErrorIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(handlerErrorsTotal.WithLabelValues("prompts/get"))
	RecordHandlerError("prompts/get")
	after := testutil.ToFloat64(handlerErrorsTotal.WithLabelValues("prompts/get"))
	assert.Equal(t, before+1, after)
}

func TestObserveHandlerDurationRecordsSample(t *testing.T) {
	beforeCount := testutil.CollectAndCount(handlerDuration)
	ObserveHandlerDuration("resources/read", 15*time.Millisecond)
	afterCount := testutil.CollectAndCount(handlerDuration)
	assert.GreaterOrEqual(t, afterCount, beforeCount)
}

func TestSSEConnectionGaugeTracksOpenClose(t *testing.T) {
	before := testutil.ToFloat64(sseConnections)
	SSEConnectionOpened()
	assert.Equal(t, before+1, testutil.ToFloat64(sseConnections))
	SSEConnectionClosed()
	assert.Equal(t, before, testutil.ToFloat64(sseConnections))
}
