package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(bookingCreated.WithLabelValues(OutcomeConflict))
	IncBookingAttempt(OutcomeConflict)
	assert.Equal(t, before+1, testutil.ToFloat64(bookingCreated.WithLabelValues(OutcomeConflict)))

	before = testutil.ToFloat64(bookingCancelled)
	IncBookingCancelled()
	assert.Equal(t, before+1, testutil.ToFloat64(bookingCancelled))

	before = testutil.ToFloat64(httpRequests.WithLabelValues("rooms", "200"))
	IncHTTP("rooms", "200")
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("rooms", "200")))

	ObserveLockWait(3 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(roomLockWait))
}
