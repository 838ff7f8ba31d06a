package mylog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goswami6/satyampay-checkout/lib/mycontext"
)

func TestEntryIsValidJSON(t *testing.T) {
	e := entry{
		Component: "checkout",
		Labels:    map[string]string{"aggregate": "link_123"},
		Trace:     "projects/p/traces/abc",
		Severity:  string(SeverityWarn),
		Message:   "checkout: order rejected",
	}

	parsed := map[string]any{}
	err := json.Unmarshal([]byte(e.String()), &parsed)
	assert.NoError(t, err)
	assert.Equal(t, "projects/p/traces/abc", parsed["logging.googleapis.com/trace"])
	assert.Equal(t, "WARN", parsed["severity"])
}

func TestLoggersDoNotPanicWithoutTrace(t *testing.T) {
	c := context.Background()
	assert.NotPanics(t, func() {
		newGcloudLogger("test").Log(c, "label", SeverityInfo, "hello %s", "world")
		newStandardLogger("test").Log(c, "label", SeverityError, "hello %s", "world")
	})

	c = mycontext.WithTrace(c, "projects/p/traces/abc")
	assert.NotPanics(t, func() {
		newGcloudLogger("test").Log(c, "label", SeverityDebug, "hello")
	})
}
