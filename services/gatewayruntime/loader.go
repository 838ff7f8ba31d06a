package gatewayruntime

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/lib/myhttpclient"
	"github.com/goswami6/satyampay-checkout/lib/mylog"
	"github.com/goswami6/satyampay-checkout/lib/mymetrics"
	"github.com/goswami6/satyampay-checkout/lib/mytime"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

type State string

const (
	StateNotLoaded State = "not_loaded"
	StateLoading   State = "loading"
	StateLoaded    State = "loaded"
	StateFailed    State = "failed"
)

const (
	loadKey     = "runtime"
	loadTimeout = 10 * time.Second
)

type Runtime struct {
	SourceURL string
	Script    []byte
	LoadedAt  time.Time
}

//go:generate mockgen -source=loader.go -package gatewayruntime -destination loader_mock.go Source
type Source interface {
	URL() string
	Fetch(c context.Context) ([]byte, error)
}

// Loader holds the embedded gateway runtime for the whole process.
// Concurrent callers share a single in-flight load.
type Loader struct {
	source  Source
	nower   mytime.Nower
	metrics mymetrics.Recorder
	logger  mylog.Logger
	group   singleflight.Group

	mutex   sync.Mutex
	state   State
	runtime Runtime
	lastErr error
}

func NewLoader(source Source, nower mytime.Nower, metrics mymetrics.Recorder) *Loader {
	return &Loader{
		source:  source,
		nower:   nower,
		metrics: metrics,
		logger:  mylog.New("gatewayruntime"),
		state:   StateNotLoaded,
	}
}

func (l *Loader) State() State {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.state
}

// Ensure returns the loaded runtime, loading it first when needed.
// After a failed load the next call tries again.
func (l *Loader) Ensure(c context.Context) (Runtime, error) {
	l.mutex.Lock()
	if l.state == StateLoaded {
		runtime := l.runtime
		l.mutex.Unlock()
		return runtime, nil
	}
	l.state = StateLoading
	l.mutex.Unlock()

	// The load outlives the first requester, others may be waiting for it
	loadCtx := context.WithoutCancel(c)
	resultChan := l.group.DoChan(loadKey, func() (interface{}, error) {
		l.mutex.Lock()
		if l.state == StateLoaded {
			// a load finished while we were queueing up
			runtime := l.runtime
			l.mutex.Unlock()
			return runtime, nil
		}
		l.mutex.Unlock()

		return l.load(loadCtx)
	})

	select {
	case <-c.Done():
		return Runtime{}, myerrors.NewUnavailableError(fmt.Errorf("%w: %s", checkoutapi.ErrGatewayLoadFailed, c.Err()))
	case result := <-resultChan:
		if result.Err != nil {
			return Runtime{}, result.Err
		}
		return result.Val.(Runtime), nil
	}
}

func (l *Loader) load(c context.Context) (Runtime, error) {
	c, cancel := context.WithTimeout(c, loadTimeout)
	defer cancel()

	script, err := l.source.Fetch(c)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if err != nil {
		l.state = StateFailed
		l.lastErr = err
		l.metrics.RuntimeLoadObserved(string(StateFailed))
		l.logger.Log(c, "", mylog.SeverityError, "Error loading gateway runtime from %s: %s", l.source.URL(), err)
		return Runtime{}, myerrors.NewUnavailableError(fmt.Errorf("%w: %s", checkoutapi.ErrGatewayLoadFailed, err))
	}

	l.state = StateLoaded
	l.lastErr = nil
	l.runtime = Runtime{
		SourceURL: l.source.URL(),
		Script:    script,
		LoadedAt:  l.nower.Now(),
	}
	l.metrics.RuntimeLoadObserved(string(StateLoaded))
	l.logger.Log(c, "", mylog.SeverityInfo, "Loaded gateway runtime from %s (%d bytes)", l.source.URL(), len(script))

	return l.runtime, nil
}

type httpSource struct {
	url    string
	sender myhttpclient.HTTPSender
}

// NewHTTPSource fetches the runtime from the well-known url of the gateway.
func NewHTTPSource(url string, sender myhttpclient.HTTPSender) Source {
	return &httpSource{
		url:    url,
		sender: sender,
	}
}

func (s *httpSource) URL() string {
	return s.url
}

func (s *httpSource) Fetch(c context.Context) ([]byte, error) {
	status, body, err := s.sender.Send(c, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", status)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty script")
	}
	return body, nil
}

type staticSource struct {
	name   string
	script []byte
}

// NewStaticSource serves a runtime that is compiled in, like the sandbox one.
func NewStaticSource(name string, script []byte) Source {
	return &staticSource{
		name:   name,
		script: script,
	}
}

func (s *staticSource) URL() string {
	return s.name
}

func (s *staticSource) Fetch(c context.Context) ([]byte, error) {
	return s.script, nil
}
