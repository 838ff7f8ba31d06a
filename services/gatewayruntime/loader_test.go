package gatewayruntime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/lib/myhttpclient"
	"github.com/goswami6/satyampay-checkout/lib/mymetrics"
	"github.com/goswami6/satyampay-checkout/lib/mytime"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

const runtimeURL = "https://checkout.gateway.example/v1/checkout.js"

func setup(t *testing.T) (*Loader, *MockSource) {
	ctrl := gomock.NewController(t)
	source := NewMockSource(ctrl)
	source.EXPECT().URL().Return(runtimeURL).AnyTimes()
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	return NewLoader(source, nower, mymetrics.Noop{}), source
}

func TestEnsure(t *testing.T) {
	t.Run("Loads once", func(t *testing.T) {
		sut, source := setup(t)
		source.EXPECT().Fetch(gomock.Any()).Return([]byte("window.Gateway = {}"), nil).Times(1)

		assert.Equal(t, StateNotLoaded, sut.State())

		runtime, err := sut.Ensure(context.TODO())
		assert.NoError(t, err)
		assert.Equal(t, runtimeURL, runtime.SourceURL)
		assert.Equal(t, mytime.ExampleTime, runtime.LoadedAt)

		_, err = sut.Ensure(context.TODO())
		assert.NoError(t, err)
		assert.Equal(t, StateLoaded, sut.State())
	})

	t.Run("Concurrent callers share one load", func(t *testing.T) {
		sut, source := setup(t)
		release := make(chan struct{})
		source.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(c context.Context) ([]byte, error) {
			<-release
			return []byte("window.Gateway = {}"), nil
		}).Times(1)

		const callers = 10
		wg := sync.WaitGroup{}
		errs := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := sut.Ensure(context.TODO())
				errs <- err
			}()
		}

		assert.Eventually(t, func() bool { return sut.State() == StateLoading }, time.Second, time.Millisecond)
		close(release)
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, StateLoaded, sut.State())
	})

	t.Run("Failure is reported and retried on next call", func(t *testing.T) {
		sut, source := setup(t)
		gomock.InOrder(
			source.EXPECT().Fetch(gomock.Any()).Return(nil, fmt.Errorf("dns failure")),
			source.EXPECT().Fetch(gomock.Any()).Return([]byte("window.Gateway = {}"), nil),
		)

		_, err := sut.Ensure(context.TODO())
		assert.True(t, errors.Is(err, checkoutapi.ErrGatewayLoadFailed))
		assert.Equal(t, http.StatusServiceUnavailable, myerrors.GetHTTPStatus(err))
		assert.Equal(t, "failed to load payment gateway", myerrors.Cause(err).Error())
		assert.Equal(t, StateFailed, sut.State())

		_, err = sut.Ensure(context.TODO())
		assert.NoError(t, err)
		assert.Equal(t, StateLoaded, sut.State())
	})

	t.Run("Cancelled caller does not wait", func(t *testing.T) {
		sut, source := setup(t)
		release := make(chan struct{})
		source.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(c context.Context) ([]byte, error) {
			<-release
			return []byte("x"), nil
		}).Times(1)

		c, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := sut.Ensure(c)
		assert.ErrorIs(t, err, checkoutapi.ErrGatewayLoadFailed)

		// the load itself carries on for others
		close(release)
		assert.Eventually(t, func() bool { return sut.State() == StateLoaded }, time.Second, time.Millisecond)
	})
}

func TestHTTPSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := myhttpclient.NewMockHTTPSender(ctrl)
	source := NewHTTPSource(runtimeURL, sender)

	sender.EXPECT().Send(gomock.Any(), http.MethodGet, runtimeURL, nil).Return(200, []byte("js"), nil)
	script, err := source.Fetch(context.TODO())
	assert.NoError(t, err)
	assert.Equal(t, []byte("js"), script)

	sender.EXPECT().Send(gomock.Any(), http.MethodGet, runtimeURL, nil).Return(404, []byte("gone"), nil)
	_, err = source.Fetch(context.TODO())
	assert.Error(t, err)
}

func TestScriptEndpoint(t *testing.T) {
	nower := mytime.NewMockNower(gomock.NewController(t))
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	sut := NewLoader(NewStaticSource("sandbox", []byte("window.Gateway = {}")), nower, mymetrics.Noop{})

	router := mux.NewRouter()
	sut.RegisterEndpoints(context.TODO(), router)

	request, err := http.NewRequest(http.MethodGet, ScriptPath, nil)
	assert.NoError(t, err)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, "application/javascript; charset=utf-8", response.Header().Get("Content-Type"))
	assert.Equal(t, "window.Gateway = {}", response.Body.String())
}
