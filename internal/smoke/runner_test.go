package smoke_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/essayscore/internal/adapters/http/api"
	"github.com/okian/essayscore/internal/adapters/scoring"
	"github.com/okian/essayscore/internal/adapters/scoring/stub"
	service "github.com/okian/essayscore/internal/app"
	"github.com/okian/essayscore/internal/smoke"
	"github.com/okian/essayscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newAPI(st *stub.Server) (*httptest.Server, func()) {
	scoringSrv := httptest.NewServer(st.Handler())
	svc := service.New(service.WithScorer(scoring.NewClient(scoringSrv.URL)))
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	apiSrv := httptest.NewServer(mux)
	return apiSrv, func() {
		apiSrv.Close()
		svc.Stop()
		scoringSrv.Close()
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running API backed by the simulated scorer", t, func() {
		st := stub.New(stub.WithLatencyRange(20*time.Millisecond, 40*time.Millisecond))
		srv, cleanup := newAPI(st)
		defer cleanup()

		Convey("When the smoke scenario runs", func() {
			stats, err := smoke.Run(context.Background(), &smoke.Config{
				BaseURL:     srv.URL,
				Submissions: 4,
				Timeout:     5 * time.Second,
				Seed:        3,
			})

			Convey("Then every check passes", func() {
				So(err, ShouldBeNil)
				So(stats.Submitted, ShouldEqual, 6)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.ConcurrentCommitted, ShouldBeBetweenOrEqual, 1, 2)
				So(stats.Committed+stats.Rejected, ShouldEqual, 6)
				So(stats.Scores, ShouldHaveLength, stats.Committed)
			})
		})

		Convey("When feedback generation is down", func() {
			st.SetFailing(scoring.EndpointFeedback, true)
			stats, err := smoke.Run(context.Background(), &smoke.Config{
				BaseURL:     srv.URL,
				Email:       "down@test.com",
				Submissions: 2,
				Timeout:     5 * time.Second,
			})

			Convey("Then failures are counted and nothing is stored", func() {
				So(err, ShouldBeNil)
				So(stats.Committed, ShouldEqual, 0)
				So(stats.Failed+stats.Rejected, ShouldEqual, 4)
				So(stats.Average, ShouldEqual, 0.0)
			})
		})
	})

	Convey("Given no API at all", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("Then the run fails at the health check", func() {
			_, err := smoke.Run(context.Background(), &smoke.Config{BaseURL: url, Timeout: time.Second})
			So(err, ShouldNotBeNil)
			So(errors.Is(err, smoke.ErrVerification), ShouldBeFalse)
		})
	})
}
