package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/okian/essayscore/internal/config"
	"github.com/okian/essayscore/pkg/logger"
	"github.com/okian/essayscore/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)

		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("ESSAY_ADDR", ":8080")
			_ = os.Setenv("ESSAY_SCORING_TIMEOUT_MS", "1500")
			defer func() {
				_ = os.Unsetenv("ESSAY_ADDR")
				_ = os.Unsetenv("ESSAY_SCORING_TIMEOUT_MS")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ScoringTimeoutMS, convey.ShouldEqual, 1500)
			})
		})

		convey.Convey("When wiring the service from defaults", func() {
			ctx := context.Background()
			svc := newService(config.New(ctx), logger.Get())
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()
			mux := newMux(ctx, svc)

			get := func(path string) *httptest.ResponseRecorder {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				return w
			}

			convey.Convey("Then API, docs and client routes are all served", func() {
				convey.So(get("/prompt").Body.String(), convey.ShouldContainSubstring, "patience")
				convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
				convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
				convey.So(get("/").Body.String(), convey.ShouldContainSubstring, "essay-form")
				convey.So(get("/essays").Code, convey.ShouldEqual, http.StatusUnauthorized)
			})

			convey.Convey("Then the service metrics updater reads its stats", func() {
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When updating system metrics", func() {
			updateSystemMetrics()

			convey.Convey("Then the goroutine gauge is exported", func() {
				n, err := testutil.GatherAndCount(metrics.GetRegistry(), "essayscore_core_system_goroutines")
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the updaters see a cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			convey.Convey("Then they return", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			})
		})
	})
}
