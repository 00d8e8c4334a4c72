package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("Then Get and Named return usable loggers", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("session"), ShouldNotBeNil)
			So(func() { Get().Info(context.Background(), "hello", String("k", "v")) }, ShouldNotPanic)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		SetLevel(slog.LevelInfo)
		defer SetLevel(slog.LevelInfo)

		var buf bytes.Buffer
		l := New(&buf).Named("submit")
		ctx := context.Background()

		Convey("When logging at info with fields", func() {
			l.Info(ctx, "essay committed",
				String("identity", "u@test.com"),
				Int("history", 3),
				Float64("score", 18),
				Bool("concurrent", true),
				Duration("took", 1500*time.Millisecond),
			)
			out := buf.String()

			Convey("Then the record carries message, fields, name and source", func() {
				So(out, ShouldContainSubstring, "essay committed")
				So(out, ShouldContainSubstring, "identity=u@test.com")
				So(out, ShouldContainSubstring, "history=3")
				So(out, ShouldContainSubstring, "took=1.5s")
				So(out, ShouldContainSubstring, "logger=submit")
				So(out, ShouldContainSubstring, "source=")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging below the active level", func() {
			l.Debug(ctx, "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the level is lowered to debug", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			l.Debug(ctx, "visible")

			Convey("Then debug records appear", func() {
				So(buf.String(), ShouldContainSubstring, "visible")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		defer SetLevel(slog.LevelInfo)

		for _, lvl := range []string{"debug", "info", "", "warn", "warning", "error", " Error "} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()
		So(func() { l.Error(context.Background(), "boom", Error(nil)) }, ShouldNotPanic)
	})
}
