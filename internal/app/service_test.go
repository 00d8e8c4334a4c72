package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/essayscore/internal/adapters/scoring"
	service "github.com/okian/essayscore/internal/app"
	"github.com/okian/essayscore/internal/config"
	"github.com/okian/essayscore/internal/domain/model"
	"github.com/okian/essayscore/internal/domain/session"
	"github.com/okian/essayscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeScorer returns canned results. When block is set, every call waits
// on it after announcing itself on entered.
type fakeScorer struct {
	mu            sync.Mutex
	scores        []float64
	scoreErr      error
	feedbackErr   error
	scoreCalls    int
	feedbackCalls int

	block   chan struct{}
	entered chan struct{}
}

func newFakeScorer(scores ...float64) *fakeScorer {
	return &fakeScorer{scores: scores, entered: make(chan struct{}, 16)}
}

func (f *fakeScorer) wait(ctx context.Context) error {
	select {
	case f.entered <- struct{}{}:
	default:
	}
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeScorer) RequestScore(ctx context.Context, _ string) (model.Score, error) {
	if err := f.wait(ctx); err != nil {
		return model.Score{}, &scoring.ServiceError{Endpoint: scoring.EndpointScore, Err: err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoreCalls++
	if f.scoreErr != nil {
		return model.Score{}, f.scoreErr
	}
	d := 12.0
	if len(f.scores) > 0 {
		d, f.scores = f.scores[0], f.scores[1:]
	}
	return model.Score{
		Domain1Score: d, Rater1Domain1: d / 2, Rater2Domain1: d / 2,
		Rater1Trait1: 2, Rater1Trait2: 1, Rater1Trait3: 1, Rater1Trait4: 2,
		Rater2Trait1: 3, Rater2Trait2: 1, Rater2Trait3: 0, Rater2Trait4: 2,
	}, nil
}

func (f *fakeScorer) RequestFeedback(ctx context.Context, _ string) (model.Feedback, error) {
	if err := f.wait(ctx); err != nil {
		return nil, &scoring.ServiceError{Endpoint: scoring.EndpointFeedback, Err: err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedbackCalls++
	if f.feedbackErr != nil {
		return nil, f.feedbackErr
	}
	return model.Feedback{"Ideas": "Clear.", "Conventions": "Tidy."}, nil
}

func (f *fakeScorer) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scoreCalls, f.feedbackCalls
}

func statusError(endpoint string) error {
	return &scoring.ServiceError{Endpoint: endpoint, StatusCode: 500, Err: errors.New("boom")}
}

func startedService(fs *fakeScorer, opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithScorer(fs)}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service without a scorer", t, func() {
		svc := service.New()

		Convey("Then Start refuses to run", func() {
			So(svc.Start(context.Background()), ShouldEqual, service.ErrNoScorer)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a service with a scorer", t, func() {
		svc := service.New(service.WithScorer(newFakeScorer()))

		Convey("When starting and stopping it", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			svc.Stop()

			Convey("Then submissions are refused after Stop", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				_, err := svc.Login(context.Background(), "u@test.com")
				So(err, ShouldBeNil)
				_, err = svc.Submit(context.Background(), "", "essay")
				So(err, ShouldEqual, service.ErrNotStarted)
			})
		})
	})
}

func TestService_SessionLifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		fs := newFakeScorer()
		svc := startedService(fs)
		defer svc.Stop()

		Convey("When nobody is logged in", func() {
			_, active := svc.CurrentUser()
			So(active, ShouldBeFalse)
			_, err := svc.History()
			So(err, ShouldEqual, service.ErrNoActiveSession)
			_, err = svc.Profile()
			So(err, ShouldEqual, service.ErrNoActiveSession)
		})

		Convey("When logging in with a blank email", func() {
			_, err := svc.Login(ctx, " ")
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
			So(errors.Is(err, session.ErrEmptyIdentity), ShouldBeTrue)
		})

		Convey("When signing up with a mismatched confirmation", func() {
			_, err := svc.Signup(ctx, "n@test.com", "a", "b")
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
			So(errors.Is(err, session.ErrPasswordMismatch), ShouldBeTrue)
			var ve *service.ValidationError
			So(errors.As(err, &ve), ShouldBeTrue)
			So(ve.Field, ShouldEqual, "confirm_password")
		})

		Convey("When a user builds a history", func() {
			id, err := svc.Signup(ctx, "u@test.com", "pw", "pw")
			So(err, ShouldBeNil)
			So(id, ShouldEqual, model.Identity("u@test.com"))
			_, err = svc.Submit(ctx, "", "first essay")
			So(err, ShouldBeNil)

			Convey("Then logging in again as the same user keeps it", func() {
				_, err := svc.Login(ctx, "u@test.com")
				So(err, ShouldBeNil)
				recs, err := svc.History()
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 1)
				So(svc.Display().Empty(), ShouldBeFalse)
			})

			Convey("Then switching user starts an empty history", func() {
				_, err := svc.Login(ctx, "v@test.com")
				So(err, ShouldBeNil)
				recs, err := svc.History()
				So(err, ShouldBeNil)
				So(recs, ShouldBeEmpty)
				So(svc.Display().Empty(), ShouldBeTrue)
			})

			Convey("Then logout clears identity, history and display", func() {
				svc.Logout(ctx)
				svc.Logout(ctx)
				_, active := svc.CurrentUser()
				So(active, ShouldBeFalse)
				So(svc.Display().Empty(), ShouldBeTrue)

				_, err := svc.Login(ctx, "u@test.com")
				So(err, ShouldBeNil)
				recs, err := svc.History()
				So(err, ShouldBeNil)
				So(recs, ShouldBeEmpty)
			})
		})
	})
}

func TestService_SubmitRejections(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		fs := newFakeScorer()
		svc := startedService(fs)
		defer svc.Stop()

		Convey("When submitting whitespace", func() {
			_, err := svc.Login(ctx, "u@test.com")
			So(err, ShouldBeNil)
			_, err = svc.Submit(ctx, "", " \n\t ")

			Convey("Then it is a validation error and the scorer is never called", func() {
				So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
				sc, fc := fs.calls()
				So(sc+fc, ShouldEqual, 0)
				recs, _ := svc.History()
				So(recs, ShouldBeEmpty)
			})
		})

		Convey("When submitting without a session", func() {
			_, err := svc.Submit(ctx, "", "an essay")

			Convey("Then it is refused before any call", func() {
				So(err, ShouldEqual, service.ErrNoActiveSession)
				sc, fc := fs.calls()
				So(sc+fc, ShouldEqual, 0)
			})
		})
	})
}

func TestService_SubmitSuccess(t *testing.T) {
	Convey("Given a logged-in user", t, func() {
		ctx := context.Background()
		fs := newFakeScorer(17)
		fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		var heard []model.EssayRecord
		svc := startedService(fs,
			service.WithClock(func() time.Time { return fixed }),
			service.WithResultListener(func(rec model.EssayRecord) { heard = append(heard, rec) }),
		)
		defer svc.Stop()
		_, err := svc.Login(ctx, "u@test.com")
		So(err, ShouldBeNil)

		Convey("When submitting an essay without a prompt", func() {
			res, err := svc.Submit(ctx, "", "I waited at the clinic.")

			Convey("Then the record is committed with the default prompt", func() {
				So(err, ShouldBeNil)
				So(res.Record.ID, ShouldNotBeEmpty)
				So(res.Record.Prompt, ShouldEqual, config.DefaultPrompt)
				So(res.Record.Content, ShouldEqual, "I waited at the clinic.")
				So(res.Record.Score.Domain1Score, ShouldEqual, 17.0)
				So(res.Record.SubmittedAt, ShouldEqual, fixed)
				So(res.TraitPoints, ShouldHaveLength, model.TraitCount)
			})

			Convey("Then history, display and listeners agree", func() {
				recs, err := svc.History()
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 1)
				So(recs[0].ID, ShouldEqual, res.Record.ID)

				d := svc.Display()
				So(d.RecordID, ShouldEqual, res.Record.ID)
				So(d.Score.Domain1Score, ShouldEqual, 17.0)
				So(d.Feedback["Ideas"], ShouldEqual, "Clear.")
				So(heard, ShouldHaveLength, 1)

				sc, fc := fs.calls()
				So(sc, ShouldEqual, 1)
				So(fc, ShouldEqual, 1)
			})
		})

		Convey("When submitting with an explicit prompt", func() {
			res, err := svc.Submit(ctx, "Describe a journey.", "We walked.")
			So(err, ShouldBeNil)
			So(res.Record.Prompt, ShouldEqual, "Describe a journey.")
		})
	})
}

func TestService_SubmitFailures(t *testing.T) {
	Convey("Given a logged-in user with one committed essay", t, func() {
		ctx := context.Background()
		fs := newFakeScorer(10)
		svc := startedService(fs)
		defer svc.Stop()
		_, err := svc.Login(ctx, "u@test.com")
		So(err, ShouldBeNil)
		first, err := svc.Submit(ctx, "", "first")
		So(err, ShouldBeNil)

		check := func(err error, wantErrs int) {
			So(errors.Is(err, service.ErrSubmission), ShouldBeTrue)
			So(errors.Is(err, scoring.ErrService), ShouldBeTrue)
			var se *service.SubmissionError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Errs, ShouldHaveLength, wantErrs)

			recs, _ := svc.History()
			So(recs, ShouldHaveLength, 1)
			So(svc.Display().RecordID, ShouldEqual, first.Record.ID)
		}

		Convey("When the score call fails", func() {
			fs.scoreErr = statusError(scoring.EndpointScore)
			_, err := svc.Submit(ctx, "", "second")
			Convey("Then nothing is committed", func() { check(err, 1) })
		})

		Convey("When the feedback call fails", func() {
			fs.feedbackErr = statusError(scoring.EndpointFeedback)
			_, err := svc.Submit(ctx, "", "second")
			Convey("Then nothing is committed", func() { check(err, 1) })
		})

		Convey("When both calls fail", func() {
			fs.scoreErr = statusError(scoring.EndpointScore)
			fs.feedbackErr = statusError(scoring.EndpointFeedback)
			_, err := svc.Submit(ctx, "", "second")
			Convey("Then both failures are reported", func() { check(err, 2) })
		})

		Convey("When a later submission succeeds", func() {
			fs.feedbackErr = statusError(scoring.EndpointFeedback)
			_, err := svc.Submit(ctx, "", "second")
			So(err, ShouldNotBeNil)
			fs.feedbackErr = nil
			_, err = svc.Submit(ctx, "", "second")

			Convey("Then the in-flight slot was released", func() {
				So(err, ShouldBeNil)
				recs, _ := svc.History()
				So(recs, ShouldHaveLength, 2)
			})
		})
	})

	Convey("Given sequential scoring", t, func() {
		ctx := context.Background()
		fs := newFakeScorer()
		fs.scoreErr = statusError(scoring.EndpointScore)
		svc := startedService(fs, service.WithConcurrentScoring(false))
		defer svc.Stop()
		_, err := svc.Login(ctx, "u@test.com")
		So(err, ShouldBeNil)

		Convey("When the score call fails", func() {
			_, err := svc.Submit(ctx, "", "essay")

			Convey("Then feedback is never requested", func() {
				So(errors.Is(err, service.ErrSubmission), ShouldBeTrue)
				sc, fc := fs.calls()
				So(sc, ShouldEqual, 1)
				So(fc, ShouldEqual, 0)
			})
		})
	})
}

func TestService_SubmitConcurrency(t *testing.T) {
	Convey("Given a logged-in user and a scorer that blocks", t, func() {
		ctx := context.Background()
		fs := newFakeScorer()
		fs.block = make(chan struct{})
		svc := startedService(fs)
		defer svc.Stop()
		_, err := svc.Login(ctx, "u@test.com")
		So(err, ShouldBeNil)

		type outcome struct {
			res service.Result
			err error
		}
		done := make(chan outcome, 1)
		go func() {
			res, err := svc.Submit(ctx, "", "same essay")
			done <- outcome{res, err}
		}()
		<-fs.entered

		Convey("When the same essay is submitted again while the first is running", func() {
			_, err := svc.Submit(ctx, "", "same essay")
			So(err, ShouldEqual, service.ErrSubmissionInFlight)
			So(svc.GetStats()["inFlight"], ShouldEqual, int64(1))
			close(fs.block)
			first := <-done

			Convey("Then exactly one record is committed", func() {
				So(first.err, ShouldBeNil)
				recs, _ := svc.History()
				So(recs, ShouldHaveLength, 1)
				So(recs[0].ID, ShouldEqual, first.res.Record.ID)
			})
		})

		Convey("When the user logs out while the submission is running", func() {
			svc.Logout(ctx)
			close(fs.block)
			first := <-done

			Convey("Then the late result is discarded", func() {
				So(first.err, ShouldEqual, service.ErrStaleSession)
				So(svc.Display().Empty(), ShouldBeTrue)
				_, err := svc.History()
				So(err, ShouldEqual, service.ErrNoActiveSession)
			})

			Convey("And logging back in shows an empty history", func() {
				_, err := svc.Login(ctx, "u@test.com")
				So(err, ShouldBeNil)
				recs, err := svc.History()
				So(err, ShouldBeNil)
				So(recs, ShouldBeEmpty)
				So(svc.GetStats()["stale"], ShouldEqual, int64(1))
			})
		})
	})
}

func TestService_Profile(t *testing.T) {
	Convey("Given a user who submitted essays scored 15, 16 and 14", t, func() {
		ctx := context.Background()
		svc := startedService(newFakeScorer(15, 16, 14))
		defer svc.Stop()
		_, err := svc.Login(ctx, "u@test.com")
		So(err, ShouldBeNil)
		for _, essay := range []string{"one", "two", "three"} {
			_, err := svc.Submit(ctx, "", essay)
			So(err, ShouldBeNil)
		}

		Convey("When reading the profile", func() {
			p, err := svc.Profile()

			Convey("Then it reports the average and progress", func() {
				So(err, ShouldBeNil)
				So(p.Identity, ShouldEqual, model.Identity("u@test.com"))
				So(p.Summary.Count, ShouldEqual, 3)
				So(p.Summary.AverageScore, ShouldEqual, 15.0)
				So(p.AverageDisplay, ShouldEqual, "15.00")
				So(p.Progress, ShouldHaveLength, 3)
				So(p.Progress[1], ShouldResemble, model.ProgressPoint{Label: "Essay 2", Score: 16})
				So(p.TraitSeries, ShouldHaveLength, 3)
				So(p.TraitAverages[0], ShouldResemble, model.TraitPoint{Trait: "Idea", Rater1: 2, Rater2: 3})
			})
		})

		Convey("When the user logs out and back in", func() {
			svc.Logout(ctx)
			_, err := svc.Login(ctx, "u@test.com")
			So(err, ShouldBeNil)
			p, err := svc.Profile()

			Convey("Then the profile starts from zero", func() {
				So(err, ShouldBeNil)
				So(p.Summary.Count, ShouldEqual, 0)
				So(p.AverageDisplay, ShouldEqual, "0.00")
			})
		})
	})
}
